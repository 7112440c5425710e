package triage

import "github.com/playforge/levelboard/internal/domain/level"

// Bucket names a triage outcome.
type Bucket string

const (
	BucketAutoApprove  Bucket = "auto_approve"
	BucketManualReview Bucket = "manual_review"
	BucketAutoReject   Bucket = "auto_reject"
)

// Buckets holds the three disjoint classification outcomes. Union equals the
// input set; order within each bucket follows input order.
type Buckets struct {
	AutoApprove  []level.Level `json:"auto_approve"`
	ManualReview []level.Level `json:"manual_review"`
	AutoReject   []level.Level `json:"auto_reject"`
}

// Decide places a single level. The reject check runs before the approve
// check: a grade present in both configured sets resolves to auto-reject,
// never auto-approve. Callers must preserve this order.
func Decide(l *level.Level, c Criteria) Bucket {
	if gradeIn(c.AutoRejectGrades, l.Grade) && l.Score() < c.MaxMatchScoreForReject {
		return BucketAutoReject
	}
	if gradeIn(c.AutoApproveGrades, l.Grade) && l.Score() >= c.MinMatchScore {
		return BucketAutoApprove
	}
	return BucketManualReview
}

// Classify partitions levels into the three buckets. Pure: no side effects,
// no I/O. Terminal-status levels should be stripped with Pending first.
func Classify(levels []level.Level, c Criteria) Buckets {
	var b Buckets
	for i := range levels {
		switch Decide(&levels[i], c) {
		case BucketAutoReject:
			b.AutoReject = append(b.AutoReject, levels[i])
		case BucketAutoApprove:
			b.AutoApprove = append(b.AutoApprove, levels[i])
		default:
			b.ManualReview = append(b.ManualReview, levels[i])
		}
	}
	return b
}

// Pending filters to the levels still eligible for triage. Levels already
// approved, rejected or exported stay out of the pool.
func Pending(levels []level.Level) []level.Level {
	out := make([]level.Level, 0, len(levels))
	for i := range levels {
		if levels[i].Status.Terminal() {
			continue
		}
		out = append(out, levels[i])
	}
	return out
}
