package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	lbhttp "github.com/playforge/levelboard/internal/adapter/http"
	"github.com/playforge/levelboard/internal/config"
	"github.com/playforge/levelboard/internal/domain"
	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/domain/decision"
	"github.com/playforge/levelboard/internal/domain/level"
	"github.com/playforge/levelboard/internal/domain/triage"
	"github.com/playforge/levelboard/internal/domain/workscope"
	"github.com/playforge/levelboard/internal/port/messagequeue"
	"github.com/playforge/levelboard/internal/runner"
	"github.com/playforge/levelboard/internal/service"
)

var (
	errNotFound = fmt.Errorf("mock: %w", domain.ErrNotFound)
	errConflict = fmt.Errorf("mock: %w", domain.ErrConflict)
)

// mockStore implements database.Store for testing.
type mockStore struct {
	batches   []batch.Batch
	levels    []level.Level
	decisions []decision.Decision
	runs      []triage.Run
}

func (m *mockStore) ListBatches(_ context.Context) ([]batch.Batch, error) {
	return m.batches, nil
}

func (m *mockStore) GetBatch(_ context.Context, id string) (*batch.Batch, error) {
	for i := range m.batches {
		if m.batches[i].ID == id {
			b := m.batches[i]
			return &b, nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) CreateBatch(_ context.Context, req batch.CreateRequest) (*batch.Batch, error) {
	b := batch.Batch{
		ID:          fmt.Sprintf("batch-%d", len(m.batches)+1),
		Name:        req.Name,
		TotalLevels: req.TotalLevels,
		Status:      batch.StatusActive,
		Version:     1,
		CreatedAt:   time.Now(),
	}
	m.batches = append(m.batches, b)
	return &b, nil
}

func (m *mockStore) DeleteBatch(_ context.Context, id string) error {
	for i := range m.batches {
		if m.batches[i].ID == id {
			m.batches = append(m.batches[:i], m.batches[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) CompleteBatch(_ context.Context, id string, version int) error {
	for i := range m.batches {
		if m.batches[i].ID == id {
			if m.batches[i].Version != version {
				return errConflict
			}
			now := time.Now()
			m.batches[i].Status = batch.StatusCompleted
			m.batches[i].CompletedAt = &now
			m.batches[i].Version++
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) findLevel(batchID string, number int) *level.Level {
	for i := range m.levels {
		if m.levels[i].BatchID == batchID && m.levels[i].Number == number {
			return &m.levels[i]
		}
	}
	return nil
}

func (m *mockStore) ListLevels(_ context.Context, batchID string) ([]level.Level, error) {
	var out []level.Level
	for i := range m.levels {
		if m.levels[i].BatchID == batchID {
			out = append(out, m.levels[i])
		}
	}
	return out, nil
}

func (m *mockStore) GetLevel(_ context.Context, batchID string, number int) (*level.Level, error) {
	l := m.findLevel(batchID, number)
	if l == nil {
		return nil, errNotFound
	}
	out := *l
	return &out, nil
}

func (m *mockStore) SeedLevels(_ context.Context, batchID string, count int) (int, error) {
	created := 0
	for n := 1; n <= count; n++ {
		if m.findLevel(batchID, n) != nil {
			continue
		}
		m.levels = append(m.levels, level.Level{
			ID:      fmt.Sprintf("level-%s-%d", batchID, n),
			BatchID: batchID,
			Number:  n,
			Status:  level.StatusGenerated,
			Version: 1,
		})
		created++
	}
	return created, nil
}

func (m *mockStore) UpdateLevel(_ context.Context, batchID string, number int, req level.UpdateRequest) (*level.Level, error) {
	l := m.findLevel(batchID, number)
	if l == nil {
		return nil, errNotFound
	}
	l.Apply(req)
	l.Version++
	out := *l
	return &out, nil
}

func (m *mockStore) ApproveLevel(_ context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error {
	l := m.findLevel(batchID, number)
	if l == nil {
		return errNotFound
	}
	l.Status = level.StatusApproved
	m.appendDecision(batchID, number, decision.ActionApprove, reason, actor, runID)
	return nil
}

func (m *mockStore) RejectLevel(_ context.Context, batchID string, number int, reason string, actor decision.Actor, runID string) error {
	l := m.findLevel(batchID, number)
	if l == nil {
		return errNotFound
	}
	l.Status = level.StatusRejected
	m.appendDecision(batchID, number, decision.ActionReject, reason, actor, runID)
	return nil
}

func (m *mockStore) ReworkLevel(_ context.Context, batchID string, number int, reason string) error {
	l := m.findLevel(batchID, number)
	if l == nil {
		return errNotFound
	}
	l.Status = level.StatusNeedsRework
	m.appendDecision(batchID, number, decision.ActionRework, reason, decision.ActorManual, "")
	return nil
}

func (m *mockStore) MarkExported(_ context.Context, batchID string, number int) error {
	l := m.findLevel(batchID, number)
	if l == nil {
		return errNotFound
	}
	if l.Status != level.StatusApproved && l.Status != level.StatusExported {
		return errConflict
	}
	l.Status = level.StatusExported
	return nil
}

func (m *mockStore) appendDecision(batchID string, number int, action decision.Action, reason string, actor decision.Actor, runID string) {
	m.decisions = append(m.decisions, decision.Decision{
		ID:          fmt.Sprintf("decision-%d", len(m.decisions)+1),
		BatchID:     batchID,
		LevelNumber: number,
		Action:      action,
		Reason:      reason,
		Actor:       actor,
		RunID:       runID,
		CreatedAt:   time.Now(),
	})
}

func (m *mockStore) ListDecisions(_ context.Context, batchID string) ([]decision.Decision, error) {
	var out []decision.Decision
	for i := range m.decisions {
		if m.decisions[i].BatchID == batchID {
			out = append(out, m.decisions[i])
		}
	}
	return out, nil
}

func (m *mockStore) CreateTriageRun(_ context.Context, run *triage.Run) error {
	m.runs = append(m.runs, *run)
	return nil
}

func (m *mockStore) UpdateTriageRunProgress(_ context.Context, runID string, processed int) error {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			m.runs[i].Processed = processed
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) FinishTriageRun(_ context.Context, runID string, status triage.RunStatus, processed int, errText string) error {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			now := time.Now()
			m.runs[i].Status = status
			m.runs[i].Processed = processed
			m.runs[i].Error = errText
			m.runs[i].FinishedAt = &now
			return nil
		}
	}
	return errNotFound
}

func (m *mockStore) GetTriageRun(_ context.Context, runID string) (*triage.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, errNotFound
}

func (m *mockStore) ListTriageRuns(_ context.Context, batchID string) ([]triage.Run, error) {
	var out []triage.Run
	for i := range m.runs {
		if m.runs[i].BatchID == batchID {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct{}

func (m *mockQueue) Publish(_ context.Context, _ string, _ []byte) error {
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

// mockBroadcaster implements broadcast.Broadcaster for testing.
type mockBroadcaster struct{}

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, _ string, _ any) {}

// mockCache implements cache.Cache with no storage; every Get is a miss.
type mockCache struct{}

func (m *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (m *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (m *mockCache) Delete(_ context.Context, _ string) error { return nil }

func newTestRouter() chi.Router {
	store := &mockStore{}
	queue := &mockQueue{}
	hub := &mockBroadcaster{}
	workscopeSvc := service.NewWorkscopeService(store, &mockCache{}, hub, config.Workscope{}, time.Minute)
	triageCfg := config.Triage{
		MinMatchScore:          80,
		AutoApproveGrades:      []string{"S", "A"},
		AutoRejectGrades:       []string{"D"},
		MaxMatchScoreForReject: 60,
		MaxConcurrentRuns:      2,
	}
	handlers := &lbhttp.Handlers{
		Batches:   service.NewBatchService(store, queue),
		Levels:    service.NewLevelService(store, queue, hub, workscopeSvc),
		Workscope: workscopeSvc,
		Triage:    service.NewTriageService(store, queue, hub, workscopeSvc, runner.NewPool(2), triageCfg),
	}

	r := chi.NewRouter()
	lbhttp.MountRoutes(r, handlers, nil)
	return r
}

func createBatch(t *testing.T, r chi.Router, name string, total int) batch.Batch {
	t.Helper()
	body, _ := json.Marshal(batch.CreateRequest{Name: name, TotalLevels: total})
	req := httptest.NewRequest("POST", "/api/v1/batches", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create batch: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var b batch.Batch
	if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	return b
}

func seedLevels(t *testing.T, r chi.Router, batchID string, count int) {
	t.Helper()
	body := strings.NewReader(fmt.Sprintf(`{"count":%d}`, count))
	req := httptest.NewRequest("POST", "/api/v1/batches/"+batchID+"/levels/seed", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("seed levels: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func patchLevel(t *testing.T, r chi.Router, batchID string, number int, body string) {
	t.Helper()
	url := fmt.Sprintf("/api/v1/batches/%s/levels/%d", batchID, number)
	req := httptest.NewRequest("PATCH", url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("patch level %d: expected 200, got %d: %s", number, w.Code, w.Body.String())
	}
}

// seedTriageBatch creates a batch with one level per triage bucket plus one
// extra manual-review level: 1 auto-approve, 2 and 4 manual, 3 auto-reject.
func seedTriageBatch(t *testing.T, r chi.Router) batch.Batch {
	t.Helper()
	b := createBatch(t, r, "Triage Batch", 4)
	seedLevels(t, r, b.ID, 4)
	patchLevel(t, r, b.ID, 1, `{"match_score":95,"grade":"S"}`)
	patchLevel(t, r, b.ID, 2, `{"match_score":70,"grade":"B"}`)
	patchLevel(t, r, b.ID, 3, `{"match_score":30,"grade":"D"}`)
	patchLevel(t, r, b.ID, 4, `{"match_score":50,"grade":"A"}`)
	return b
}

// --- Batches ---

func TestListBatchesEmpty(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest("GET", "/api/v1/batches", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var batches []batch.Batch
	if err := json.NewDecoder(w.Body).Decode(&batches); err != nil {
		t.Fatal(err)
	}
	if len(batches) != 0 {
		t.Fatalf("expected empty list, got %d", len(batches))
	}
}

func TestCreateAndGetBatch(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Forest Pack", 100)

	if b.Name != "Forest Pack" {
		t.Fatalf("expected 'Forest Pack', got %q", b.Name)
	}
	if b.Status != batch.StatusActive {
		t.Fatalf("expected active status, got %q", b.Status)
	}

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateBatchMissingName(t *testing.T) {
	r := newTestRouter()

	body, _ := json.Marshal(batch.CreateRequest{TotalLevels: 10})
	req := httptest.NewRequest("POST", "/api/v1/batches", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateBatchInvalidBody(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/batches", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/batches/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result["version"] != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %q", result["version"])
	}
}

func TestDeleteBatch(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "To Delete", 5)

	req := httptest.NewRequest("DELETE", "/api/v1/batches/"+b.ID, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID, http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDeleteBatchNotFound(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("DELETE", "/api/v1/batches/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// --- Levels ---

func TestSeedAndListLevels(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Seeded", 3)
	seedLevels(t, r, b.ID, 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var levels []level.Level
	if err := json.NewDecoder(w.Body).Decode(&levels); err != nil {
		t.Fatal(err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if levels[0].Status != level.StatusGenerated {
		t.Fatalf("expected generated status, got %q", levels[0].Status)
	}
}

func TestSeedLevelsInvalidCount(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Bad Seed", 3)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/seed", strings.NewReader(`{"count":0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSeedLevelsUnknownBatch(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/batches/nonexistent/levels/seed", strings.NewReader(`{"count":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListLevelsStatusFilter(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Filtered", 3)
	seedLevels(t, r, b.ID, 3)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/batches/%s/levels/%d/approve", b.ID, 2), http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels?status=approved", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var levels []level.Level
	if err := json.NewDecoder(w.Body).Decode(&levels); err != nil {
		t.Fatal(err)
	}
	if len(levels) != 1 || levels[0].Number != 2 {
		t.Fatalf("expected only level 2, got %+v", levels)
	}
}

func TestGetLevelNotFound(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Sparse", 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels/42", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetLevelBadNumber(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Sparse", 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels/abc", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateLevel(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Editable", 1)
	seedLevels(t, r, b.ID, 1)

	url := "/api/v1/batches/" + b.ID + "/levels/1"
	req := httptest.NewRequest("PATCH", url, strings.NewReader(`{"match_score":88,"grade":"A","playtest_required":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var l level.Level
	if err := json.NewDecoder(w.Body).Decode(&l); err != nil {
		t.Fatal(err)
	}
	if l.MatchScore == nil || *l.MatchScore != 88 {
		t.Fatalf("expected match score 88, got %v", l.MatchScore)
	}
	if l.Grade != level.GradeA || !l.PlaytestRequired {
		t.Fatalf("unexpected level after update: %+v", l)
	}
}

func TestUpdateLevelInvalidScore(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Editable", 1)
	seedLevels(t, r, b.ID, 1)

	url := "/api/v1/batches/" + b.ID + "/levels/1"
	req := httptest.NewRequest("PATCH", url, strings.NewReader(`{"match_score":101}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// --- Manual verdicts ---

func TestApproveLevelWithReason(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Verdicts", 1)
	seedLevels(t, r, b.ID, 1)

	url := "/api/v1/batches/" + b.ID + "/levels/1/approve"
	req := httptest.NewRequest("POST", url, strings.NewReader(`{"reason":"hand checked"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/decisions", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decisions []decision.Decision
	if err := json.NewDecoder(w.Body).Decode(&decisions); err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Reason != "hand checked" || decisions[0].Actor != decision.ActorManual {
		t.Fatalf("unexpected decision row: %+v", decisions[0])
	}
}

func TestApproveLevelNotFound(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Verdicts", 1)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/9/approve", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRejectAndReworkLevel(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Verdicts", 1)
	seedLevels(t, r, b.ID, 1)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/1/reject", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/1/rework", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("rework: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels/1", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var l level.Level
	if err := json.NewDecoder(w.Body).Decode(&l); err != nil {
		t.Fatal(err)
	}
	if l.Status != level.StatusNeedsRework {
		t.Fatalf("expected needs_rework, got %q", l.Status)
	}
}

func TestExportLevel(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Export", 1)
	seedLevels(t, r, b.ID, 1)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/1/approve", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/1/export", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels/1", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var l level.Level
	if err := json.NewDecoder(w.Body).Decode(&l); err != nil {
		t.Fatal(err)
	}
	if l.Status != level.StatusExported {
		t.Fatalf("expected exported, got %q", l.Status)
	}
}

func TestExportLevelNotApproved(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Export", 1)
	seedLevels(t, r, b.ID, 1)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/levels/1/export", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestListDecisionsEmpty(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Quiet", 1)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/decisions", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var decisions []decision.Decision
	if err := json.NewDecoder(w.Body).Decode(&decisions); err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 0 {
		t.Fatalf("expected empty list, got %d", len(decisions))
	}
}

// --- Work scope ---

func TestListPresets(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/workscope/presets", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var presets []workscope.Preset
	if err := json.NewDecoder(w.Body).Decode(&presets); err != nil {
		t.Fatal(err)
	}
	if len(presets) != 4 {
		t.Fatalf("expected 4 builtin presets, got %d", len(presets))
	}
	if presets[0].ID != workscope.PresetAll || presets[0].Range != nil {
		t.Fatalf("expected 'all' preset first with no range, got %+v", presets[0])
	}
}

func TestSetFilterPreset(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Scoped", 3)
	seedLevels(t, r, b.ID, 3)

	body := strings.NewReader(fmt.Sprintf(`{"batch_id":%q,"preset":"designer-a"}`, b.ID))
	req := httptest.NewRequest("PUT", "/api/v1/workscope/filter", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats workscope.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected 3 levels in scope, got %d", stats.Total)
	}
}

func TestSetFilterRange(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Scoped", 3)
	seedLevels(t, r, b.ID, 3)

	body := strings.NewReader(fmt.Sprintf(`{"batch_id":%q,"min":1,"max":2}`, b.ID))
	req := httptest.NewRequest("PUT", "/api/v1/workscope/filter", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats workscope.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected 2 levels in scope, got %d", stats.Total)
	}
}

func TestSetFilterMissingBatchID(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("PUT", "/api/v1/workscope/filter", strings.NewReader(`{"preset":"all"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSetFilterMissingRange(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Scoped", 3)

	body := strings.NewReader(fmt.Sprintf(`{"batch_id":%q}`, b.ID))
	req := httptest.NewRequest("PUT", "/api/v1/workscope/filter", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSetFilterUnknownPreset(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Scoped", 3)

	body := strings.NewReader(fmt.Sprintf(`{"batch_id":%q,"preset":"nobody"}`, b.ID))
	req := httptest.NewRequest("PUT", "/api/v1/workscope/filter", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// --- Stats ---

func TestBatchStatsDefault(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Stats", 3)
	seedLevels(t, r, b.ID, 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/stats", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats workscope.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Generated != 3 || stats.Approved != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestBatchStatsExplicitRange(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Stats", 3)
	seedLevels(t, r, b.ID, 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/stats?min=1&max=2", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats workscope.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected 2 levels in range, got %d", stats.Total)
	}
}

func TestBatchStatsInvalidRange(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Stats", 3)

	for _, query := range []string{"?min=abc&max=2", "?min=5&max=2", "?min=0&max=2"} {
		req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/stats"+query, http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %s: expected 400, got %d", query, w.Code)
		}
	}
}

func TestBatchStatsPreset(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Stats", 3)
	seedLevels(t, r, b.ID, 3)

	req := httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/stats?preset=designer-a", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats workscope.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected 3 levels in preset scope, got %d", stats.Total)
	}
}

// --- Triage ---

func TestTriagePreview(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/preview", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var buckets triage.Buckets
	if err := json.NewDecoder(w.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets.AutoApprove) != 1 || len(buckets.ManualReview) != 2 || len(buckets.AutoReject) != 1 {
		t.Fatalf("unexpected buckets: %d/%d/%d",
			len(buckets.AutoApprove), len(buckets.ManualReview), len(buckets.AutoReject))
	}

	// Preview must not mutate anything.
	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels?status=generated", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var levels []level.Level
	if err := json.NewDecoder(w.Body).Decode(&levels); err != nil {
		t.Fatal(err)
	}
	if len(levels) != 4 {
		t.Fatalf("expected 4 untouched levels, got %d", len(levels))
	}
}

func TestTriagePreviewCustomCriteria(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	// Lowering the approve threshold pulls level 4 (A/50) into auto-approve.
	body := strings.NewReader(`{"min_match_score":40,"auto_approve_grades":["S","A"],"auto_reject_grades":["D"],"max_match_score_for_reject":60}`)
	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/preview", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var buckets triage.Buckets
	if err := json.NewDecoder(w.Body).Decode(&buckets); err != nil {
		t.Fatal(err)
	}
	if len(buckets.AutoApprove) != 2 {
		t.Fatalf("expected 2 auto-approvals, got %d", len(buckets.AutoApprove))
	}
}

func TestTriagePreviewInvalidCriteria(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	body := strings.NewReader(`{"min_match_score":200}`)
	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/preview", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTriagePreviewUnknownBatch(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("POST", "/api/v1/batches/nonexistent/triage/preview", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTriageApproveAll(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/approve", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var run triage.Run
	if err := json.NewDecoder(w.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.Status != triage.RunCompleted {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
	if run.Processed != 1 || run.AutoApprove != 1 || run.ManualReview != 2 || run.AutoReject != 1 {
		t.Fatalf("unexpected run counts: %+v", run)
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/levels?status=approved", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var levels []level.Level
	if err := json.NewDecoder(w.Body).Decode(&levels); err != nil {
		t.Fatal(err)
	}
	if len(levels) != 1 || levels[0].Number != 1 {
		t.Fatalf("expected only level 1 approved, got %+v", levels)
	}
}

func TestTriageApplyAll(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/apply", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var run triage.Run
	if err := json.NewDecoder(w.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.Status != triage.RunCompleted || run.Processed != 2 {
		t.Fatalf("expected completed run with 2 processed, got %+v", run)
	}

	// Manual-review levels remain, so the batch must still be active.
	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID, http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got batch.Batch
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != batch.StatusActive {
		t.Fatalf("expected batch still active, got %q", got.Status)
	}
}

func TestTriageApplyAllCompletesBatch(t *testing.T) {
	r := newTestRouter()
	b := createBatch(t, r, "Clean Sweep", 2)
	seedLevels(t, r, b.ID, 2)
	patchLevel(t, r, b.ID, 1, `{"match_score":95,"grade":"S"}`)
	patchLevel(t, r, b.ID, 2, `{"match_score":30,"grade":"D"}`)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/apply", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID, http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got batch.Batch
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != batch.StatusCompleted {
		t.Fatalf("expected completed batch, got %q", got.Status)
	}
}

func TestTriageRunsHistory(t *testing.T) {
	r := newTestRouter()
	b := seedTriageBatch(t, r)

	req := httptest.NewRequest("POST", "/api/v1/batches/"+b.ID+"/triage/approve", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("approve all: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/batches/"+b.ID+"/triage/runs", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var runs []triage.Run
	if err := json.NewDecoder(w.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	req = httptest.NewRequest("GET", "/api/v1/triage/runs/"+runs[0].ID, http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var run triage.Run
	if err := json.NewDecoder(w.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.Kind != triage.KindApprove {
		t.Fatalf("expected approve run, got %q", run.Kind)
	}
}

func TestTriageRunNotFound(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/triage/runs/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
