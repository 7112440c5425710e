package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/playforge/levelboard/internal/adapter/postgres"
	"github.com/playforge/levelboard/internal/config"
	"github.com/playforge/levelboard/internal/domain/batch"
	"github.com/playforge/levelboard/internal/domain/level"
)

// runAdmin dispatches admin subcommands (migrate, rollback, db-version,
// seed-demo, hash-token).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "db-version":
		return runAdminDBVersion(args[1:])
	case "seed-demo":
		return runAdminSeedDemo(args[1:])
	case "hash-token":
		return runAdminHashToken(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: levelboard admin <command> [options]

Commands:
  migrate      Apply all pending database migrations
  rollback     Roll back database migrations
  db-version   Print the current migration version
  seed-demo    Create a demo batch with levels across all grades
  hash-token   Print the bcrypt hash of a panel token for the config file
  help         Show this help message

Examples:
  levelboard admin migrate
  levelboard admin rollback --steps 1
  levelboard admin seed-demo --name "Demo Batch" --levels 40
  levelboard admin hash-token
`)
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := postgres.RunMigrations(context.Background(), cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Migrations applied.")
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := postgres.RollbackMigrations(context.Background(), cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s).\n", *steps)
	return nil
}

func runAdminDBVersion(args []string) error {
	fs := flag.NewFlagSet("db-version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("db-version: %w", err)
	}
	fmt.Println(v)
	return nil
}

func loadAdminStore() (*postgres.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}
	return postgres.NewStore(pool), cleanup, nil
}

func runAdminSeedDemo(args []string) error {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)
	name := fs.String("name", "Demo Batch", "batch name")
	count := fs.Int("levels", 25, "number of levels to seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count < 1 {
		return fmt.Errorf("--levels must be positive")
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	b, err := store.CreateBatch(ctx, batch.CreateRequest{Name: *name, TotalLevels: *count})
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	if _, err := store.SeedLevels(ctx, b.ID, *count); err != nil {
		return fmt.Errorf("seed levels: %w", err)
	}

	// Spread grades and scores so triage previews have something to chew on.
	grades := []level.Grade{level.GradeS, level.GradeA, level.GradeB, level.GradeC, level.GradeD}
	base := map[level.Grade]int{
		level.GradeS: 90,
		level.GradeA: 82,
		level.GradeB: 66,
		level.GradeC: 49,
		level.GradeD: 24,
	}
	dist := make(map[level.Grade]int, len(grades))
	for n := 1; n <= *count; n++ {
		g := grades[(n-1)%len(grades)]
		score := base[g] + n%8
		playtest := n%6 == 0
		req := level.UpdateRequest{
			MatchScore:       &score,
			Grade:            &g,
			PlaytestRequired: &playtest,
		}
		if _, err := store.UpdateLevel(ctx, b.ID, n, req); err != nil {
			return fmt.Errorf("grade level %d: %w", n, err)
		}
		dist[g]++
	}

	fmt.Fprintf(os.Stderr, "Batch created: %s (id=%s, levels=%d)\n", b.Name, b.ID, *count)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "GRADE\tCOUNT")
	for _, g := range grades {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", g, dist[g])
	}
	return w.Flush()
}

func runAdminHashToken(args []string) error {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	token := fs.String("token", "", "token to hash (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	t := *token
	if t == "" {
		var err error
		t, err = promptSecret("Token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		confirm, err := promptSecret("Confirm token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if t != confirm {
			return fmt.Errorf("tokens do not match")
		}
	}
	if t == "" {
		return fmt.Errorf("token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(t), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

// promptSecret reads a value from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr) // newline after secret input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
