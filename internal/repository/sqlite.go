package repository

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/scoretally/internal/models"
)

// Notifier receives one event per row changed by a committed write
type Notifier interface {
	Publish(ev models.ChangeEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(models.ChangeEvent) {}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides data access methods
type Repository struct {
	db       *sql.DB
	notifier Notifier
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db, notifier: nopNotifier{}}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// SetNotifier routes committed changes to n. A nil n discards them.
func (r *Repository) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	r.notifier = n
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a transaction. Events collected by fn are published
// only after a successful commit.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx, events *[]models.ChangeEvent) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var events []models.ChangeEvent
	if err := fn(tx, &events); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.publish(events...)
	return nil
}

func (r *Repository) publish(events ...models.ChangeEvent) {
	if r.notifier == nil {
		return
	}
	for _, ev := range events {
		r.notifier.Publish(ev)
	}
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			code TEXT NOT NULL UNIQUE,
			year INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS contests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			scoring_type TEXT NOT NULL DEFAULT 'percentage' CHECK (scoring_type IN ('percentage', 'points')),
			display_order INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS criteria (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contest_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			percentage REAL NOT NULL,
			category TEXT,
			display_order INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS divisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
			UNIQUE(event_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
			UNIQUE(event_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			contest_id INTEGER NOT NULL,
			division_id INTEGER NOT NULL,
			team_id INTEGER,
			number TEXT NOT NULL,
			full_name TEXT NOT NULL,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			FOREIGN KEY (division_id) REFERENCES divisions(id),
			FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS judges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			username TEXT NOT NULL UNIQUE,
			name TEXT,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'judge' CHECK (role IN ('judge', 'chairman')),
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS tabulators (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			username TEXT NOT NULL UNIQUE,
			name TEXT,
			password_hash TEXT NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			criterion_id INTEGER NOT NULL,
			value REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			FOREIGN KEY (criterion_id) REFERENCES criteria(id) ON DELETE CASCADE,
			UNIQUE(judge_id, participant_id, criterion_id)
		)`,
		`CREATE TABLE IF NOT EXISTS judge_participant_totals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			contest_id INTEGER NOT NULL,
			total_score REAL NOT NULL,
			submitted_at DATETIME NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			UNIQUE(judge_id, participant_id, contest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS judge_contest_submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			contest_id INTEGER NOT NULL,
			submitted_at DATETIME NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			UNIQUE(judge_id, contest_id)
		)`,
		// criterion_id 0 is the contest-wide default; NULL would defeat the UNIQUE constraint
		`CREATE TABLE IF NOT EXISTS scoring_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			contest_id INTEGER NOT NULL,
			criterion_id INTEGER NOT NULL DEFAULT 0,
			can_edit BOOLEAN NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			UNIQUE(judge_id, contest_id, criterion_id)
		)`,
		`CREATE TABLE IF NOT EXISTS division_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			contest_id INTEGER NOT NULL,
			division_id INTEGER NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			FOREIGN KEY (division_id) REFERENCES divisions(id) ON DELETE CASCADE,
			UNIQUE(judge_id, contest_id, division_id)
		)`,
		`CREATE TABLE IF NOT EXISTS participant_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			judge_id INTEGER NOT NULL,
			contest_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			FOREIGN KEY (judge_id) REFERENCES judges(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			UNIQUE(judge_id, contest_id, participant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS awards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			contest_id INTEGER,
			name TEXT NOT NULL,
			award_type TEXT NOT NULL DEFAULT 'criteria' CHECK (award_type IN ('criteria', 'special')),
			criteria_id INTEGER,
			criteria_ids TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			display_order INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
			FOREIGN KEY (contest_id) REFERENCES contests(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contests_event ON contests(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_criteria_contest ON criteria(contest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_contest ON participants(contest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_participant ON scores(participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_totals_contest ON judge_participant_totals(contest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_awards_event ON awards(event_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
