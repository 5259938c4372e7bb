package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/repository"
	"project-tracker/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var _ repository.Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements the repository contracts on a SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath and runs pending migrations.
func New(dbPath string) (*SQLiteRepository, error) {
	return NewWithBusyTimeout(dbPath, 0)
}

// NewWithBusyTimeout is New with writers waiting up to busy for a locked
// database instead of failing at once.
func NewWithBusyTimeout(dbPath string, busy time.Duration) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewDatabaseError("open database", err)
	}

	// SQLite serializes writers; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("enable foreign keys", err)
	}

	if busy > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
			db.Close()
			return nil, apperrors.NewDatabaseError("set busy timeout", err)
		}
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("run migrations", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return HandleDatabaseError("ping", err)
	}
	return nil
}

func (r *SQLiteRepository) timestamp() string {
	return FormatTimeForDB(r.now())
}

// actorID returns the id of the user acting through ctx.
func actorID(ctx context.Context, operation string) (int64, error) {
	actor := repository.ActorFrom(ctx)
	if actor == nil || actor.ID <= 0 {
		return 0, apperrors.NewUnauthenticatedError(operation)
	}
	return actor.ID, nil
}
