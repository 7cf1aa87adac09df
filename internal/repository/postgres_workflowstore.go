package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workflow-assist/backend/pkg/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresWorkflowStore is a PostgreSQL implementation of the WorkflowStore interface.
type PostgresWorkflowStore struct {
	db *pgxpool.Pool
}

// NewPostgresWorkflowStore creates a new PostgresWorkflowStore.
func NewPostgresWorkflowStore(db *pgxpool.Pool) *PostgresWorkflowStore {
	return &PostgresWorkflowStore{db: db}
}

// Create inserts the record and reads back the generated columns.
func (s *PostgresWorkflowStore) Create(ctx context.Context, record *models.WorkflowRecord) error {
	steps := record.SuggestedSteps
	if steps == nil {
		steps = []string{}
	}

	const query = `INSERT INTO workflows (original_workflow, suggested_steps)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	err := s.db.QueryRow(ctx, query, record.OriginalText, steps).
		Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// Get retrieves a workflow by its ID.
func (s *PostgresWorkflowStore) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	const query = `SELECT id, original_workflow, suggested_steps, user_email, created_at, updated_at
        FROM workflows WHERE id = $1`

	var record models.WorkflowRecord
	err := s.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.OriginalText,
		&record.SuggestedSteps,
		&record.UserEmail,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select workflow %d: %w", id, err)
	}
	if record.SuggestedSteps == nil {
		record.SuggestedSteps = []string{}
	}
	return &record, nil
}

// UpdateEmail records the email address a workflow's instructions were sent to.
func (s *PostgresWorkflowStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	tag, err := s.db.Exec(ctx, "UPDATE workflows SET user_email = $1, updated_at = now() WHERE id = $2", email, id)
	if err != nil {
		return fmt.Errorf("update workflow %d email: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored workflows.
func (s *PostgresWorkflowStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM workflows").Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *PostgresWorkflowStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Migrate applies the embedded schema files in lexical order. Every file is
// idempotent so running it against an existing database is harmless.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
