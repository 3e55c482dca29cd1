// Package repository provides persistence implementations for the task
// and account services using a PostgreSQL database, plus in-memory
// equivalents for development and tests.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/atinyakov/todosync/internal/models"
	"github.com/atinyakov/todosync/internal/service"
	"github.com/google/uuid"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresTaskRepository implements service.TxTaskStore against a PostgreSQL database.
type PostgresTaskRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
	q  queryer
}

// NewPostgresTaskRepository creates a PostgresTaskRepository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresTaskRepository(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{DB: db, q: db}
}

const taskColumns = `id, user_id, title, description, status, is_deleted, COALESCE(client_ref, ''), created_at, updated_at`

// whereClause renders f as a WHERE clause, appending its values to args.
func whereClause(f models.TaskFilter, args []any) (string, []any) {
	args = append(args, f.Owner)
	conds := []string{fmt.Sprintf("user_id = $%d", len(args))}

	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}
	if f.ID != "" {
		add("id = $%d", f.ID)
	}
	if f.ClientRef != "" {
		add("client_ref = $%d", f.ClientRef)
	}
	if f.ActiveOnly {
		conds = append(conds, "is_deleted = false")
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Search != "" {
		add("(title ILIKE $%d OR description ILIKE $%[1]d)", "%"+escapeLike(f.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Find returns the tasks matching f, newest first.
//
//	ctx: context for cancellation and deadlines
//	f:   owner-scoped filter
//
// Returns the matching tasks or an error if the query or scanning fails.
func (r *PostgresTaskRepository) Find(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	where, args := whereClause(f, nil)
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY created_at DESC, seq DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var status string
		if err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &status,
			&t.Deleted, &t.ClientRef, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		t.Status = models.Status(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

// Insert creates a task owned by owner. The identifier is generated here;
// timestamps are assigned by the database.
func (r *PostgresTaskRepository) Insert(ctx context.Context, owner string, d models.TaskDraft) (models.Task, error) {
	t := models.Task{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		ClientRef:   d.ClientRef,
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, status, client_ref)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING created_at, updated_at
	`, t.ID, owner, t.Title, t.Description, string(t.Status), t.ClientRef).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// UpdateMatching merges c into the tasks matching f and bumps their
// update time. An empty change set touches nothing.
func (r *PostgresTaskRepository) UpdateMatching(ctx context.Context, f models.TaskFilter, c models.TaskChanges) (int64, error) {
	if c.Empty() {
		return 0, nil
	}

	var sets []string
	var args []any
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if c.Title != nil {
		set("title", *c.Title)
	}
	if c.Description != nil {
		set("description", *c.Description)
	}
	if c.Status != nil {
		set("status", string(*c.Status))
	}
	if c.Deleted != nil {
		set("is_deleted", *c.Deleted)
	}
	sets = append(sets, "updated_at = clock_timestamp()")

	where, args := whereClause(f, args)
	res, err := r.q.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE `+where,
		args...)
	if err != nil {
		return 0, fmt.Errorf("update tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// InTx runs fn inside a single transaction.
func (r *PostgresTaskRepository) InTx(ctx context.Context, fn func(service.TaskStore) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresTaskRepository{DB: r.DB, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
