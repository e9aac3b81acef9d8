package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"WikiMover/internal/domain"
	"WikiMover/internal/ports"
)

const outcomesTable = "transfer_outcomes"

const schema = `CREATE TABLE IF NOT EXISTS transfer_outcomes (
    id                BIGSERIAL PRIMARY KEY,
    run_id            TEXT        NOT NULL,
    source_title      TEXT        NOT NULL,
    destination_title TEXT        NOT NULL DEFAULT '',
    state             TEXT        NOT NULL,
    failed_step       TEXT        NOT NULL DEFAULT '',
    error_class       TEXT        NOT NULL DEFAULT '',
    error_message     TEXT        NOT NULL DEFAULT '',
    needs_review      BOOLEAN     NOT NULL DEFAULT FALSE,
    dry_run           BOOLEAN     NOT NULL DEFAULT FALSE,
    finished_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS transfer_outcomes_run_idx ON transfer_outcomes (run_id);
CREATE INDEX IF NOT EXISTS transfer_outcomes_source_idx ON transfer_outcomes (source_title);`

var outcomeColumns = []string{
	"source_title",
	"destination_title",
	"state",
	"failed_step",
	"error_message",
	"needs_review",
	"dry_run",
	"finished_at",
}

// PostgresRepository keeps the transfer audit trail in Postgres.
type PostgresRepository struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

var _ ports.TransferLog = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate creates the outcome table when it is missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate outcomes: %w", err)
	}
	return nil
}

// SaveOutcome appends one finished candidate to the run's trail.
func (r *PostgresRepository) SaveOutcome(ctx context.Context, runID string, res domain.TransferResult) error {
	if r.db == nil {
		return nil
	}

	var message string
	if res.Err != nil {
		message = res.Err.Error()
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	query, args, err := r.psql.Insert(outcomesTable).
		Columns("run_id", "source_title", "destination_title", "state", "failed_step",
			"error_class", "error_message", "needs_review", "dry_run", "finished_at").
		Values(runID, res.SourceTitle, res.DestinationTitle, string(res.State), string(res.FailedAt),
			string(domain.Classify(res.Err)), message, res.NeedsReview, res.DryRun, finished).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Outcomes lists a run's candidates in completion order.
func (r *PostgresRepository) Outcomes(ctx context.Context, runID string) ([]domain.TransferResult, error) {
	return r.query(ctx, r.psql.Select(outcomeColumns...).
		From(outcomesTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("finished_at", "id"))
}

// History lists earlier outcomes for source titles, newest first.
func (r *PostgresRepository) History(ctx context.Context, titles []string) ([]domain.TransferResult, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	return r.query(ctx, r.psql.Select(outcomeColumns...).
		From(outcomesTable).
		Where(sq.Expr("source_title = ANY(?)", pq.StringArray(titles))).
		OrderBy("finished_at DESC", "id DESC"))
}

func (r *PostgresRepository) query(ctx context.Context, builder sq.SelectBuilder) ([]domain.TransferResult, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}

	var results []domain.TransferResult
	for rows.Next() {
		var (
			res     domain.TransferResult
			state   string
			step    string
			message string
		)
		if err := rows.Scan(&res.SourceTitle, &res.DestinationTitle, &state, &step,
			&message, &res.NeedsReview, &res.DryRun, &res.FinishedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		res.State = domain.Stage(state)
		res.FailedAt = domain.Step(step)
		if message != "" {
			res.Err = errors.New(message)
		}
		results = append(results, res)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return results, nil
}
