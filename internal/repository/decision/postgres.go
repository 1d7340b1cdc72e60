// Package decision reads judicial decisions from the relational source of
// truth. The repository is read-only; the indexer is the only consumer.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain/decision"
	"github.com/caselex/caselex/internal/logger"
)

// PostgresRepository fetches decisions from the decisions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository over an existing pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// FetchNewerThan returns up to limit decisions with id greater than afterID
// whose text is present and at least minTextLen characters, ordered by id
// ascending. The ordering is what makes the checkpoint a high-water mark.
func (r *PostgresRepository) FetchNewerThan(ctx context.Context, afterID int64, minTextLen, limit int) ([]decision.Decision, error) {
	query := `
		SELECT id, court, case_number, decision_number, decision_date, summary, full_text
		FROM decisions
		WHERE id > $1
		  AND full_text IS NOT NULL
		  AND char_length(full_text) >= $2
		ORDER BY id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, afterID, minTextLen, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch decisions after id %d: %w", afterID, err)
	}
	defer rows.Close()

	var out []decision.Decision
	for rows.Next() {
		var (
			id                                int64
			court, caseNumber, decisionNumber string
			date                              time.Time
			summary, fullText                 string
		)
		if err := rows.Scan(&id, &court, &caseNumber, &decisionNumber, &date, &summary, &fullText); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		dec, err := decision.New(id, court, caseNumber, decisionNumber, date, summary, fullText)
		if err != nil {
			return nil, fmt.Errorf("decision %d: %w", id, err)
		}
		out = append(out, dec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions after id %d: %w", afterID, err)
	}

	logger.FromContext(ctx).Debug("Fetched decision batch",
		zap.Int64("after_id", afterID),
		zap.Int("count", len(out)),
	)
	return out, nil
}
