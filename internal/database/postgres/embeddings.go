package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/faceclock/faceclock/internal/database"
)

// EmbeddingRepository provides PostgreSQL-backed embedding storage.
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository.
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

const embeddingColumns = "id, employee_id, embedding, model, dim, quality, captured_at, created_at, revoked_at"

func scanEmbedding(scan func(dest ...any) error) (database.StoredEmbedding, error) {
	var emb database.StoredEmbedding
	var vec pgvector.Vector
	var revoked sql.NullTime

	err := scan(
		&emb.ID,
		&emb.EmployeeID,
		&vec,
		&emb.Model,
		&emb.Dim,
		&emb.Quality,
		&emb.CapturedAt,
		&emb.CreatedAt,
		&revoked,
	)
	if err != nil {
		return emb, err
	}
	emb.Embedding = vec.Slice()
	if revoked.Valid {
		t := revoked.Time
		emb.RevokedAt = &t
	}
	return emb, nil
}

func (r *EmbeddingRepository) queryEmbeddings(ctx context.Context, query string, args ...any) ([]database.StoredEmbedding, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []database.StoredEmbedding
	for rows.Next() {
		emb, err := scanEmbedding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out = append(out, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return out, nil
}

// GetByEmployee retrieves all embeddings (including revoked) for an employee.
func (r *EmbeddingRepository) GetByEmployee(ctx context.Context, employeeID string) ([]database.StoredEmbedding, error) {
	return r.queryEmbeddings(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings WHERE employee_id = $1 ORDER BY captured_at",
		employeeID)
}

// GetActive retrieves all non-revoked embeddings across the deployment.
func (r *EmbeddingRepository) GetActive(ctx context.Context) ([]database.StoredEmbedding, error) {
	return r.queryEmbeddings(ctx,
		"SELECT "+embeddingColumns+" FROM embeddings WHERE revoked_at IS NULL ORDER BY id")
}

// Count returns the number of active embeddings.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM embeddings WHERE revoked_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// SaveEmbedding stores a new embedding and fills in its ID.
func (r *EmbeddingRepository) SaveEmbedding(ctx context.Context, emb *database.StoredEmbedding) error {
	query := `
		INSERT INTO embeddings (employee_id, embedding, model, dim, quality, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		emb.EmployeeID,
		pgvector.NewVector(emb.Embedding),
		emb.Model,
		emb.Dim,
		emb.Quality,
		emb.CapturedAt,
	).Scan(&emb.ID, &emb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// RevokeEmbedding marks an embedding as revoked.
func (r *EmbeddingRepository) RevokeEmbedding(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx,
		"UPDATE embeddings SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("revoke embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke embedding rows: %w", err)
	}
	if n == 0 {
		return errors.New("embedding not found or already revoked")
	}
	return nil
}
