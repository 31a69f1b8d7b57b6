package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

// ContextStore persists development contexts and runs the vector search.
type ContextStore struct {
	pool *db.Pool
}

// Insert stores a context row with its embedding in one transaction.
// The embedding must already be populated; a context without one is not
// searchable and is rejected here.
func (s *ContextStore) Insert(ctx context.Context, c *models.Context) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := c.Validate(); err != nil {
		return errs.InvalidParams("%v", err)
	}
	if len(c.Embedding) != models.EmbeddingDim {
		return errs.Internal(fmt.Errorf("embedding dimension %d, want %d", len(c.Embedding), models.EmbeddingDim), "bad embedding")
	}

	meta, err := marshalMeta(c.Metadata)
	if err != nil {
		return errs.Internal(err, "encode context metadata")
	}

	return s.pool.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contexts (id, project_id, session_id, context_type, content, tags, relevance_score, metadata, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.ProjectID, nullString(c.SessionID), c.Type, c.Content,
			pq.Array(c.Tags), c.RelevanceScore, meta, db.Vector(c.Embedding), c.CreatedAt,
		)
		return err
	})
}

// SearchQuery is the filter set for a vector similarity search.
type SearchQuery struct {
	ProjectID     string
	Embedding     []float32
	Type          models.ContextType
	Tags          []string
	Limit         int
	MinSimilarity float64 // percentage floor, 0..100
}

// Search runs a cosine top-k restricted to one project. Results carry
// similarity as a percentage, highest first; rows below the floor are
// dropped.
func (s *ContextStore) Search(ctx context.Context, q SearchQuery) ([]*models.Context, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	var sb strings.Builder
	args := []any{q.ProjectID, db.Vector(q.Embedding), q.Limit}
	sb.WriteString(`
		SELECT id, project_id, session_id, context_type, content, tags, relevance_score, metadata, created_at,
			1 - (embedding <=> $2) AS similarity
		FROM contexts
		WHERE project_id = $1 AND embedding IS NOT NULL`)

	if q.Type != "" {
		args = append(args, q.Type)
		fmt.Fprintf(&sb, " AND context_type = $%d", len(args))
	}
	if len(q.Tags) > 0 {
		args = append(args, pq.Array(q.Tags))
		fmt.Fprintf(&sb, " AND tags && $%d", len(args))
	}
	sb.WriteString(` ORDER BY embedding <=> $2 LIMIT $3`)

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Context
	for rows.Next() {
		c, similarity, err := scanContextWithSimilarity(rows)
		if err != nil {
			return nil, err
		}
		// Cosine distance can exceed 1 for near-opposite vectors; clamp
		// the similarity into [0,1] before converting to a percentage.
		if similarity < 0 {
			similarity = 0
		}
		if similarity > 1 {
			similarity = 1
		}
		c.Similarity = similarity * 100
		if c.Similarity < q.MinSimilarity {
			continue
		}
		out = append(out, c)
	}
	return out, db.MapError(rows.Err())
}

// Recent returns the newest contexts for a project.
func (s *ContextStore) Recent(ctx context.Context, projectID string, limit int) ([]*models.Context, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, session_id, context_type, content, tags, relevance_score, metadata, created_at
		FROM contexts
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Context
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, db.MapError(rows.Err())
}

// Stats aggregates context counts for a project.
func (s *ContextStore) Stats(ctx context.Context, projectID string) (*models.ContextStats, error) {
	stats := &models.ContextStats{ByType: map[string]int{}}

	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
			count(embedding),
			count(*) FILTER (WHERE created_at > now() - interval '24 hours')
		FROM contexts WHERE project_id = $1`, projectID,
	).Scan(&stats.Total, &stats.WithEmbedding, &stats.Recent24h)
	if err != nil {
		return nil, db.MapError(err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT context_type, count(*) FROM contexts
		WHERE project_id = $1 GROUP BY context_type`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, db.MapError(err)
		}
		stats.ByType[typ] = n
	}
	return stats, db.MapError(rows.Err())
}

// Delete removes a context only when both id and project match.
func (s *ContextStore) Delete(ctx context.Context, contextID, projectID string) error {
	res, err := s.pool.Exec(ctx, `
		DELETE FROM contexts WHERE id = $1 AND project_id = $2`, contextID, projectID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err)
	}
	if n == 0 {
		return errs.NotFound("context %q not found in project %q", contextID, projectID)
	}
	return nil
}

func scanContext(row rowScanner) (*models.Context, error) {
	var c models.Context
	var sessionID sql.NullString
	var tags pq.StringArray
	var meta []byte
	err := row.Scan(&c.ID, &c.ProjectID, &sessionID, &c.Type, &c.Content,
		&tags, &c.RelevanceScore, &meta, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("context not found")
		}
		return nil, db.MapError(err)
	}
	c.SessionID = sessionID.String
	c.Tags = tags
	if c.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, errs.Internal(err, "decode context metadata")
	}
	return &c, nil
}

func scanContextWithSimilarity(row rowScanner) (*models.Context, float64, error) {
	var c models.Context
	var sessionID sql.NullString
	var tags pq.StringArray
	var meta []byte
	var similarity float64
	err := row.Scan(&c.ID, &c.ProjectID, &sessionID, &c.Type, &c.Content,
		&tags, &c.RelevanceScore, &meta, &c.CreatedAt, &similarity)
	if err != nil {
		return nil, 0, db.MapError(err)
	}
	c.SessionID = sessionID.String
	c.Tags = tags
	if c.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, 0, errs.Internal(err, "decode context metadata")
	}
	return &c, similarity, nil
}
