package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aidisdev/aidis/internal/db"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/pkg/models"
)

// ProjectStore persists projects.
type ProjectStore struct {
	pool *db.Pool
}

const projectColumns = `id, name, description, status, git_repo_url, root_directory, metadata, created_at, updated_at`

// Create inserts a new project. A duplicate name surfaces as Conflict via
// the unique constraint on name.
func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := p.Validate(); err != nil {
		return errs.InvalidParams("%v", err)
	}

	meta, err := marshalMeta(p.Metadata)
	if err != nil {
		return errs.Internal(err, "encode project metadata")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO projects (id, name, description, status, git_repo_url, root_directory, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.Status, p.GitRepoURL, p.RootDirectory, meta, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Get fetches a project by id.
func (s *ProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// Resolve fetches a project by id or, failing that, by exact name.
// Tool callers routinely pass names where ids are expected.
func (s *ProjectStore) Resolve(ctx context.Context, ident string) (*models.Project, error) {
	if _, err := uuid.Parse(ident); err == nil {
		p, err := s.Get(ctx, ident)
		if err == nil {
			return p, nil
		}
		if errs.KindOf(err) != errs.KindNotFound {
			return nil, err
		}
	}
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = $1`, ident)
	p, err := scanProject(row)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.NotFound("project %q not found", ident)
		}
		return nil, err
	}
	return p, nil
}

// List returns all projects, newest first, optionally with per-project
// entity counts.
func (s *ProjectStore) List(ctx context.Context, includeStats bool) ([]*models.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}

	if includeStats {
		for _, p := range out {
			stats, err := s.stats(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			p.Stats = stats
		}
	}
	return out, nil
}

func (s *ProjectStore) stats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	stats := &models.ProjectStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM contexts WHERE project_id = $1),
			(SELECT count(*) FROM decisions WHERE project_id = $1),
			(SELECT count(*) FROM tasks WHERE project_id = $1),
			(SELECT count(*) FROM sessions WHERE project_id = $1)`,
		projectID,
	).Scan(&stats.ContextCount, &stats.DecisionCount, &stats.TaskCount, &stats.SessionCount)
	if err != nil {
		return nil, db.MapError(err)
	}
	return stats, nil
}

// Delete removes a project; children cascade through foreign keys.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err)
	}
	if n == 0 {
		return errs.NotFound("project %q not found", id)
	}
	return nil
}

// AnyActive returns the most recently updated active project, or NotFound.
func (s *ProjectStore) AnyActive(ctx context.Context) (*models.Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE status = 'active'
		ORDER BY updated_at DESC LIMIT 1`)
	p, err := scanProject(row)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.NotFound("no active projects exist")
		}
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var meta []byte
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.GitRepoURL,
		&p.RootDirectory, &meta, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("project not found")
		}
		return nil, db.MapError(err)
	}
	if p.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, errs.Internal(err, "decode project metadata")
	}
	return &p, nil
}
