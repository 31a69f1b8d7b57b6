// Package state maintains the ambient "current project / current session"
// per caller. State is keyed by the transport caller identity so concurrent
// callers never observe each other's switches; the pointers are persisted in
// the caller_state table so a restart picks up where the caller left off.
package state

import (
	"context"
	"sync"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/store"
	"github.com/aidisdev/aidis/pkg/models"
)

// Manager owns the per-caller ambient state.
type Manager struct {
	stores *store.Stores
	logger *observability.Logger

	mu      sync.Mutex
	callers map[string]*callerLock
}

// callerLock serializes state transitions for one caller. Different callers
// proceed independently.
type callerLock struct {
	mu sync.Mutex
}

// NewManager creates the state manager.
func NewManager(stores *store.Stores, logger *observability.Logger) *Manager {
	return &Manager{
		stores:  stores,
		logger:  logger.With("component", "state"),
		callers: map[string]*callerLock{},
	}
}

func (m *Manager) lockFor(callerID string) *callerLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	cl, ok := m.callers[callerID]
	if !ok {
		cl = &callerLock{}
		m.callers[callerID] = cl
	}
	return cl
}

// EnsureSession returns the caller's active session, auto-creating one if
// none exists. A new session is associated with the caller's remembered
// project, or any active project when nothing is remembered.
func (m *Manager) EnsureSession(ctx context.Context, callerID string) (*models.Session, error) {
	cl := m.lockFor(callerID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cs, err := m.stores.Callers.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if cs.SessionID != "" {
		sess, err := m.stores.Sessions.Get(ctx, cs.SessionID)
		if err == nil && sess.Active() {
			return sess, nil
		}
		if err != nil && errs.KindOf(err) != errs.KindNotFound {
			return nil, err
		}
		// Remembered session is gone or ended; fall through and start fresh.
	}

	projectID := cs.ProjectID
	if projectID == "" {
		if p, err := m.stores.Projects.AnyActive(ctx); err == nil {
			projectID = p.ID
		} else if errs.KindOf(err) != errs.KindNotFound {
			return nil, err
		}
	}

	sess := &models.Session{ProjectID: projectID}
	if err := m.stores.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	if err := m.stores.Callers.SetSession(ctx, callerID, sess.ID); err != nil {
		return nil, err
	}
	if projectID != "" && cs.ProjectID == "" {
		if _, err := m.stores.Callers.SetProject(ctx, callerID, projectID); err != nil {
			return nil, err
		}
	}

	m.logger.Info(ctx, "auto-started session", "session_id", sess.ID, "project_id", projectID)
	return sess, nil
}

// EndSession closes the caller's active session. The next tool call
// auto-creates a new one.
func (m *Manager) EndSession(ctx context.Context, callerID string) error {
	cl := m.lockFor(callerID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cs, err := m.stores.Callers.Get(ctx, callerID)
	if err != nil {
		return err
	}
	if cs.SessionID == "" {
		return nil
	}
	if err := m.stores.Sessions.End(ctx, cs.SessionID); err != nil {
		return err
	}
	return m.stores.Callers.SetSession(ctx, callerID, "")
}

// EndAllSessions closes every open session and clears all remembered
// session pointers. Called at shutdown so HTTP callers' auto-created
// sessions get an ended_at too, not just stdio's.
func (m *Manager) EndAllSessions(ctx context.Context) (int64, error) {
	n, err := m.stores.Sessions.EndAllOpen(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.stores.Callers.ClearSessions(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// CurrentProject returns the caller's current project. If none is set it
// selects any active project, records the selection, and returns it.
func (m *Manager) CurrentProject(ctx context.Context, callerID string) (*models.Project, error) {
	cl := m.lockFor(callerID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cs, err := m.stores.Callers.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if cs.ProjectID != "" {
		p, err := m.stores.Projects.Get(ctx, cs.ProjectID)
		if err == nil {
			return p, nil
		}
		if errs.KindOf(err) != errs.KindNotFound {
			return nil, err
		}
		// Remembered project was deleted; select a replacement below.
	}

	p, err := m.stores.Projects.AnyActive(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := m.stores.Callers.SetProject(ctx, callerID, p.ID); err != nil {
		return nil, err
	}
	m.logger.Info(ctx, "selected default project", "project_id", p.ID, "name", p.Name)
	return p, nil
}

// CurrentProjectID returns the remembered project id without selecting a
// default, for handlers that fall back in stages.
func (m *Manager) CurrentProjectID(ctx context.Context, callerID string) (string, error) {
	cs, err := m.stores.Callers.Get(ctx, callerID)
	if err != nil {
		return "", err
	}
	return cs.ProjectID, nil
}

// SwitchProject atomically replaces the caller's current project. The switch
// runs in three phases: pre-switch validation, atomic pointer update, and
// post-switch read-back verification. Any failure restores the previous
// pointer and surfaces a typed error.
func (m *Manager) SwitchProject(ctx context.Context, callerID, target string) (*models.Project, error) {
	cl := m.lockFor(callerID)
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cs, err := m.stores.Callers.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}
	previous := cs.ProjectID

	// Phase 1: pre-switch validation.
	project, err := m.stores.Projects.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectArchived {
		return nil, errs.New(errs.KindPreSwitchValidationFailed,
			"project %q is archived and cannot become current", project.Name)
	}
	if cs.SessionID != "" {
		sess, err := m.stores.Sessions.Get(ctx, cs.SessionID)
		if err != nil && errs.KindOf(err) != errs.KindNotFound {
			return nil, err
		}
		if err == nil && !sess.Active() {
			return nil, errs.New(errs.KindPreSwitchValidationFailed,
				"current session %s has already ended", cs.SessionID)
		}
	}

	// Phase 2: atomic update; Phase 3: read-back verification.
	stored, err := m.stores.Callers.SetProject(ctx, callerID, project.ID)
	if err != nil {
		m.rollbackProject(ctx, callerID, previous)
		return nil, errs.Wrap(errs.KindAtomicSwitchFailed, err, "project pointer update failed")
	}
	if stored != project.ID {
		m.rollbackProject(ctx, callerID, previous)
		return nil, errs.New(errs.KindAtomicSwitchFailed,
			"post-switch verification failed: stored %q, want %q", stored, project.ID)
	}

	// Adopt the active session into the new project so stored contexts
	// default sensibly.
	if cs.SessionID != "" {
		if err := m.stores.Sessions.AssignProject(ctx, cs.SessionID, project.ID); err != nil {
			m.logger.Warn(ctx, "session adoption after switch failed", "error", err)
		}
	}

	m.logger.Info(ctx, "switched project", "from", previous, "to", project.ID, "name", project.Name)
	return project, nil
}

func (m *Manager) rollbackProject(ctx context.Context, callerID, previous string) {
	if _, err := m.stores.Callers.SetProject(ctx, callerID, previous); err != nil {
		m.logger.Error(ctx, "project switch rollback failed", "error", err, "previous", previous)
	}
}
