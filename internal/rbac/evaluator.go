// ABOUTME: Permission evaluator for one (server, viewer) pair.
// ABOUTME: Owns the snapshot fetch lifecycle; every decision fails closed until a snapshot is ready.

package rbac

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the evaluator's lifecycle state
type State int

const (
	// StateIdle means there is no server context, so nothing is fetched
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Fetcher loads the viewer's permission snapshot for a server
type Fetcher interface {
	FetchSnapshot(ctx context.Context, serverID string) (Snapshot, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, serverID string) (Snapshot, error)

func (f FetcherFunc) FetchSnapshot(ctx context.Context, serverID string) (Snapshot, error) {
	return f(ctx, serverID)
}

// Result is the typed outcome of the latest settled fetch
type Result struct {
	Snapshot Snapshot
	Err      *FetchError
}

// OK reports whether the fetch produced a snapshot
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome describes one settled fetch, for metrics and logging hooks
type Outcome struct {
	ServerID   string
	Generation uint64
	Stale      bool
	Err        *FetchError
	Duration   time.Duration
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithLogger sets the evaluator's logger
func WithLogger(log *logrus.Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

// WithOutcomeHook registers a callback invoked after every settled fetch
func WithOutcomeHook(fn func(Outcome)) Option {
	return func(e *Evaluator) {
		e.onOutcome = fn
	}
}

// Evaluator answers permission questions for one viewer in one server
type Evaluator struct {
	serverID  string
	fetcher   Fetcher
	log       *logrus.Logger
	onOutcome func(Outcome)

	mu       sync.RWMutex
	state    State
	snapshot Snapshot
	err      *FetchError
	gen      uint64
	done     chan struct{}
	settled  time.Time
}

// NewEvaluator creates an evaluator for serverID. It starts in StateLoading, or
// StateIdle when serverID is empty. No fetch happens until Refresh or Load.
func NewEvaluator(serverID string, fetcher Fetcher, opts ...Option) *Evaluator {
	e := &Evaluator{
		serverID: serverID,
		fetcher:  fetcher,
		log:      logrus.StandardLogger(),
		state:    StateLoading,
	}
	if serverID == "" {
		e.state = StateIdle
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ServerID returns the server the evaluator is scoped to
func (e *Evaluator) ServerID() string {
	return e.serverID
}

// Refresh starts a new snapshot fetch and re-enters StateLoading. The returned
// channel is closed once that fetch settles. Responses of fetches superseded by
// a later Refresh are discarded.
func (e *Evaluator) Refresh(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if e.serverID == "" {
		close(done)
		return done
	}

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.state = StateLoading
	e.err = nil
	e.done = done
	e.mu.Unlock()

	go func() {
		start := time.Now()
		snap, err := e.fetcher.FetchSnapshot(ctx, e.serverID)
		e.settle(gen, snap, err, time.Since(start))
		close(done)
	}()

	return done
}

// Load refreshes and waits for the fetch to settle or ctx to end.
// The returned error is the fetch failure, or ctx.Err() if waiting was abandoned.
func (e *Evaluator) Load(ctx context.Context) error {
	done := e.Refresh(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if r, _ := e.Result(); r.Err != nil {
		return r.Err
	}
	return nil
}

// Wait blocks until the in-flight fetch settles or ctx ends. It reports whether
// the evaluator left StateLoading.
func (e *Evaluator) Wait(ctx context.Context) bool {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()

	if done == nil {
		return e.State() != StateLoading
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	return e.State() != StateLoading
}

func (e *Evaluator) settle(gen uint64, snap Snapshot, err error, elapsed time.Duration) {
	fields := logrus.Fields{
		"server_id":   e.serverID,
		"generation":  gen,
		"duration_ms": elapsed.Milliseconds(),
	}
	outcome := Outcome{ServerID: e.serverID, Generation: gen, Err: AsFetchError(err), Duration: elapsed}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		outcome.Stale = true
		e.log.WithFields(fields).Debug("discarding superseded permission snapshot")
		e.report(outcome)
		return
	}
	e.settled = time.Now()
	if err != nil {
		e.state = StateError
		e.err = outcome.Err
		e.snapshot = Snapshot{}
	} else {
		e.state = StateReady
		e.err = nil
		e.snapshot = snap.normalized()
	}
	e.mu.Unlock()

	if outcome.Err != nil {
		e.log.WithFields(fields).WithField("kind", outcome.Err.Kind).WithError(outcome.Err).Warn("permission snapshot fetch failed")
	} else {
		e.log.WithFields(fields).Debug("permission snapshot loaded")
	}
	e.report(outcome)
}

func (e *Evaluator) report(o Outcome) {
	if e.onOutcome != nil {
		e.onOutcome(o)
	}
}

// NeedsRefresh reports whether a new fetch is due: the latest one settled more
// than maxAge ago, or none was ever started. It is false while a fetch is in
// flight and when there is no server context.
func (e *Evaluator) NeedsRefresh(maxAge time.Duration) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.state {
	case StateIdle:
		return false
	case StateLoading:
		return e.done == nil
	default:
		return time.Since(e.settled) > maxAge
	}
}

// State returns the current lifecycle state
func (e *Evaluator) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Loading reports whether a fetch is pending
func (e *Evaluator) Loading() bool {
	return e.State() == StateLoading
}

// Err returns the latest fetch failure, or nil
func (e *Evaluator) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err == nil {
		return nil
	}
	return e.err
}

// ErrorMessage returns a human-readable failure message, or "" when there is no failure
func (e *Evaluator) ErrorMessage() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err == nil {
		return ""
	}
	return e.err.Message()
}

// Result returns the outcome of the latest settled fetch along with the current state.
// While loading or idle the result carries an empty snapshot.
func (e *Evaluator) Result() (Result, State) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Result{Snapshot: e.snapshot, Err: e.err}, e.state
}

func (e *Evaluator) ready() (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return Snapshot{}, false
	}
	return e.snapshot, true
}

// Can reports whether the viewer holds permission
func (e *Evaluator) Can(permission string) bool {
	s, ok := e.ready()
	return ok && s.Can(permission)
}

// HasRole reports whether the viewer holds a role named name, ignoring case
func (e *Evaluator) HasRole(name string) bool {
	s, ok := e.ready()
	return ok && s.HasRole(name)
}

// IsAdmin is shorthand for Can(PermManageServer)
func (e *Evaluator) IsAdmin() bool {
	s, ok := e.ready()
	return ok && s.IsAdmin()
}

// IsModerator reports whether the viewer's level reaches ModeratorLevel
func (e *Evaluator) IsModerator() bool {
	s, ok := e.ready()
	return ok && s.IsModerator()
}

// HasPermissionLevel reports whether the viewer's level is at least level
func (e *Evaluator) HasPermissionLevel(level int) bool {
	s, ok := e.ready()
	return ok && s.HasPermissionLevel(level)
}

// CanAny reports whether the viewer holds at least one of permissions
func (e *Evaluator) CanAny(permissions ...string) bool {
	s, ok := e.ready()
	return ok && s.CanAny(permissions...)
}

// CanAll reports whether the viewer holds every one of permissions.
// Like every decision it is false until a snapshot is ready, even for an empty list.
func (e *Evaluator) CanAll(permissions ...string) bool {
	s, ok := e.ready()
	return ok && s.CanAll(permissions...)
}

// UserRoles returns the viewer's roles, or nil until ready
func (e *Evaluator) UserRoles() []Role {
	s, ok := e.ready()
	if !ok {
		return nil
	}
	roles := make([]Role, len(s.UserRoles))
	copy(roles, s.UserRoles)
	return roles
}

// MaxPermissionLevel returns the viewer's level, or 0 until ready
func (e *Evaluator) MaxPermissionLevel() int {
	s, ok := e.ready()
	if !ok {
		return 0
	}
	return s.MaxPermissionLevel
}

// View is the serializable summary of an evaluator
type View struct {
	ServerID           string          `json:"server_id"`
	State              string          `json:"state"`
	Loading            bool            `json:"loading"`
	Error              string          `json:"error,omitempty"`
	ErrorKind          Kind            `json:"error_kind,omitempty"`
	UserPermissions    map[string]bool `json:"user_permissions"`
	UserRoles          []Role          `json:"user_roles"`
	MaxPermissionLevel int             `json:"max_permission_level"`
	IsAdmin            bool            `json:"is_admin"`
	IsModerator        bool            `json:"is_moderator"`
}

// View returns a consistent summary of the evaluator
func (e *Evaluator) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := View{
		ServerID:        e.serverID,
		State:           e.state.String(),
		Loading:         e.state == StateLoading,
		UserPermissions: map[string]bool{},
		UserRoles:       []Role{},
	}
	if e.err != nil {
		v.Error = e.err.Message()
		v.ErrorKind = e.err.Kind
	}
	if e.state == StateReady {
		s := e.snapshot
		for name, granted := range s.UserPermissions {
			v.UserPermissions[name] = granted
		}
		v.UserRoles = append(v.UserRoles, s.UserRoles...)
		v.MaxPermissionLevel = s.MaxPermissionLevel
		v.IsAdmin = s.IsAdmin()
		v.IsModerator = s.IsModerator()
	}
	return v
}
