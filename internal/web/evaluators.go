// ABOUTME: Per-request access to cached permission evaluators.
// ABOUTME: Mounting refreshes the snapshot; settled fetches feed metrics and the fetch log.

package web

import (
	"context"
	"net/http"

	"github.com/2389/teamhub/internal/auth"
	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/internal/sessions"
	"github.com/2389/teamhub/internal/store"
)

func (s *Server) newEvaluator(v auth.Viewer) sessions.Factory {
	return func(key sessions.Key) *rbac.Evaluator {
		return rbac.NewEvaluator(key.ServerID, s.backend.SnapshotFetcher(v.Token),
			rbac.WithLogger(s.log),
			rbac.WithOutcomeHook(func(o rbac.Outcome) { s.observeFetch(v, o) }))
	}
}

func (s *Server) observeFetch(v auth.Viewer, o rbac.Outcome) {
	if s.metrics != nil {
		s.metrics.ObserveFetch(o)
	}
	if s.store == nil {
		return
	}
	outcome := "ok"
	if o.Err != nil {
		outcome = string(o.Err.Kind)
	}
	err := s.store.RecordFetch(&store.FetchLog{
		ServerID:   o.ServerID,
		Viewer:     v.ID,
		Generation: o.Generation,
		Outcome:    outcome,
		Stale:      o.Stale,
		DurationMs: int(o.Duration.Milliseconds()),
	})
	if err != nil {
		s.log.WithError(err).WithField("server_id", o.ServerID).Warn("failed to record permission fetch")
	}
}

// evaluator returns the viewer's cached evaluator for serverID, creating it if needed
func (s *Server) evaluator(r *http.Request, serverID string) (*rbac.Evaluator, bool) {
	v := auth.ViewerFromContext(r.Context())
	return s.sessions.Acquire(sessions.Key{ServerID: serverID, Viewer: v.ID}, s.newEvaluator(v))
}

// mount makes sure the viewer has a usable snapshot and waits up to snapshotWait for it.
// A fetch starts only for a new evaluator or a snapshot older than snapshotAge; an
// in-flight fetch is joined. The fetch outlives the request so polling
// placeholders can observe it settle.
func (s *Server) mount(r *http.Request, serverID string) *rbac.Evaluator {
	ev, created := s.evaluator(r, serverID)
	if created || ev.NeedsRefresh(s.snapshotAge) {
		ev.Refresh(context.WithoutCancel(r.Context()))
	}
	s.await(r.Context(), ev)
	return ev
}

// reload always starts a new fetch and waits up to snapshotWait for it
func (s *Server) reload(r *http.Request, serverID string) *rbac.Evaluator {
	ev, _ := s.evaluator(r, serverID)
	ev.Refresh(context.WithoutCancel(r.Context()))
	s.await(r.Context(), ev)
	return ev
}

func (s *Server) await(ctx context.Context, ev *rbac.Evaluator) {
	if s.snapshotWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.snapshotWait)
	defer cancel()
	ev.Wait(ctx)
}

// gatesFor binds gates to ev with polling placeholders for serverID
func (s *Server) gatesFor(ev gates.Decider, serverID string) *gates.Gates {
	opts := []gates.Option{gates.WithPolling(serverPath(serverID, "gates"))}
	if s.metrics != nil {
		opts = append(opts, gates.WithObserver(s.metrics.ObserveGate))
	}
	return gates.New(ev, opts...)
}
