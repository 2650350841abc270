// ABOUTME: Permission endpoints: the evaluator view, explicit refresh and gate polling fragments.
// ABOUTME: Also holds the authorization check used by mutating handlers.

package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/2389/teamhub/internal/auth"
	apierrors "github.com/2389/teamhub/internal/errors"
	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/internal/sessions"
	"github.com/go-chi/chi/v5"
)

// authorize checks permission against one read of the viewer's snapshot and
// writes the error response when the viewer may not proceed
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, serverID, permission string) bool {
	res, state := s.mount(r, serverID).Result()

	switch state {
	case rbac.StateLoading:
		apierrors.WriteError(w, http.StatusServiceUnavailable, apierrors.ErrPermissionsPending,
			"Permissions are still loading, try again")
		return false
	case rbac.StateError:
		apierrors.WriteFetchError(w, res.Err)
		return false
	}

	if state != rbac.StateReady || !res.Snapshot.Can(permission) {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrForbidden,
			fmt.Sprintf("You need the %s permission", permission))
		return false
	}
	return true
}

func (s *Server) permissions(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev, created := s.evaluator(r, serverID)
	if created {
		ev.Refresh(context.WithoutCancel(r.Context()))
		s.await(r.Context(), ev)
	}
	writeJSON(w, http.StatusOK, ev.View())
}

func (s *Server) refreshPermissions(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.reload(r, serverID)

	status := http.StatusOK
	if ev.Loading() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, ev.View())
}

// gatePoll answers a loading placeholder. While the snapshot is still loading it
// returns another placeholder; once settled it asks htmx to reload the page.
func (s *Server) gatePoll(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	kind, ok := gates.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "Unknown gate kind")
		return
	}
	arg := r.URL.Query().Get("arg")

	v := auth.ViewerFromContext(r.Context())
	ev, found := s.sessions.Lookup(sessions.Key{ServerID: serverID, Viewer: v.ID})
	if !found {
		// The cached evaluator expired; start over without blocking the poll
		ev, _ = s.evaluator(r, serverID)
		ev.Refresh(context.WithoutCancel(r.Context()))
	}

	outcome := gates.Decide(ev, kind, arg)
	if s.metrics != nil {
		s.metrics.ObserveGate(kind, outcome)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if outcome == gates.OutcomeLoading {
		_, _ = w.Write([]byte(gates.PollingPlaceholder(r.URL.RequestURI())))
		return
	}

	w.Header().Set("HX-Refresh", "true")
	frag := template.HTML(fmt.Sprintf(`<span data-gate="%s" data-outcome="%s"></span>`,
		template.HTMLEscapeString(string(kind)), template.HTMLEscapeString(string(outcome))))
	_, _ = w.Write([]byte(frag))
}
