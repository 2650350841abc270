// ABOUTME: Role and member administration screens and the role assignment action.
// ABOUTME: Listings sit behind the admin and moderator gates; assignment requires manage_roles.

package web

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/2389/teamhub/internal/auth"
	apierrors "github.com/2389/teamhub/internal/errors"
	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// unavailable is shown in place of gated content when the snapshot fetch failed
const unavailable template.HTML = `<p class="permissions-unavailable text-sm text-gray-500">Permissions unavailable. Reload the page to try again.</p>`

// deniedOrUnavailable picks the fallback for a gate: the neutral notice after a
// failed fetch, the access denied notice otherwise
func deniedOrUnavailable(ev *rbac.Evaluator, what string) template.HTML {
	if ev.State() == rbac.StateError {
		return unavailable
	}
	return gates.Denied(what)
}

func (s *Server) adminRoles(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.mount(r, serverID)
	v := auth.ViewerFromContext(r.Context())

	var table template.HTML
	if gates.Decide(ev, gates.KindAdmin, "") == gates.OutcomeAllowed {
		roles, err := s.backend.ListRoles(r.Context(), v.Token, serverID)
		if err != nil {
			s.log.WithError(err).WithField("server_id", serverID).Warn("failed to list roles")
			status, msg := backendFailure(err, "server")
			renderError(w, status, serverID, msg)
			return
		}
		table = renderRoleTable(roles)
	}

	g := s.gatesFor(ev, serverID)
	renderPage(w, http.StatusOK, "roles", g, page{
		Title:    "Roles",
		ServerID: serverID,
		Viewer:   v.ID,
		Data:     bodyData{Body: g.Admin(table, deniedOrUnavailable(ev, "manage roles"))},
	})
}

func (s *Server) adminMembers(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.mount(r, serverID)
	v := auth.ViewerFromContext(r.Context())
	g := s.gatesFor(ev, serverID)

	var table template.HTML
	if gates.Decide(ev, gates.KindModerator, "") == gates.OutcomeAllowed {
		members, err := s.backend.ListMembers(r.Context(), v.Token, serverID)
		if err != nil {
			s.log.WithError(err).WithField("server_id", serverID).Warn("failed to list members")
			status, msg := backendFailure(err, "server")
			renderError(w, status, serverID, msg)
			return
		}

		var roles []rbac.Role
		if gates.Decide(ev, gates.KindCan, rbac.PermManageRoles) == gates.OutcomeAllowed {
			roles, err = s.backend.ListRoles(r.Context(), v.Token, serverID)
			if err != nil {
				// Listing still works without the assignment form
				s.log.WithError(err).WithField("server_id", serverID).Warn("failed to list roles for assignment")
			}
		}
		table = renderMemberTable(g, serverID, members, roles)
	}

	renderPage(w, http.StatusOK, "members", g, page{
		Title:    "Members",
		ServerID: serverID,
		Viewer:   v.ID,
		Data:     bodyData{Body: g.Moderator(table, deniedOrUnavailable(ev, "view members"))},
	})
}

func (s *Server) assignRoles(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	memberID := chi.URLParam(r, "memberID")
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Could not read the form")
		return
	}

	if !s.authorize(w, r, serverID, rbac.PermManageRoles) {
		return
	}

	var roleIDs []string
	for _, id := range r.PostForm["role_id"] {
		if id = strings.TrimSpace(id); id != "" {
			roleIDs = append(roleIDs, id)
		}
	}

	v := auth.ViewerFromContext(r.Context())
	if _, err := s.backend.AssignRoles(r.Context(), v.Token, serverID, memberID, roleIDs); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"server_id": serverID,
			"member_id": memberID,
		}).Warn("failed to assign roles")
		status, msg := backendFailure(err, "member")
		apierrors.WriteError(w, status, apierrors.ErrUpstream, msg)
		return
	}

	// Any viewer's cached snapshot for this server may now be out of date
	dropped := s.sessions.ForgetServer(serverID)
	s.log.WithFields(logrus.Fields{
		"server_id": serverID,
		"member_id": memberID,
		"roles":     len(roleIDs),
		"dropped":   dropped,
	}).Info("member roles assigned")

	redirect(w, r, serverPath(serverID, "admin", "members"))
}
