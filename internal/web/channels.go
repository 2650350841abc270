// ABOUTME: Channel handlers: type listing, channel pages, settings and the create-channel flow.
// ABOUTME: All type-specific rendering goes through the plugin dispatcher's resolve-or-fallback policy.

package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/2389/teamhub/internal/auth"
	"github.com/2389/teamhub/internal/backend"
	apierrors "github.com/2389/teamhub/internal/errors"
	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/plugins/core"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// channelTypeInfo is one entry of GET /channel-types
type channelTypeInfo struct {
	core.ChannelPluginMeta
	HasCreateForm  bool `json:"has_create_form"`
	HasSettings    bool `json:"has_settings"`
	HasSidebarIcon bool `json:"has_sidebar_icon"`
}

func (s *Server) channelTypes(w http.ResponseWriter, r *http.Request) {
	plugins := s.registry.All()
	out := make([]channelTypeInfo, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, channelTypeInfo{
			ChannelPluginMeta: p.Meta(),
			HasCreateForm:     core.HasCreateForm(p),
			HasSettings:       core.HasSettings(p),
			HasSidebarIcon:    core.HasSidebarIcon(p),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type channelData struct {
	Channel      core.Channel
	Icon         template.HTML
	Content      template.HTML
	SettingsLink template.HTML
}

type settingsData struct {
	Channel core.Channel
	Icon    template.HTML
	Body    template.HTML
	Back    string
}

type bodyData struct {
	Body template.HTML
}

// loadChannel fetches the channel or renders the error page
func (s *Server) loadChannel(w http.ResponseWriter, r *http.Request, serverID string) (core.Channel, bool) {
	v := auth.ViewerFromContext(r.Context())
	channelID := chi.URLParam(r, "channelID")

	ch, err := s.backend.GetChannel(r.Context(), v.Token, serverID, channelID)
	if err != nil {
		status, msg := backendFailure(err, "channel")
		s.log.WithError(err).WithField("server_id", serverID).Warn("failed to load channel")
		renderError(w, status, serverID, msg)
		return core.Channel{}, false
	}
	if ch.ServerID == "" {
		ch.ServerID = serverID
	}
	return ch, true
}

func (s *Server) channelPage(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.mount(r, serverID)

	ch, ok := s.loadChannel(w, r, serverID)
	if !ok {
		return
	}

	g := s.gatesFor(ev, serverID)
	settingsLink := template.HTML(fmt.Sprintf(`<a class="text-blue-600 hover:underline" href="%s">Channel settings</a>`,
		template.HTMLEscapeString(serverPath(serverID, "channels", ch.ID, "settings"))))

	renderPage(w, http.StatusOK, "channel", g, page{
		Title:    ch.Name,
		ServerID: serverID,
		Viewer:   auth.ViewerFromContext(r.Context()).ID,
		Data: channelData{
			Channel:      ch,
			Icon:         s.dispatcher.RenderSidebarIcon(ch),
			Content:      s.dispatcher.RenderContent(r.Context(), ch),
			SettingsLink: g.Can(rbac.PermManageChannels, settingsLink, ""),
		},
	})
}

func (s *Server) channelSettings(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.mount(r, serverID)

	ch, ok := s.loadChannel(w, r, serverID)
	if !ok {
		return
	}

	g := s.gatesFor(ev, serverID)
	renderPage(w, http.StatusOK, "settings", g, page{
		Title:    ch.Name + " settings",
		ServerID: serverID,
		Viewer:   auth.ViewerFromContext(r.Context()).ID,
		Data: settingsData{
			Channel: ch,
			Icon:    s.dispatcher.RenderSidebarIcon(ch),
			Body: g.Can(rbac.PermManageChannels,
				s.dispatcher.RenderSettings(r.Context(), ch),
				gates.Denied("change this channel's settings")),
			Back: serverPath(serverID, "channels", ch.ID),
		},
	})
}

// typePicker lists the registered types as links to their create forms
func (s *Server) typePicker(serverID string, selected core.ChannelType) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<ul class="channel-type-picker grid grid-cols-2 gap-3 md:grid-cols-4">`)
	for _, meta := range s.registry.Metas() {
		cls := "border-gray-200"
		if meta.Type == selected {
			cls = "border-blue-500 ring-2 ring-blue-200"
		}
		href := serverPath(serverID, "channels", "new") + "?type=" + string(meta.Type)
		sb.WriteString(fmt.Sprintf(`<li><a class="flex items-center gap-2 rounded border p-3 %s" href="%s" data-channel-type="%s">%s<span><span class="block font-medium">%s</span><span class="block text-xs text-gray-500">%s</span></span></a></li>`,
			cls,
			template.HTMLEscapeString(href),
			template.HTMLEscapeString(string(meta.Type)),
			core.IconSpan(meta.Icon, meta.Color),
			template.HTMLEscapeString(meta.Name),
			template.HTMLEscapeString(meta.Description)))
	}
	sb.WriteString(`</ul>`)
	return template.HTML(sb.String())
}

func (s *Server) newChannel(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	ev := s.mount(r, serverID)

	body := s.typePicker(serverID, "")
	if t := core.ChannelType(strings.TrimSpace(r.URL.Query().Get("type"))); t != "" {
		body = s.typePicker(serverID, t) + s.dispatcher.RenderCreateForm(t, serverPath(serverID, "channels"))
	}

	g := s.gatesFor(ev, serverID)
	renderPage(w, http.StatusOK, "new-channel", g, page{
		Title:    "New channel",
		ServerID: serverID,
		Viewer:   auth.ViewerFromContext(r.Context()).ID,
		Data:     bodyData{Body: g.Can(rbac.PermManageChannels, body, gates.Denied("create channels"))},
	})
}

// submitError marks a failure from the backend rather than from form validation
type submitError struct{ err error }

func (e *submitError) Error() string { return e.err.Error() }
func (e *submitError) Unwrap() error { return e.err }

func (s *Server) createChannel(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Could not read the form")
		return
	}

	if !s.authorize(w, r, serverID, rbac.PermManageChannels) {
		return
	}

	v := auth.ViewerFromContext(r.Context())
	t := core.ChannelType(strings.TrimSpace(r.PostForm.Get("type")))

	var created *core.Channel
	cancelled := false
	err := s.dispatcher.SubmitCreateForm(t, r.PostForm,
		func(req core.CreateRequest) error {
			ch, err := s.backend.CreateChannel(r.Context(), v.Token, serverID, req)
			if err != nil {
				return &submitError{err: err}
			}
			created = &ch
			return nil
		},
		func() { cancelled = true })

	var unsupported *core.UnsupportedTypeError
	var backendErr *submitError
	switch {
	case errors.As(err, &unsupported):
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrUnsupportedType, unsupported.Error(), "type")
		return
	case errors.Is(err, core.ErrMissingName):
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Channel name is required", "name")
		return
	case errors.As(err, &backendErr):
		s.log.WithError(err).WithField("server_id", serverID).Warn("failed to create channel")
		status, msg := backendFailure(backendErr.err, "channel")
		apierrors.WriteError(w, status, apierrors.ErrUpstream, msg)
		return
	case err != nil:
		apierrors.WriteError(w, http.StatusUnprocessableEntity, apierrors.ErrValidationFailed, err.Error())
		return
	}

	target := serverPath(serverID, "channels", "new")
	if !cancelled && created != nil {
		target = serverPath(serverID, "channels", created.ID)
		s.log.WithFields(logrus.Fields{
			"server_id":    serverID,
			"channel_type": string(created.Type),
			"viewer":       v.ID,
		}).Info("channel created")
	}
	redirect(w, r, target)
}

// redirect sends htmx clients an HX-Redirect and browsers a 303
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// backendFailure maps a backend error onto a status and user-facing message
func backendFailure(err error, what string) (int, string) {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("That %s does not exist.", what)
	case errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden):
		return http.StatusForbidden, fmt.Sprintf("You do not have access to that %s.", what)
	default:
		return http.StatusBadGateway, "The server could not be reached. Try again shortly."
	}
}
