// ABOUTME: End-to-end tests for the web server against a fake backend.
// ABOUTME: Exercises channel pages, create flow, admin screens, permission JSON and gate polling.

package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389/teamhub/internal/backend"
	"github.com/2389/teamhub/internal/metrics"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/internal/sessions"
	"github.com/2389/teamhub/internal/store"
	"github.com/2389/teamhub/plugins/builtin"
	"github.com/2389/teamhub/plugins/core"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken  = "user:admin"
	modToken    = "user:mod"
	guestToken  = "user:guest"
	brokenToken = "user:broken"
	slowToken   = "user:slow"
)

var snapshots = map[string]string{
	adminToken: `{"user_permissions":{"manage_server":true,"manage_channels":true,"manage_roles":true},
		"user_roles":[{"id":"r-admin","name":"Admin","permission_level":100}],"max_permission_level":100}`,
	modToken: `{"user_permissions":{"manage_members":true},
		"user_roles":[{"id":"r-mod","name":"Moderator","permission_level":50}],"max_permission_level":50}`,
	guestToken: `{"user_permissions":{},"user_roles":[],"max_permission_level":0}`,
	slowToken:  `{"user_permissions":{"manage_channels":true},"user_roles":[],"max_permission_level":10}`,
}

var testRoles = []rbac.Role{
	{ID: "r-member", Name: "Member", PermissionLevel: 0, DefaultRole: true, MemberCount: 1200},
	{ID: "r-admin", Name: "Admin", Color: "#dc2626", PermissionLevel: 100, MemberCount: 1,
		Permissions: []rbac.Permission{{Name: "manage_server", HasPermission: true}}},
	{ID: "r-mod", Name: "Moderator", PermissionLevel: 50, MemberCount: 3},
}

type fakeBackend struct {
	mu       sync.Mutex
	created  []core.CreateRequest
	assigned map[string][]string
	hold     chan struct{}
	fetches  atomic.Int32
}

func (f *fakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	token := func(r *http.Request) string {
		return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	r.Get("/servers/{sid}/members/me", func(w http.ResponseWriter, r *http.Request) {
		t := token(r)
		f.fetches.Add(1)
		if t == slowToken {
			<-f.hold
		}
		if t == brokenToken {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		snap, ok := snapshots[t]
		if !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, snap)
	})
	r.Get("/servers/{sid}/channels/{cid}", func(w http.ResponseWriter, r *http.Request) {
		channels := map[string]core.Channel{
			"c-text":     {ID: "c-text", Name: "general", Type: core.TypeText},
			"c-calendar": {ID: "c-calendar", Name: "events", Type: core.TypeCalendar},
			"c-legacy":   {ID: "c-legacy", Name: "old", Type: "legacy-chat"},
		}
		ch, ok := channels[chi.URLParam(r, "cid")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		ch.ServerID = chi.URLParam(r, "sid")
		_ = json.NewEncoder(w).Encode(ch)
	})
	r.Post("/servers/{sid}/channels", func(w http.ResponseWriter, r *http.Request) {
		var req core.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		if req.Name == "boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.mu.Lock()
		f.created = append(f.created, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(core.Channel{ID: "c-new", Name: req.Name, Type: req.Type, Settings: req.Settings})
	})
	r.Get("/servers/{sid}/roles", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(testRoles)
	})
	r.Get("/servers/{sid}/members", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rbac.Member{
			{ID: "m-1", UserID: "u-1", DisplayName: "Ada", Roles: []rbac.Role{testRoles[1]}, JoinedAt: time.Now().Add(-48 * time.Hour)},
			{ID: "m-2", UserID: "u-2", DisplayName: "Grace <script>", Email: "grace@example.com"},
		})
	})
	r.Put("/servers/{sid}/members/{mid}/roles", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RoleIDs []string `json:"role_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.assigned[chi.URLParam(r, "mid")] = body.RoleIDs
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(rbac.Member{ID: chi.URLParam(r, "mid")})
	})
	return r
}

type testEnv struct {
	srv      *httptest.Server
	backend  *fakeBackend
	metrics  *metrics.Metrics
	sessions *sessions.Store
	store    *store.Store
	release  func()
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEnv(t *testing.T, snapshotWait time.Duration) *testEnv {
	t.Helper()
	log := quietLogger()

	fb := &fakeBackend{assigned: map[string][]string{}, hold: make(chan struct{})}
	backendSrv := httptest.NewServer(fb.routes())
	t.Cleanup(backendSrv.Close)
	var once sync.Once
	release := func() { once.Do(func() { close(fb.hold) }) }
	t.Cleanup(release)

	client, err := backend.New(backendSrv.URL, backend.WithLogger(log), backend.WithTimeout(5*time.Second))
	require.NoError(t, err)

	st, err := store.New(filepath.Join(t.TempDir(), "teamhub.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := core.NewRegistry(log)
	require.NoError(t, builtin.Register(reg))

	sess := sessions.New(64, time.Minute, log)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	s := New(Options{
		Registry:     reg,
		Backend:      client,
		Sessions:     sess,
		Metrics:      m,
		Store:        st,
		Logger:       log,
		SnapshotWait: snapshotWait,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, backend: fb, metrics: m, sessions: sess, store: st, release: release}
}

type result struct {
	status int
	header http.Header
	body   string
}

func (e *testEnv) do(t *testing.T, method, path, token string, form url.Values, headers ...string) result {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: string(b)}
}

func TestHealthzAndChannelTypes(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `"channel_types":13`)

	res = env.do(t, http.MethodGet, "/channel-types", "", nil)
	require.Equal(t, http.StatusOK, res.status)

	var types []struct {
		Type          string `json:"type"`
		HasCreateForm bool   `json:"has_create_form"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.body), &types))
	require.Len(t, types, 13)
	assert.Equal(t, "text", types[0].Type)

	for _, ct := range types {
		if ct.Type == "calendar" {
			assert.True(t, ct.HasCreateForm)
		}
	}
}

func TestServerRoutesRequireViewer(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/channels/c-text", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, `"code":"unauthorized"`)
}

func TestChannelPage(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	settingsHref := `href="/servers/s1/channels/c-text/settings"`

	t.Run("admin sees settings link and admin nav", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/channels/c-text", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, "general")
		assert.Contains(t, res.body, settingsHref)
		assert.Contains(t, res.body, `href="/servers/s1/admin/roles"`)
		assert.NotContains(t, res.body, "gate-loading")
	})

	t.Run("guest gets content without settings link", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/channels/c-text", guestToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, "general")
		assert.NotContains(t, res.body, settingsHref)
		assert.NotContains(t, res.body, `href="/servers/s1/admin/roles"`)
	})

	t.Run("failed snapshot fails closed", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/channels/c-text", brokenToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.NotContains(t, res.body, settingsHref)
		assert.NotContains(t, res.body, "gate-loading")
	})

	t.Run("unknown channel is a 404 page", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/channels/nope", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, res.status)
		assert.Contains(t, res.body, "does not exist")
	})

	fetches, err := env.store.RecentFetches("s1", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, fetches)
}

func TestChannelPageUnsupportedType(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/channels/c-legacy", guestToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Unsupported channel type: legacy-chat")
	assert.GreaterOrEqual(t, testutil.ToFloat64(env.metrics.DispatchFallbacksTotal.WithLabelValues("other")), 1.0)
}

func TestChannelSettingsGated(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/channels/c-calendar/settings", guestToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Access denied")

	res = env.do(t, http.MethodGet, "/servers/s1/channels/c-calendar/settings", adminToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.NotContains(t, res.body, "Access denied")
	assert.Contains(t, res.body, `href="/servers/s1/channels/c-calendar"`)
}

func TestNewChannelForm(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/channels/new?type=calendar", adminToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `data-channel-type="wiki"`)
	assert.Contains(t, res.body, `name="timezone"`)
	assert.Contains(t, res.body, `action="/servers/s1/channels"`)

	res = env.do(t, http.MethodGet, "/servers/s1/channels/new?type=legacy-chat", adminToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Unsupported channel type: legacy-chat")

	res = env.do(t, http.MethodGet, "/servers/s1/channels/new", guestToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Access denied")
	assert.NotContains(t, res.body, "channel-type-picker")
}

func TestCreateChannel(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		form     url.Values
		headers  []string
		status   int
		location string
		hxTarget string
		created  bool
	}{
		{
			name:     "creates and redirects to the channel",
			token:    adminToken,
			form:     url.Values{"type": {"calendar"}, "name": {"events"}, "timezone": {"UTC"}},
			status:   http.StatusSeeOther,
			location: "/servers/s1/channels/c-new",
			created:  true,
		},
		{
			name:     "htmx requests get HX-Redirect",
			token:    adminToken,
			form:     url.Values{"type": {"text"}, "name": {"chat"}},
			headers:  []string{"HX-Request", "true"},
			status:   http.StatusNoContent,
			hxTarget: "/servers/s1/channels/c-new",
			created:  true,
		},
		{
			name:     "cancel returns to the picker",
			token:    adminToken,
			form:     url.Values{"type": {"text"}, "_action": {"cancel"}},
			status:   http.StatusSeeOther,
			location: "/servers/s1/channels/new",
		},
		{
			name:   "missing name",
			token:  adminToken,
			form:   url.Values{"type": {"text"}, "name": {"  "}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unsupported type",
			token:  adminToken,
			form:   url.Values{"type": {"legacy-chat"}, "name": {"old"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid settings",
			token:  adminToken,
			form:   url.Values{"type": {"calendar"}, "name": {"events"}, "timezone": {"Mars/Olympus"}},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "backend failure",
			token:  adminToken,
			form:   url.Values{"type": {"text"}, "name": {"boom"}},
			status: http.StatusBadGateway,
		},
		{
			name:   "viewer without manage_channels",
			token:  guestToken,
			form:   url.Values{"type": {"text"}, "name": {"chat"}},
			status: http.StatusForbidden,
		},
		{
			name:   "permissions unavailable",
			token:  brokenToken,
			form:   url.Values{"type": {"text"}, "name": {"chat"}},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 2*time.Second)

			res := env.do(t, http.MethodPost, "/servers/s1/channels", tt.token, tt.form, tt.headers...)
			assert.Equal(t, tt.status, res.status, res.body)
			if tt.location != "" {
				assert.Equal(t, tt.location, res.header.Get("Location"))
			}
			if tt.hxTarget != "" {
				assert.Equal(t, tt.hxTarget, res.header.Get("HX-Redirect"))
			}

			env.backend.mu.Lock()
			defer env.backend.mu.Unlock()
			if tt.created {
				require.Len(t, env.backend.created, 1)
				assert.Equal(t, tt.form.Get("name"), env.backend.created[0].Name)
			} else {
				assert.Empty(t, env.backend.created)
			}
		})
	}
}

func TestCreateChannelSendsSettings(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	form := url.Values{"type": {"calendar"}, "name": {"events"}, "timezone": {"Europe/Berlin"}, "all_day": {"on"}}
	res := env.do(t, http.MethodPost, "/servers/s1/channels", adminToken, form)
	require.Equal(t, http.StatusSeeOther, res.status)

	require.Len(t, env.backend.created, 1)
	req := env.backend.created[0]
	assert.Equal(t, core.TypeCalendar, req.Type)
	assert.Equal(t, "Europe/Berlin", req.Settings["timezone"])
	assert.Equal(t, true, req.Settings["all_day"])
}

func TestAdminRoles(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/admin/roles", adminToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `data-role-id="r-admin"`)
	assert.Contains(t, res.body, "1,200")
	assert.Less(t, strings.Index(res.body, `data-role-id="r-admin"`), strings.Index(res.body, `data-role-id="r-mod"`))

	res = env.do(t, http.MethodGet, "/servers/s1/admin/roles", modToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Access denied")
	assert.NotContains(t, res.body, "data-role-id")

	res = env.do(t, http.MethodGet, "/servers/s1/admin/roles", brokenToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Permissions unavailable")
}

func TestAdminMembers(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	t.Run("moderator sees members without assignment", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/admin/members", modToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, `data-member-id="m-1"`)
		assert.Contains(t, res.body, "Grace &lt;script&gt;")
		assert.Contains(t, res.body, "2 days ago")
		assert.NotContains(t, res.body, `name="role_id"`)
	})

	t.Run("admin can assign roles", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/admin/members", adminToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, `action="/servers/s1/admin/members/m-2/roles"`)
		assert.Contains(t, res.body, `name="role_id" value="r-admin" checked`)
	})

	t.Run("guest is denied", func(t *testing.T) {
		res := env.do(t, http.MethodGet, "/servers/s1/admin/members", guestToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, "Access denied")
		assert.NotContains(t, res.body, "data-member-id")
	})
}

func TestAssignRoles(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	// Warm a second viewer's evaluator so the assignment has something to invalidate
	env.do(t, http.MethodGet, "/servers/s1/permissions", guestToken, nil)
	require.Equal(t, 1, env.sessions.Len())

	form := url.Values{"role_id": {"r-mod", " ", "r-member"}}
	res := env.do(t, http.MethodPost, "/servers/s1/admin/members/m-2/roles", adminToken, form)
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/servers/s1/admin/members", res.header.Get("Location"))

	assert.Equal(t, []string{"r-mod", "r-member"}, env.backend.assigned["m-2"])
	assert.Equal(t, 0, env.sessions.Len())

	res = env.do(t, http.MethodPost, "/servers/s1/admin/members/m-2/roles", modToken, form)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestPermissionsView(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/permissions", adminToken, nil)
	require.Equal(t, http.StatusOK, res.status)

	var view rbac.View
	require.NoError(t, json.Unmarshal([]byte(res.body), &view))
	assert.Equal(t, "ready", view.State)
	assert.True(t, view.IsAdmin)
	assert.True(t, view.IsModerator)
	assert.Equal(t, 100, view.MaxPermissionLevel)
	assert.True(t, view.UserPermissions["manage_roles"])

	res = env.do(t, http.MethodPost, "/servers/s1/permissions/refresh", adminToken, nil)
	assert.Equal(t, http.StatusOK, res.status)

	res = env.do(t, http.MethodGet, "/servers/s1/permissions", brokenToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	view = rbac.View{}
	require.NoError(t, json.Unmarshal([]byte(res.body), &view))
	assert.Equal(t, "error", view.State)
	assert.Equal(t, rbac.KindStatus, view.ErrorKind)
	assert.False(t, view.IsAdmin)
	assert.Empty(t, view.UserPermissions)
}

func TestGatePollingUntilReady(t *testing.T) {
	env := newTestEnv(t, 0)

	res := env.do(t, http.MethodGet, "/servers/s1/channels/c-text", slowToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `hx-get="/servers/s1/gates/can?arg=manage_channels"`)
	assert.NotContains(t, res.body, "Access denied")

	res = env.do(t, http.MethodGet, "/servers/s1/gates/can?arg=manage_channels", slowToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "gate-loading")
	assert.Empty(t, res.header.Get("HX-Refresh"))

	res = env.do(t, http.MethodPost, "/servers/s1/permissions/refresh", slowToken, nil)
	assert.Equal(t, http.StatusAccepted, res.status)

	env.release()

	require.Eventually(t, func() bool {
		res = env.do(t, http.MethodGet, "/servers/s1/gates/can?arg=manage_channels", slowToken, nil)
		return res.header.Get("HX-Refresh") == "true"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, res.body, `data-outcome="allowed"`)

	// The reload htmx performs next renders the settled snapshot instead of
	// starting another fetch and showing the placeholder again.
	fetched := env.backend.fetches.Load()
	res = env.do(t, http.MethodGet, "/servers/s1/channels/c-text", slowToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `href="/servers/s1/channels/c-text/settings"`)
	assert.NotContains(t, res.body, "gate-loading")
	assert.Equal(t, fetched, env.backend.fetches.Load())

	assert.GreaterOrEqual(t, testutil.ToFloat64(env.metrics.GateDecisionsTotal.WithLabelValues("can", "loading")), 1.0)
}

func TestCreateChannelWhileSnapshotPending(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	form := url.Values{"type": {"text"}, "name": {"chat"}}

	res := env.do(t, http.MethodPost, "/servers/s1/channels", slowToken, form)
	assert.Equal(t, http.StatusServiceUnavailable, res.status, res.body)
	assert.Contains(t, res.body, "permissions_pending")

	env.release()
	require.Eventually(t, func() bool {
		res = env.do(t, http.MethodGet, "/servers/s1/gates/can?arg=manage_channels", slowToken, nil)
		return res.header.Get("HX-Refresh") == "true"
	}, 5*time.Second, 20*time.Millisecond)

	res = env.do(t, http.MethodPost, "/servers/s1/channels", slowToken, form)
	assert.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/servers/s1/channels/c-new", res.header.Get("Location"))
}

func TestGatePollUnknownKind(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)

	res := env.do(t, http.MethodGet, "/servers/s1/gates/superuser", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}
