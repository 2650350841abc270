// ABOUTME: Tests for built-in plugin registration and per-plugin contracts.
// ABOUTME: Every plugin must be self-consistent, render content and build valid settings.

package builtin

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/2389/teamhub/plugins/core"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *core.Registry {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	reg := core.NewRegistry(log)
	require.NoError(t, Register(reg))
	return reg
}

func TestRegisterCoversEveryKnownType(t *testing.T) {
	reg := newRegistry(t)

	assert.Equal(t, core.KnownTypes(), reg.Types())
	for _, ct := range core.KnownTypes() {
		p, ok := reg.Get(ct)
		require.True(t, ok, "no plugin for %q", ct)
		assert.Equal(t, ct, p.Meta().Type, "plugin registered under %q reports another type", ct)
	}
}

func TestPluginMetadataIsComplete(t *testing.T) {
	for _, p := range Plugins() {
		meta := p.Meta()
		t.Run(string(meta.Type), func(t *testing.T) {
			assert.NotEmpty(t, meta.Name)
			assert.NotEmpty(t, meta.Description)
			assert.NotEmpty(t, meta.Icon)
			assert.NotEmpty(t, meta.Color)
		})
	}
}

func TestEveryPluginRendersContent(t *testing.T) {
	ch := core.Channel{ID: "c1", ServerID: "s1", Name: "general <b>"}
	for _, p := range Plugins() {
		meta := p.Meta()
		t.Run(string(meta.Type), func(t *testing.T) {
			ch.Type = meta.Type
			got := string(p.RenderContent(context.Background(), ch))

			assert.Contains(t, got, `data-channel-id="c1"`)
			assert.Contains(t, got, "channel-"+string(meta.Type))
			assert.Contains(t, got, "general &lt;b&gt;")
			assert.NotContains(t, got, "general <b>")
		})
	}
}

func TestEveryCreateFormBuildsDefaults(t *testing.T) {
	for _, p := range Plugins() {
		cp, ok := p.(core.CreateFormProvider)
		if !ok {
			continue
		}
		meta := p.Meta()
		t.Run(string(meta.Type), func(t *testing.T) {
			form := cp.CreateForm()
			require.NotNil(t, form.Build)
			require.NotEmpty(t, form.Fields)

			values := url.Values{}
			for _, f := range form.Fields {
				if f.Type != "checkbox" && f.Default != "" {
					values.Set(f.Name, f.Default)
				}
			}
			settings, err := form.Build(values)
			require.NoError(t, err)
			assert.NotEmpty(t, settings)
		})
	}
}

func TestCreateFormValidation(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		ct     core.ChannelType
		values url.Values
		want   core.Settings
		errMsg string
	}{
		{ct: core.TypeFileShare, values: url.Values{"max_file_size": {"100"}, "allowed_extensions": {" .PDF, png ,"}},
			want: core.Settings{"max_file_size": 100, "allowed_extensions": "pdf,png"}},
		{ct: core.TypeFileShare, values: url.Values{"max_file_size": {"0"}}, errMsg: "max_file_size"},
		{ct: core.TypeCalendar, values: url.Values{"all_day": {"true"}, "timezone": {"Europe/Berlin"}},
			want: core.Settings{"all_day": true, "timezone": "Europe/Berlin"}},
		{ct: core.TypeCalendar, values: url.Values{"timezone": {"Mars/Olympus"}}, errMsg: "unknown time zone"},
		{ct: core.TypeProject, values: url.Values{"columns": {"Backlog, backlog, Done"}},
			want: core.Settings{"columns": "Backlog,Done"}},
		{ct: core.TypeProject, values: url.Values{"columns": {"Only"}}, errMsg: "two columns"},
		{ct: core.TypeBudget, values: url.Values{"currency": {"XYZ"}}, errMsg: "currency"},
		{ct: core.TypeWhiteboard, values: url.Values{"background": {"dots"}}, want: core.Settings{"background": "dots"}},
		{ct: core.TypeVoice, values: url.Values{"max_participants": {"1"}}, errMsg: "max_participants"},
	}

	for _, tt := range tests {
		t.Run(string(tt.ct), func(t *testing.T) {
			p, _ := reg.Get(tt.ct)
			settings, err := p.(core.CreateFormProvider).CreateForm().Build(tt.values)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, settings)
		})
	}
}

func TestOptionalCapabilities(t *testing.T) {
	reg := newRegistry(t)

	text, _ := reg.Get(core.TypeText)
	assert.False(t, core.HasCreateForm(text), "text channels are created with name and description only")

	wiki, _ := reg.Get(core.TypeWiki)
	assert.False(t, core.HasCreateForm(wiki))
	assert.True(t, core.HasSettings(wiki))

	voice, _ := reg.Get(core.TypeVoice)
	assert.True(t, core.HasSidebarIcon(voice))
}

func TestContentReflectsSettings(t *testing.T) {
	reg := newRegistry(t)
	d := core.NewDispatcher(reg, nil)
	ctx := context.Background()

	fs := string(d.RenderContent(ctx, core.Channel{ID: "f", Type: core.TypeFileShare, Settings: core.Settings{"max_file_size": float64(100)}}))
	assert.Contains(t, fs, "Uploads up to 100 MB")

	budget := string(d.RenderContent(ctx, core.Channel{ID: "b", Type: core.TypeBudget, Settings: core.Settings{"currency": "EUR", "monthly_limit": float64(12000)}}))
	assert.Contains(t, budget, "Limit 12,000 EUR / month")

	wiki := string(d.RenderContent(ctx, core.Channel{ID: "w", Type: core.TypeWiki, Description: "# Handbook\n\n*Read me*"}))
	assert.Contains(t, wiki, "<h1>Handbook</h1>")
	assert.Contains(t, wiki, "<em>Read me</em>")

	forum := string(d.RenderContent(ctx, core.Channel{ID: "fo", ServerID: "s", Type: core.TypeForum, Settings: core.Settings{"default_sort": "top"}}))
	assert.Contains(t, forum, `data-sort="top"`)
	assert.Contains(t, forum, "threads?sort=top")

	board := string(d.RenderContent(ctx, core.Channel{ID: "p", Type: core.TypeProject, Settings: core.Settings{"columns": "Ideas,Shipped"}}))
	assert.Equal(t, 2, strings.Count(board, "board-column"))

	icon := string(d.RenderSidebarIcon(core.Channel{Type: core.TypeVoice, Settings: core.Settings{"max_participants": float64(8)}}))
	assert.Contains(t, icon, "icon-volume-2")
	assert.Contains(t, icon, ">8<")
}
