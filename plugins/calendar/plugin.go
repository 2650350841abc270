// ABOUTME: Calendar channel plugin.
// ABOUTME: Creation settings cover the all-day default and the channel time zone.

package calendar

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // time zone validation without relying on the host database

	"github.com/2389/teamhub/plugins/core"
)

const defaultTimezone = "UTC"

// Plugin implements the calendar channel type
type Plugin struct{}

// New creates the calendar channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeCalendar,
		Name:        "Calendar",
		Description: "Plan events and keep track of deadlines",
		Icon:        "calendar",
		Color:       "blue",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "all_day", Type: "checkbox", Display: "New events are all-day by default"},
			{Name: "timezone", Type: "string", Display: "Time zone", Default: defaultTimezone},
		},
		Build: buildSettings,
	}
}

func buildSettings(values url.Values) (core.Settings, error) {
	tz := strings.TrimSpace(values.Get("timezone"))
	if tz == "" {
		tz = defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("unknown time zone %q", tz)
	}
	return core.Settings{
		"all_day":  core.FormBool(values, "all_day"),
		"timezone": tz,
	}, nil
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	tz := core.SettingString(ch.Settings, "timezone", defaultTimezone)
	header := fmt.Sprintf(`<span class="ml-auto text-xs text-gray-500">%s</span>`, html.EscapeString(tz))

	shell := core.ContentShell{
		Resource: "events",
		Poll:     30 * time.Second,
		Header:   template.HTML(header),
		Body:     template.HTML(`<div class="calendar-grid grid grid-cols-7 gap-px"></div>`),
	}
	return shell.Render(p.Meta(), ch)
}

func (p *Plugin) RenderSettings(ctx context.Context, ch core.Channel) template.HTML {
	allDay := "No"
	if core.SettingBool(ch.Settings, "all_day") {
		allDay = "Yes"
	}
	return template.HTML(fmt.Sprintf(`<dl class="divide-y divide-gray-200">`+
		`<div class="py-2 grid grid-cols-3"><dt class="text-sm text-gray-500">All-day default</dt><dd class="col-span-2 text-sm">%s</dd></div>`+
		`<div class="py-2 grid grid-cols-3"><dt class="text-sm text-gray-500">Time zone</dt><dd class="col-span-2 text-sm">%s</dd></div>`+
		`</dl>`, allDay, html.EscapeString(core.SettingString(ch.Settings, "timezone", defaultTimezone))))
}
