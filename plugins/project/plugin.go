// ABOUTME: Project/tasks channel plugin.
// ABOUTME: Renders a kanban board whose columns are chosen at creation time.

package project

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

const defaultColumns = "To do,In progress,Done"

// Plugin implements the project channel type
type Plugin struct{}

// New creates the project channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeProject,
		Name:        "Project",
		Description: "Track tasks on a shared board",
		Icon:        "kanban",
		Color:       "green",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "columns", Type: "string", Display: "Board columns (comma separated)", Default: defaultColumns},
		},
		Build: buildSettings,
	}
}

func buildSettings(values url.Values) (core.Settings, error) {
	raw := values.Get("columns")
	if strings.TrimSpace(raw) == "" {
		raw = defaultColumns
	}
	cols := splitColumns(raw)
	if len(cols) < 2 {
		return nil, fmt.Errorf("a board needs at least two columns")
	}
	return core.Settings{"columns": strings.Join(cols, ",")}, nil
}

func splitColumns(raw string) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		cols = append(cols, c)
	}
	return cols
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	var sb strings.Builder
	sb.WriteString(`<div class="board flex gap-4 overflow-x-auto">`)
	for _, col := range splitColumns(core.SettingString(ch.Settings, "columns", defaultColumns)) {
		sb.WriteString(fmt.Sprintf(`<div class="board-column w-64 shrink-0 rounded bg-gray-100 p-2" data-column="%s"><h2 class="text-sm font-medium">%s</h2></div>`,
			html.EscapeString(col), html.EscapeString(col)))
	}
	sb.WriteString(`</div>`)

	shell := core.ContentShell{
		Resource: "tasks",
		Poll:     10 * time.Second,
		Body:     template.HTML(sb.String()),
	}
	return shell.Render(p.Meta(), ch)
}
