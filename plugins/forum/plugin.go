// ABOUTME: Forum channel plugin.
// ABOUTME: Threads are sorted as configured; the description is rendered as Markdown guidelines.

package forum

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
	"github.com/yuin/goldmark"
)

var sortOrders = []string{"latest", "newest", "top"}

// Plugin implements the forum channel type
type Plugin struct {
	md goldmark.Markdown
}

// New creates the forum channel plugin
func New() *Plugin {
	return &Plugin{md: goldmark.New()}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeForum,
		Name:        "Forum",
		Description: "Start threaded discussions",
		Icon:        "messages-square",
		Color:       "cyan",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "default_sort", Type: "select", Display: "Default sort", Default: sortOrders[0], Options: sortOrders},
		},
		Build: func(values url.Values) (core.Settings, error) {
			order, err := core.FormChoice(values, "default_sort", sortOrders)
			if err != nil {
				return nil, err
			}
			return core.Settings{"default_sort": order}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	order := core.SettingString(ch.Settings, "default_sort", sortOrders[0])

	body := template.HTML("")
	if ch.Description != "" {
		var buf bytes.Buffer
		if err := p.md.Convert([]byte(ch.Description), &buf); err == nil {
			body = template.HTML(`<aside class="forum-guidelines prose mb-4">` + buf.String() + `</aside>`)
		}
	}
	body += template.HTML(fmt.Sprintf(`<ul class="threads divide-y" data-sort="%s"></ul>`, html.EscapeString(order)))

	shell := core.ContentShell{
		Resource: "threads?sort=" + url.QueryEscape(order),
		Poll:     15 * time.Second,
		Body:     body,
	}
	return shell.Render(p.Meta(), ch)
}
