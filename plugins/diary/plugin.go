// ABOUTME: Diary channel plugin.
// ABOUTME: Entries are either private to their author or visible to the whole server.

package diary

import (
	"context"
	"html/template"
	"net/url"

	"github.com/2389/teamhub/plugins/core"
)

// Plugin implements the diary channel type
type Plugin struct{}

// New creates the diary channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeDiary,
		Name:        "Diary",
		Description: "Keep a dated log of entries",
		Icon:        "notebook",
		Color:       "rose",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "private", Type: "checkbox", Display: "Entries are private to their author"},
		},
		Build: func(values url.Values) (core.Settings, error) {
			return core.Settings{"private": core.FormBool(values, "private")}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	header := template.HTML("")
	if core.SettingBool(ch.Settings, "private") {
		header = `<span class="ml-auto text-xs text-gray-500">Private entries</span>`
	}
	shell := core.ContentShell{
		Resource: "entries",
		Header:   header,
		Body:     `<ol class="diary-entries space-y-4"></ol>`,
	}
	return shell.Render(p.Meta(), ch)
}
