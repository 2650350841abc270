// ABOUTME: Survey channel plugin.
// ABOUTME: Creation settings choose anonymity and multiple-choice answers.

package survey

import (
	"context"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

// Plugin implements the survey channel type
type Plugin struct{}

// New creates the survey channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeSurvey,
		Name:        "Survey",
		Description: "Ask questions and collect answers",
		Icon:        "clipboard-list",
		Color:       "pink",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "anonymous", Type: "checkbox", Display: "Anonymous responses"},
			{Name: "multiple_choice", Type: "checkbox", Display: "Allow multiple answers", Default: "true"},
		},
		Build: func(values url.Values) (core.Settings, error) {
			return core.Settings{
				"anonymous":       core.FormBool(values, "anonymous"),
				"multiple_choice": core.FormBool(values, "multiple_choice"),
			}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	header := template.HTML("")
	if core.SettingBool(ch.Settings, "anonymous") {
		header = `<span class="ml-auto rounded bg-gray-100 px-2 text-xs text-gray-600">Anonymous</span>`
	}
	shell := core.ContentShell{
		Resource: "surveys",
		Poll:     20 * time.Second,
		Header:   header,
	}
	return shell.Render(p.Meta(), ch)
}
