// ABOUTME: Whiteboard channel plugin.
// ABOUTME: Renders a drawing canvas with the background chosen at creation time.

package whiteboard

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

var backgrounds = []string{"blank", "grid", "dots"}

// Plugin implements the whiteboard channel type
type Plugin struct{}

// New creates the whiteboard channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeWhiteboard,
		Name:        "Whiteboard",
		Description: "Sketch ideas together on a shared canvas",
		Icon:        "pen-tool",
		Color:       "purple",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "background", Type: "select", Display: "Background", Default: backgrounds[0], Options: backgrounds},
		},
		Build: func(values url.Values) (core.Settings, error) {
			bg, err := core.FormChoice(values, "background", backgrounds)
			if err != nil {
				return nil, err
			}
			return core.Settings{"background": bg}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	bg := core.SettingString(ch.Settings, "background", backgrounds[0])
	shell := core.ContentShell{
		Resource: "strokes",
		Poll:     2 * time.Second,
		Body: template.HTML(fmt.Sprintf(`<canvas class="whiteboard-canvas bg-%s w-full h-[600px]" data-background="%s"></canvas>`,
			html.EscapeString(bg), html.EscapeString(bg))),
	}
	return shell.Render(p.Meta(), ch)
}
