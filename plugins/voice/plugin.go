// ABOUTME: Voice channel plugin.
// ABOUTME: Renders the participant roster and a speaker sidebar icon with the participant cap.

package voice

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

const defaultMaxParticipants = 25

// Plugin implements the voice channel type
type Plugin struct{}

// New creates the voice channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeVoice,
		Name:        "Voice",
		Description: "Talk in real time",
		Icon:        "volume-2",
		Color:       "teal",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "max_participants", Type: "number", Display: "Max participants", Default: fmt.Sprint(defaultMaxParticipants)},
		},
		Build: func(values url.Values) (core.Settings, error) {
			n, err := core.FormInt(values, "max_participants", defaultMaxParticipants, 2, 99)
			if err != nil {
				return nil, err
			}
			return core.Settings{"max_participants": n}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	shell := core.ContentShell{
		Resource: "participants",
		Poll:     5 * time.Second,
		Body: template.HTML(fmt.Sprintf(`<ul class="participants" data-max="%d"></ul>`+
			`<button class="join-voice mt-4 px-4 py-2 bg-teal-600 text-white rounded" data-channel-id="%s">Join</button>`,
			core.SettingInt(ch.Settings, "max_participants", defaultMaxParticipants), html.EscapeString(ch.ID))),
	}
	return shell.Render(p.Meta(), ch)
}

func (p *Plugin) SidebarIcon(ch core.Channel) template.HTML {
	meta := p.Meta()
	return core.IconSpan(meta.Icon, meta.Color) + template.HTML(fmt.Sprintf(
		`<span class="ml-1 text-[10px] text-gray-400">%d</span>`,
		core.SettingInt(ch.Settings, "max_participants", defaultMaxParticipants)))
}
