// ABOUTME: Photo album channel plugin.
// ABOUTME: Renders a gallery grid with the upload limit chosen at creation time.

package photos

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"time"

	"github.com/2389/teamhub/plugins/core"
	"github.com/dustin/go-humanize"
)

const defaultMaxPhotoMB = 10

// Plugin implements the photos channel type
type Plugin struct{}

// New creates the photos channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypePhotos,
		Name:        "Photos",
		Description: "Share photo albums",
		Icon:        "image",
		Color:       "fuchsia",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "max_photo_size", Type: "number", Display: "Max photo size (MB)", Default: fmt.Sprint(defaultMaxPhotoMB)},
		},
		Build: func(values url.Values) (core.Settings, error) {
			n, err := core.FormInt(values, "max_photo_size", defaultMaxPhotoMB, 1, 200)
			if err != nil {
				return nil, err
			}
			return core.Settings{"max_photo_size": n}, nil
		},
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	limit := uint64(core.SettingInt(ch.Settings, "max_photo_size", defaultMaxPhotoMB)) * 1000 * 1000
	shell := core.ContentShell{
		Resource: "photos",
		Poll:     time.Minute,
		Header: template.HTML(fmt.Sprintf(`<span class="ml-auto text-xs text-gray-500">Max %s per photo</span>`,
			html.EscapeString(humanize.Bytes(limit)))),
		Body: `<div class="gallery grid grid-cols-4 gap-2"></div>`,
	}
	return shell.Render(p.Meta(), ch)
}
