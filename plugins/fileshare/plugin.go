// ABOUTME: File sharing channel plugin.
// ABOUTME: Creation settings cap the upload size; limits are shown in human units.

package fileshare

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/2389/teamhub/plugins/core"
	"github.com/dustin/go-humanize"
)

const (
	defaultMaxFileSizeMB = 25
	maxFileSizeMB        = 2048
)

// Plugin implements the file-share channel type
type Plugin struct{}

// New creates the file-share channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeFileShare,
		Name:        "File Share",
		Description: "Upload and organize shared files",
		Icon:        "folder",
		Color:       "amber",
	}
}

func (p *Plugin) CreateForm() core.CreateForm {
	return core.CreateForm{
		Fields: []core.FieldSchema{
			{Name: "max_file_size", Type: "number", Display: "Max file size (MB)", Default: fmt.Sprint(defaultMaxFileSizeMB)},
			{Name: "allowed_extensions", Type: "string", Display: "Allowed extensions (comma separated, empty for any)"},
		},
		Build: buildSettings,
	}
}

func buildSettings(values url.Values) (core.Settings, error) {
	size, err := core.FormInt(values, "max_file_size", defaultMaxFileSizeMB, 1, maxFileSizeMB)
	if err != nil {
		return nil, err
	}

	var exts []string
	for _, ext := range strings.Split(values.Get("allowed_extensions"), ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}

	settings := core.Settings{"max_file_size": size}
	if len(exts) > 0 {
		settings["allowed_extensions"] = strings.Join(exts, ",")
	}
	return settings, nil
}

// MaxUploadBytes returns the channel's upload limit in bytes
func MaxUploadBytes(ch core.Channel) uint64 {
	return uint64(core.SettingInt(ch.Settings, "max_file_size", defaultMaxFileSizeMB)) * 1000 * 1000
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	header := fmt.Sprintf(`<span class="ml-auto text-xs text-gray-500">Uploads up to %s</span>`,
		html.EscapeString(humanize.Bytes(MaxUploadBytes(ch))))

	shell := core.ContentShell{
		Resource: "files",
		Poll:     15 * time.Second,
		Header:   template.HTML(header),
		Body:     template.HTML(`<ul class="file-list divide-y"></ul>`),
	}
	return shell.Render(p.Meta(), ch)
}

func (p *Plugin) RenderSettings(ctx context.Context, ch core.Channel) template.HTML {
	exts := core.SettingString(ch.Settings, "allowed_extensions", "any")
	return template.HTML(fmt.Sprintf(`<dl class="divide-y divide-gray-200">`+
		`<div class="py-2 grid grid-cols-3"><dt class="text-sm text-gray-500">Max file size</dt><dd class="col-span-2 text-sm">%s</dd></div>`+
		`<div class="py-2 grid grid-cols-3"><dt class="text-sm text-gray-500">Allowed extensions</dt><dd class="col-span-2 text-sm">%s</dd></div>`+
		`</dl>`, html.EscapeString(humanize.Bytes(MaxUploadBytes(ch))), html.EscapeString(exts)))
}
