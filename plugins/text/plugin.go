// ABOUTME: Text chat channel plugin.
// ABOUTME: Renders the message timeline shell and composer; messages are polled from the backend.

package text

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"time"

	"github.com/2389/teamhub/plugins/core"
)

// Plugin implements the text channel type
type Plugin struct{}

// New creates the text channel plugin
func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeText,
		Name:        "Text",
		Description: "Send messages, share links and chat with your team",
		Icon:        "hash",
		Color:       "gray",
	}
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	composer := fmt.Sprintf(`<form class="composer border-t p-3" hx-post="%s" hx-swap="none">`+
		`<textarea name="content" rows="2" placeholder="Message #%s" class="w-full rounded border px-3 py-2"></textarea>`+
		`<button type="submit" class="mt-2 px-4 py-2 bg-purple-600 text-white rounded">Send</button></form>`,
		html.EscapeString(core.ResourcePath(ch, "messages")), html.EscapeString(ch.Name))

	shell := core.ContentShell{
		Resource: "messages",
		Poll:     3 * time.Second,
		Body:     template.HTML(`<p class="text-sm text-gray-400">Loading messages…</p>`),
	}
	return shell.Render(p.Meta(), ch) + template.HTML(composer)
}
