// ABOUTME: Shared content shell for channel plugins.
// ABOUTME: Wraps plugin markup in a container that loads and polls the channel's backend resource.

package core

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// ContentShell describes the outer container of a channel's main view
type ContentShell struct {
	Resource string        // backend resource under the channel, e.g. "messages"
	Poll     time.Duration // zero disables polling
	Header   template.HTML
	Body     template.HTML
}

// Render wraps the shell around ch
func (s ContentShell) Render(meta ChannelPluginMeta, ch Channel) template.HTML {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<section class="channel channel-%s" data-channel-id="%s" data-server-id="%s">`,
		html.EscapeString(string(meta.Type)), html.EscapeString(ch.ID), html.EscapeString(ch.ServerID)))

	sb.WriteString(`<header class="flex items-center gap-2 border-b px-4 py-3">`)
	sb.WriteString(string(IconSpan(meta.Icon, meta.Color)))
	sb.WriteString(fmt.Sprintf(`<h1 class="text-lg font-semibold">%s</h1>`, html.EscapeString(ch.Name)))
	sb.WriteString(string(s.Header))
	sb.WriteString(`</header>`)

	if s.Resource != "" {
		trigger := "load"
		if s.Poll > 0 {
			trigger = "load, every " + strconv.Itoa(int(s.Poll.Seconds())) + "s"
		}
		sb.WriteString(fmt.Sprintf(`<div class="channel-body p-4" hx-get="%s" hx-trigger="%s" hx-swap="innerHTML">`,
			html.EscapeString(ResourcePath(ch, s.Resource)), trigger))
	} else {
		sb.WriteString(`<div class="channel-body p-4">`)
	}
	sb.WriteString(string(s.Body))
	sb.WriteString(`</div>`)

	sb.WriteString(`</section>`)
	return template.HTML(sb.String())
}

// ResourcePath returns the backend proxy path of a channel resource
func ResourcePath(ch Channel, resource string) string {
	return "/api/servers/" + ch.ServerID + "/channels/" + ch.ID + "/" + resource
}
