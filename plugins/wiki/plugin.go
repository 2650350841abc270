// ABOUTME: Wiki channel plugin.
// ABOUTME: Renders the channel description as Markdown above the page tree.

package wiki

import (
	"bytes"
	"context"
	"html"
	"html/template"

	"github.com/2389/teamhub/plugins/core"
	"github.com/yuin/goldmark"
)

// Plugin implements the wiki channel type
type Plugin struct {
	md goldmark.Markdown
}

// New creates the wiki channel plugin
func New() *Plugin {
	return &Plugin{md: goldmark.New()}
}

func (p *Plugin) Meta() core.ChannelPluginMeta {
	return core.ChannelPluginMeta{
		Type:        core.TypeWiki,
		Name:        "Wiki",
		Description: "Write and organize shared documentation",
		Icon:        "book-open",
		Color:       "indigo",
	}
}

// renderMarkdown converts a description to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func (p *Plugin) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + html.EscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func (p *Plugin) RenderContent(ctx context.Context, ch core.Channel) template.HTML {
	body := template.HTML(`<nav class="wiki-tree text-sm"></nav>`)
	if ch.Description != "" {
		body = `<article class="prose mb-4">` + p.renderMarkdown(ch.Description) + `</article>` + body
	}
	shell := core.ContentShell{
		Resource: "pages",
		Body:     body,
	}
	return shell.Render(p.Meta(), ch)
}

func (p *Plugin) RenderSettings(ctx context.Context, ch core.Channel) template.HTML {
	return `<div class="text-sm"><h2 class="font-medium">Description preview</h2><div class="prose">` +
		p.renderMarkdown(ch.Description) + `</div></div>`
}
