// ABOUTME: Dispatcher resolving a channel's plugin and delegating rendering.
// ABOUTME: Unknown channel types render a stable fallback instead of failing.

package core

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"
)

var (
	// ErrMissingName is returned when a create form is submitted without a name
	ErrMissingName = errors.New("channel name is required")
)

// UnsupportedTypeError reports a channel type with no registered plugin
type UnsupportedTypeError struct {
	Type ChannelType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported channel type %q", string(e.Type))
}

// CreateRequest is what a submitted create form produces
type CreateRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        ChannelType `json:"type"`
	Settings    Settings    `json:"settings,omitempty"`
}

// SubmitFunc receives a completed create request
type SubmitFunc func(req CreateRequest) error

// CancelFunc is called when the user abandons a create form
type CancelFunc func()

// Dispatcher resolves plugins for channels through a Registry
type Dispatcher struct {
	registry   *Registry
	onFallback func(t ChannelType)
}

// NewDispatcher creates a dispatcher over reg.
// onFallback, when non-nil, is called each time a type fails to resolve.
func NewDispatcher(reg *Registry, onFallback func(t ChannelType)) *Dispatcher {
	return &Dispatcher{registry: reg, onFallback: onFallback}
}

// Registry returns the registry the dispatcher resolves through
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) resolve(t ChannelType) (Plugin, bool) {
	p, ok := d.registry.Get(t)
	if !ok && d.onFallback != nil {
		d.onFallback(t)
	}
	return p, ok
}

// RenderContent renders the channel's main view, or the unsupported-type fallback
func (d *Dispatcher) RenderContent(ctx context.Context, ch Channel) template.HTML {
	p, ok := d.resolve(ch.Type)
	if !ok {
		return UnsupportedFallback(ch.Type)
	}
	return p.RenderContent(ctx, ch)
}

// RenderSettings renders the channel's settings view. Plugins without one get a notice.
func (d *Dispatcher) RenderSettings(ctx context.Context, ch Channel) template.HTML {
	p, ok := d.resolve(ch.Type)
	if !ok {
		return UnsupportedFallback(ch.Type)
	}
	sp, ok := p.(SettingsProvider)
	if !ok {
		return template.HTML(fmt.Sprintf(`<div class="text-sm text-gray-500">%s channels have no settings.</div>`,
			html.EscapeString(p.Meta().Name)))
	}
	return sp.RenderSettings(ctx, ch)
}

// RenderSidebarIcon renders the compact navigation icon for a channel.
// Plugins without a custom icon fall back to their meta icon token.
func (d *Dispatcher) RenderSidebarIcon(ch Channel) template.HTML {
	p, ok := d.registry.Get(ch.Type)
	if !ok {
		return IconSpan("help-circle", "gray")
	}
	if ip, ok := p.(SidebarIconProvider); ok {
		return ip.SidebarIcon(ch)
	}
	meta := p.Meta()
	return IconSpan(meta.Icon, meta.Color)
}

// RenderCreateForm renders the create form for t, posting to action.
// Plugins without a CreateForm get name and description only.
func (d *Dispatcher) RenderCreateForm(t ChannelType, action string) template.HTML {
	p, ok := d.resolve(t)
	if !ok {
		return UnsupportedFallback(t)
	}
	var fields []FieldSchema
	if cp, ok := p.(CreateFormProvider); ok {
		fields = cp.CreateForm().Fields
	}
	return renderCreateForm(p.Meta(), action, fields)
}

// SubmitCreateForm turns submitted form values into a CreateRequest and hands it to submit.
// A cancel action calls cancel instead and submits nothing.
func (d *Dispatcher) SubmitCreateForm(t ChannelType, values url.Values, submit SubmitFunc, cancel CancelFunc) error {
	if values.Get("_action") == "cancel" {
		if cancel != nil {
			cancel()
		}
		return nil
	}

	p, ok := d.resolve(t)
	if !ok {
		return &UnsupportedTypeError{Type: t}
	}

	name := strings.TrimSpace(values.Get("name"))
	if name == "" {
		return ErrMissingName
	}

	req := CreateRequest{
		Name:        name,
		Description: strings.TrimSpace(values.Get("description")),
		Type:        p.Meta().Type,
	}
	if cp, ok := p.(CreateFormProvider); ok {
		form := cp.CreateForm()
		if form.Build != nil {
			settings, err := form.Build(values)
			if err != nil {
				return fmt.Errorf("%s settings: %w", t, err)
			}
			req.Settings = settings
		}
	}

	return submit(req)
}

// UnsupportedFallback is the designed terminal view for channel types with no plugin
func UnsupportedFallback(t ChannelType) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="channel-unsupported rounded border border-yellow-300 bg-yellow-50 p-4 text-sm text-yellow-800" data-channel-type="%s">Unsupported channel type: %s</div>`,
		html.EscapeString(string(t)), html.EscapeString(string(t))))
}

// IconSpan renders an icon token with a color token
func IconSpan(icon, color string) template.HTML {
	return template.HTML(fmt.Sprintf(`<span class="icon icon-%s text-%s-500" aria-hidden="true"></span>`,
		html.EscapeString(icon), html.EscapeString(color)))
}
