// ABOUTME: Core plugin contract for channel types.
// ABOUTME: Defines the mandatory content renderer and the optional capabilities.

package core

import (
	"context"
	"html/template"
	"net/url"
)

// ChannelPluginMeta describes a plugin. One value per plugin, never mutated.
type ChannelPluginMeta struct {
	Type        ChannelType `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`  // icon token, e.g. "hash", "calendar"
	Color       string      `json:"color"` // color token, e.g. "blue"
}

// Plugin defines the interface that every channel type must implement
type Plugin interface {
	Meta() ChannelPluginMeta

	// RenderContent produces the channel's main view. The returned fragment
	// owns all further data fetching for the channel.
	RenderContent(ctx context.Context, ch Channel) template.HTML
}

// CreateForm describes the type-specific part of the channel creation form
type CreateForm struct {
	Fields []FieldSchema

	// Build turns submitted form values into the channel's settings bag
	Build func(values url.Values) (Settings, error)
}

// CreateFormProvider is implemented by plugins with type-specific creation settings
type CreateFormProvider interface {
	Plugin
	CreateForm() CreateForm
}

// SettingsProvider is implemented by plugins with a per-channel configuration view
type SettingsProvider interface {
	Plugin
	RenderSettings(ctx context.Context, ch Channel) template.HTML
}

// SidebarIconProvider is implemented by plugins with a custom navigation icon
type SidebarIconProvider interface {
	Plugin
	SidebarIcon(ch Channel) template.HTML
}

// HasCreateForm reports whether p offers a type-specific create form
func HasCreateForm(p Plugin) bool {
	_, ok := p.(CreateFormProvider)
	return ok
}

// HasSettings reports whether p offers a settings view
func HasSettings(p Plugin) bool {
	_, ok := p.(SettingsProvider)
	return ok
}

// HasSidebarIcon reports whether p renders its own sidebar icon
func HasSidebarIcon(p Plugin) bool {
	_, ok := p.(SidebarIconProvider)
	return ok
}
