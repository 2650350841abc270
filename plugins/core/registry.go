// ABOUTME: Channel plugin registry mapping channel types to plugins.
// ABOUTME: Populated once at start-up, then read concurrently by handlers.

package core

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrInvalidPlugin is returned when a plugin cannot be registered
var ErrInvalidPlugin = errors.New("invalid plugin")

// Registry maps each ChannelType to exactly one Plugin
type Registry struct {
	mu      sync.RWMutex
	plugins map[ChannelType]Plugin
	order   []ChannelType
	log     *logrus.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		plugins: make(map[ChannelType]Plugin),
		log:     log,
	}
}

// Register adds a plugin under its own Meta().Type.
// Registering a second plugin for the same type replaces the first and keeps
// its enumeration position.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("%w: nil plugin", ErrInvalidPlugin)
	}
	if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrInvalidPlugin, p)
	}
	meta := p.Meta()
	if meta.Type == "" {
		return fmt.Errorf("%w: plugin %q has no channel type", ErrInvalidPlugin, meta.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.plugins[meta.Type]; exists {
		r.log.WithFields(logrus.Fields{
			"channel_type": meta.Type,
			"previous":     prev.Meta().Name,
			"replacement":  meta.Name,
		}).Warn("replacing registered channel plugin")
	} else {
		r.order = append(r.order, meta.Type)
	}
	r.plugins[meta.Type] = p
	return nil
}

// MustRegister is Register for start-up code, panicking on error
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get retrieves the plugin for a channel type
func (r *Registry) Get(t ChannelType) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[t]
	return p, ok
}

// All returns the registered plugins in registration order
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]Plugin, 0, len(r.order))
	for _, t := range r.order {
		plugins = append(plugins, r.plugins[t])
	}
	return plugins
}

// Types returns the registered channel types in registration order
func (r *Registry) Types() []ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ChannelType, len(r.order))
	copy(types, r.order)
	return types
}

// Metas returns the metadata of every registered plugin in registration order
func (r *Registry) Metas() []ChannelPluginMeta {
	plugins := r.All()
	metas := make([]ChannelPluginMeta, 0, len(plugins))
	for _, p := range plugins {
		metas = append(metas, p.Meta())
	}
	return metas
}

// Len returns the number of registered plugins
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
