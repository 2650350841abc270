// ABOUTME: Gate set bound to one evaluator, with optional polling placeholders and decision observers.
// ABOUTME: Also exposes the gates and decisions to html/template through a FuncMap.

package gates

import (
	"html/template"
	"strconv"

	"github.com/2389/teamhub/internal/rbac"
)

// Gates binds the five gates to one evaluator
type Gates struct {
	ev       Decider
	pollBase string
	observe  func(Kind, Outcome)
}

// Option configures a Gates
type Option func(*Gates)

// WithPolling makes loading placeholders poll base/{kind}?arg= until the decision settles
func WithPolling(base string) Option {
	return func(g *Gates) {
		g.pollBase = base
	}
}

// WithObserver registers a callback for every gate decision
func WithObserver(fn func(Kind, Outcome)) Option {
	return func(g *Gates) {
		g.observe = fn
	}
}

// New binds gates to ev
func New(ev Decider, opts ...Option) *Gates {
	g := &Gates{ev: ev}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decider returns the evaluator the gates consult
func (g *Gates) Decider() Decider {
	return g.ev
}

// Render resolves a gate of the given kind
func (g *Gates) Render(kind Kind, arg string, children, fallback template.HTML) template.HTML {
	o := Decide(g.ev, kind, arg)
	if g.observe != nil {
		g.observe(kind, o)
	}
	placeholder := LoadingPlaceholder
	if g.pollBase != "" {
		placeholder = PollingPlaceholder(PollURL(g.pollBase, kind, arg))
	}
	return pick(o, children, fallback, placeholder)
}

func (g *Gates) Can(permission string, children, fallback template.HTML) template.HTML {
	return g.Render(KindCan, permission, children, fallback)
}

func (g *Gates) Role(name string, children, fallback template.HTML) template.HTML {
	return g.Render(KindRole, name, children, fallback)
}

func (g *Gates) Admin(children, fallback template.HTML) template.HTML {
	return g.Render(KindAdmin, "", children, fallback)
}

func (g *Gates) Moderator(children, fallback template.HTML) template.HTML {
	return g.Render(KindModerator, "", children, fallback)
}

func (g *Gates) Level(level int, children, fallback template.HTML) template.HTML {
	return g.Render(KindLevel, strconv.Itoa(level), children, fallback)
}

// FuncMap exposes the bound gates and the raw decisions to templates.
// Raw decisions are false unless the snapshot is ready.
func (g *Gates) FuncMap() template.FuncMap {
	decide := func(fn func(rbac.Snapshot) bool) bool {
		snap, ready, _ := settled(g.ev)
		return ready && fn(snap)
	}
	return template.FuncMap{
		"can": func(permission string) bool {
			return decide(func(s rbac.Snapshot) bool { return s.Can(permission) })
		},
		"hasRole": func(name string) bool {
			return decide(func(s rbac.Snapshot) bool { return s.HasRole(name) })
		},
		"isAdmin": func() bool {
			return decide(rbac.Snapshot.IsAdmin)
		},
		"isModerator": func() bool {
			return decide(rbac.Snapshot.IsModerator)
		},
		"hasLevel": func(level int) bool {
			return decide(func(s rbac.Snapshot) bool { return s.HasPermissionLevel(level) })
		},
		"loading": func() bool {
			_, _, loading := settled(g.ev)
			return loading
		},
		"gate": func(kind, arg string, children, fallback template.HTML) template.HTML {
			k, ok := ParseKind(kind)
			if !ok {
				return fallback
			}
			return g.Render(k, arg, children, fallback)
		},
	}
}

// FuncMap exposes ev's decisions and gates to templates without polling
func FuncMap(ev Decider) template.FuncMap {
	return New(ev).FuncMap()
}
