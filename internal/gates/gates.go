// ABOUTME: Permission gates that choose between children, a fallback and a loading placeholder.
// ABOUTME: Gates are read-only views over an evaluator for one server context.

package gates

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/2389/teamhub/internal/rbac"
)

// Decider is the read-only part of an evaluator that gates consult. Result
// returns the snapshot and state from one read, so a decision never mixes a
// state with a snapshot from a different fetch.
type Decider interface {
	Result() (rbac.Result, rbac.State)
}

// settled returns the snapshot decisions are made from, or false while nothing
// is ready. Loading reports whether a fetch is in flight.
func settled(ev Decider) (snap rbac.Snapshot, ready, loading bool) {
	res, state := ev.Result()
	return res.Snapshot, state == rbac.StateReady, state == rbac.StateLoading
}

// Kind names the evaluator decision a gate consults
type Kind string

const (
	KindCan       Kind = "can"
	KindRole      Kind = "role"
	KindAdmin     Kind = "admin"
	KindModerator Kind = "moderator"
	KindLevel     Kind = "level"
)

// Kinds lists every gate kind
func Kinds() []Kind {
	return []Kind{KindCan, KindRole, KindAdmin, KindModerator, KindLevel}
}

// ParseKind converts a path segment into a Kind
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(s) {
			return k, true
		}
	}
	return "", false
}

// Outcome is the visual state a gate resolves to
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomeLoading Outcome = "loading"
)

// LoadingPlaceholder is rendered by every gate while the evaluator is loading
const LoadingPlaceholder template.HTML = `<div class="gate-loading animate-pulse h-4 w-24 rounded bg-gray-200" aria-busy="true"></div>`

// Decide resolves kind against ev. arg is the permission, role name or numeric
// level; admin and moderator ignore it. A level that is not a number is denied.
func Decide(ev Decider, kind Kind, arg string) Outcome {
	snap, ready, loading := settled(ev)
	if loading {
		return OutcomeLoading
	}
	if !ready {
		return OutcomeDenied
	}

	var ok bool
	switch kind {
	case KindCan:
		ok = snap.Can(arg)
	case KindRole:
		ok = snap.HasRole(arg)
	case KindAdmin:
		ok = snap.IsAdmin()
	case KindModerator:
		ok = snap.IsModerator()
	case KindLevel:
		level, err := strconv.Atoi(strings.TrimSpace(arg))
		ok = err == nil && snap.HasPermissionLevel(level)
	}

	if ok {
		return OutcomeAllowed
	}
	return OutcomeDenied
}

func pick(o Outcome, children, fallback, placeholder template.HTML) template.HTML {
	switch o {
	case OutcomeAllowed:
		return children
	case OutcomeLoading:
		return placeholder
	default:
		return fallback
	}
}

// Can renders children when the viewer holds permission
func Can(ev Decider, permission string, children, fallback template.HTML) template.HTML {
	return pick(Decide(ev, KindCan, permission), children, fallback, LoadingPlaceholder)
}

// Role renders children when the viewer holds a role named name
func Role(ev Decider, name string, children, fallback template.HTML) template.HTML {
	return pick(Decide(ev, KindRole, name), children, fallback, LoadingPlaceholder)
}

// Admin renders children for server administrators
func Admin(ev Decider, children, fallback template.HTML) template.HTML {
	return pick(Decide(ev, KindAdmin, ""), children, fallback, LoadingPlaceholder)
}

// Moderator renders children for moderators and above
func Moderator(ev Decider, children, fallback template.HTML) template.HTML {
	return pick(Decide(ev, KindModerator, ""), children, fallback, LoadingPlaceholder)
}

// Level renders children when the viewer's permission level is at least level
func Level(ev Decider, level int, children, fallback template.HTML) template.HTML {
	return pick(Decide(ev, KindLevel, strconv.Itoa(level)), children, fallback, LoadingPlaceholder)
}

// Denied is the standard fallback for screens the viewer may not open
func Denied(what string) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="gate-denied rounded-md bg-red-50 p-4 text-sm text-red-700">Access denied: you do not have permission to %s.</div>`,
		template.HTMLEscapeString(what)))
}

// PollURL builds the URL a loading placeholder polls for kind and arg under base
func PollURL(base string, kind Kind, arg string) string {
	u := strings.TrimRight(base, "/") + "/" + string(kind)
	if arg != "" {
		u += "?arg=" + url.QueryEscape(arg)
	}
	return u
}

// PollingPlaceholder is a loading placeholder that asks pollURL for the settled decision
func PollingPlaceholder(pollURL string) template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="gate-loading animate-pulse h-4 w-24 rounded bg-gray-200" aria-busy="true" hx-get="%s" hx-trigger="every 1s" hx-swap="outerHTML"></div>`,
		template.HTMLEscapeString(pollURL)))
}

type nobody struct{}

func (nobody) Result() (rbac.Result, rbac.State) { return rbac.Result{}, rbac.StateIdle }

// Nobody is a settled Decider that denies everything
var Nobody Decider = nobody{}
