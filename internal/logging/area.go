// ABOUTME: Request attribution for request logging.
// ABOUTME: Determines the area and server a request belongs to from its URL path.

package logging

import (
	"strings"

	"github.com/2389/teamhub/internal/store"
)

// AreaFromPath determines which part of the application handles path
func AreaFromPath(path string) string {
	if path == "/channel-types" || strings.HasPrefix(path, "/channel-types/") {
		return store.AreaTypes
	}

	rest, ok := strings.CutPrefix(path, "/servers/")
	if !ok {
		return store.AreaUnknown
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		return store.AreaUnknown
	}

	switch parts[1] {
	case "channels":
		return store.AreaChannels
	case "admin":
		return store.AreaAdmin
	case "permissions", "gates":
		return store.AreaPermissions
	default:
		return store.AreaUnknown
	}
}

// ServerFromPath returns the server id of a /servers/{id}/... path, or ""
func ServerFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/servers/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
