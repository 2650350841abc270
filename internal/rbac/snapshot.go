// ABOUTME: Decoding and normalization of permission snapshot responses.
// ABOUTME: Missing fields become empty values; undecodable bodies become malformed errors.

package rbac

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

const maxSnapshotBytes = 1 << 20

type wireSnapshot struct {
	UserPermissions    map[string]bool `json:"user_permissions"`
	UserRoles          []Role          `json:"user_roles"`
	MaxPermissionLevel *int            `json:"max_permission_level"`
}

// DecodeSnapshot reads a snapshot body from the members/me endpoint
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxSnapshotBytes+1))
	if err != nil {
		return Snapshot{}, &FetchError{Kind: KindNetwork, Err: err}
	}
	if len(body) > maxSnapshotBytes {
		return Snapshot{}, &FetchError{Kind: KindMalformed, Err: errors.New("response too large")}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, &FetchError{Kind: KindMalformed, Err: errors.New("expected a JSON object")}
	}

	var w wireSnapshot
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Snapshot{}, &FetchError{Kind: KindMalformed, Err: err}
	}

	s := Snapshot{
		UserPermissions: w.UserPermissions,
		UserRoles:       w.UserRoles,
	}
	if w.MaxPermissionLevel != nil {
		s.MaxPermissionLevel = *w.MaxPermissionLevel
	}
	return s.normalized(), nil
}

func (s Snapshot) normalized() Snapshot {
	if s.UserPermissions == nil {
		s.UserPermissions = map[string]bool{}
	}
	if s.UserRoles == nil {
		s.UserRoles = []Role{}
	}
	return s
}
