// ABOUTME: HTML table renderers for the role and member admin screens.
// ABOUTME: Rows are built with escaped Tailwind markup; per-row controls pass through gates.

package web

import (
	"fmt"
	"html"
	"html/template"
	"sort"
	"strings"

	"github.com/2389/teamhub/internal/gates"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/dustin/go-humanize"
)

const (
	thClass = `px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase`
	tdClass = `px-6 py-4 whitespace-nowrap text-sm text-gray-900`
)

func writeHeader(sb *strings.Builder, cols ...string) {
	sb.WriteString(`<table class="min-w-full divide-y divide-gray-200">`)
	sb.WriteString(`<thead class="bg-gray-50"><tr>`)
	for _, c := range cols {
		sb.WriteString(fmt.Sprintf(`<th class="%s">%s</th>`, thClass, html.EscapeString(c)))
	}
	sb.WriteString(`</tr></thead>`)
	sb.WriteString(`<tbody class="bg-white divide-y divide-gray-200">`)
}

// sortRoles orders roles by descending permission level, then position
func sortRoles(roles []rbac.Role) []rbac.Role {
	out := append([]rbac.Role(nil), roles...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PermissionLevel != out[j].PermissionLevel {
			return out[i].PermissionLevel > out[j].PermissionLevel
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func roleBadge(role rbac.Role) string {
	color := role.Color
	if color == "" {
		color = "#6b7280"
	}
	return fmt.Sprintf(`<span class="inline-block rounded px-2 py-0.5 text-xs text-white" style="background-color: %s">%s</span>`,
		html.EscapeString(color), html.EscapeString(role.Name))
}

// renderRoleTable lists roles with their level, members and granted permissions
func renderRoleTable(roles []rbac.Role) template.HTML {
	if len(roles) == 0 {
		return `<p class="text-sm text-gray-500">This server has no roles.</p>`
	}

	var sb strings.Builder
	writeHeader(&sb, "Role", "Level", "Members", "Permissions")
	for _, role := range sortRoles(roles) {
		sb.WriteString(fmt.Sprintf(`<tr data-role-id="%s">`, html.EscapeString(role.ID)))

		name := roleBadge(role)
		if role.DefaultRole {
			name += ` <span class="text-xs text-gray-500">default</span>`
		}
		sb.WriteString(fmt.Sprintf(`<td class="%s">%s</td>`, tdClass, name))
		sb.WriteString(fmt.Sprintf(`<td class="%s">%d</td>`, tdClass, role.PermissionLevel))
		sb.WriteString(fmt.Sprintf(`<td class="%s">%s</td>`, tdClass, humanize.Comma(int64(role.MemberCount))))

		var granted []string
		for _, p := range role.Permissions {
			if p.HasPermission {
				granted = append(granted, html.EscapeString(p.Name))
			}
		}
		perms := `<span class="text-gray-400">none</span>`
		if len(granted) > 0 {
			perms = strings.Join(granted, ", ")
		}
		sb.WriteString(fmt.Sprintf(`<td class="px-6 py-4 text-sm text-gray-700">%s</td>`, perms))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return template.HTML(sb.String())
}

// renderMemberTable lists members; the role assignment form appears only for viewers who can manage roles
func renderMemberTable(g *gates.Gates, serverID string, members []rbac.Member, roles []rbac.Role) template.HTML {
	if len(members) == 0 {
		return `<p class="text-sm text-gray-500">This server has no members.</p>`
	}

	var sb strings.Builder
	writeHeader(&sb, "Member", "Roles", "Level", "Joined", "Assign")
	for _, m := range members {
		sb.WriteString(fmt.Sprintf(`<tr data-member-id="%s">`, html.EscapeString(m.ID)))

		name := m.DisplayName
		if name == "" {
			name = m.UserID
		}
		sb.WriteString(fmt.Sprintf(`<td class="%s"><span class="font-medium">%s</span><span class="block text-xs text-gray-500">%s</span></td>`,
			tdClass, html.EscapeString(name), html.EscapeString(m.Email)))

		badges := make([]string, 0, len(m.Roles))
		for _, role := range sortRoles(m.Roles) {
			badges = append(badges, roleBadge(role))
		}
		sb.WriteString(fmt.Sprintf(`<td class="%s space-x-1">%s</td>`, tdClass, strings.Join(badges, " ")))
		sb.WriteString(fmt.Sprintf(`<td class="%s">%d</td>`, tdClass, m.EffectiveLevel()))

		joined := ""
		if !m.JoinedAt.IsZero() {
			joined = humanize.Time(m.JoinedAt)
		}
		sb.WriteString(fmt.Sprintf(`<td class="%s">%s</td>`, tdClass, html.EscapeString(joined)))

		sb.WriteString(fmt.Sprintf(`<td class="%s">%s</td>`, tdClass,
			g.Can(rbac.PermManageRoles, assignForm(serverID, m, roles), "")))
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
	return template.HTML(sb.String())
}

func assignForm(serverID string, m rbac.Member, roles []rbac.Role) template.HTML {
	held := make(map[string]bool, len(m.Roles))
	for _, r := range m.Roles {
		held[r.ID] = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" class="flex flex-wrap items-center gap-2">`,
		html.EscapeString(serverPath(serverID, "admin", "members", m.ID, "roles"))))
	for _, role := range sortRoles(roles) {
		checked := ""
		if held[role.ID] {
			checked = " checked"
		}
		sb.WriteString(fmt.Sprintf(`<label class="text-xs"><input type="checkbox" name="role_id" value="%s"%s> %s</label>`,
			html.EscapeString(role.ID), checked, html.EscapeString(role.Name)))
	}
	sb.WriteString(`<button type="submit" class="rounded bg-blue-600 px-2 py-1 text-xs text-white">Save</button>`)
	sb.WriteString(`</form>`)
	return template.HTML(sb.String())
}
