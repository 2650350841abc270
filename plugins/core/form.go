// ABOUTME: HTML renderer for channel creation forms.
// ABOUTME: Generates the common name/description fields plus plugin-declared fields.

package core

import (
	"fmt"
	"html"
	"html/template"
	"strings"
)

// renderCreateForm generates a create form for a channel type.
// fields may be empty, in which case only name and description are asked for.
func renderCreateForm(meta ChannelPluginMeta, action string, fields []FieldSchema) template.HTML {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" class="bg-white rounded-lg shadow p-6 space-y-4 max-w-2xl">`,
		html.EscapeString(action)))
	sb.WriteString(fmt.Sprintf(`<input type="hidden" name="type" value="%s">`, html.EscapeString(string(meta.Type))))
	sb.WriteString(fmt.Sprintf(`<h2 class="text-lg font-semibold">New %s channel</h2>`, html.EscapeString(meta.Name)))

	base := []FieldSchema{
		{Name: "name", Type: "string", Display: "Name", Required: true},
		{Name: "description", Type: "text", Display: "Description"},
	}
	for _, field := range append(base, fields...) {
		writeField(&sb, field)
	}

	sb.WriteString(`<div class="flex gap-4">`)
	sb.WriteString(`<button type="submit" name="_action" value="create" class="px-4 py-2 bg-purple-600 text-white rounded hover:bg-purple-700">Create</button>`)
	sb.WriteString(`<button type="submit" name="_action" value="cancel" formnovalidate class="px-4 py-2 bg-gray-200 text-gray-700 rounded hover:bg-gray-300">Cancel</button>`)
	sb.WriteString(`</div>`)

	sb.WriteString(`</form>`)
	return template.HTML(sb.String())
}

func writeField(sb *strings.Builder, field FieldSchema) {
	sb.WriteString(`<div>`)
	sb.WriteString(fmt.Sprintf(`<label class="block text-sm font-medium text-gray-700">%s</label>`,
		html.EscapeString(field.Display)))

	name := html.EscapeString(field.Name)
	value := html.EscapeString(field.Default)

	switch field.Type {
	case "text":
		sb.WriteString(fmt.Sprintf(`<textarea name="%s" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">%s</textarea>`,
			name, requiredAttr(field.Required), value))

	case "checkbox":
		checked := ""
		if field.Default == "true" || field.Default == "1" {
			checked = "checked"
		}
		sb.WriteString(fmt.Sprintf(`<input type="checkbox" name="%s" value="true" %s class="mt-1 rounded border-gray-300">`,
			name, checked))

	case "number":
		sb.WriteString(fmt.Sprintf(`<input type="number" name="%s" value="%s" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			name, value, requiredAttr(field.Required)))

	case "datetime":
		sb.WriteString(fmt.Sprintf(`<input type="datetime-local" name="%s" value="%s" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			name, value, requiredAttr(field.Required)))

	case "select":
		sb.WriteString(fmt.Sprintf(`<select name="%s" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			name, requiredAttr(field.Required)))
		for _, opt := range field.Options {
			selected := ""
			if opt == field.Default {
				selected = " selected"
			}
			sb.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`,
				html.EscapeString(opt), selected, html.EscapeString(opt)))
		}
		sb.WriteString(`</select>`)

	default: // string and others
		valueAttr := ""
		if value != "" {
			valueAttr = fmt.Sprintf(` value="%s"`, value)
		}
		sb.WriteString(fmt.Sprintf(`<input type="text" name="%s"%s %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			name, valueAttr, requiredAttr(field.Required)))
	}

	sb.WriteString(`</div>`)
}

func requiredAttr(required bool) string {
	if required {
		return "required"
	}
	return ""
}
