// ABOUTME: Schema definitions for channel creation forms.
// ABOUTME: Plugins declare fields, the core renders the form.

package core

// FieldSchema defines a field in a create form
type FieldSchema struct {
	Name     string // "max_file_size", "all_day"
	Type     string // "string", "text", "number", "checkbox", "datetime", "select"
	Display  string // "Max file size (MB)"
	Default  string
	Options  []string // select only
	Required bool
}
