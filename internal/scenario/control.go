package scenario

import "strings"

// ControlKind identifies a per-item control rendered next to a to-do item.
type ControlKind string

const (
	ControlToggle ControlKind = "toggle"
	ControlDelete ControlKind = "delete"
)

// Well-known selectors of the to-do page.
var (
	TaskInputSelector = NameSelector("input", "task")
	FormSelector      = "form"
)

// ControlName derives the accessible name of a per-item control.
// The task text is used verbatim, e.g. ControlName("play", ControlToggle) == "play-toggle".
func ControlName(task string, kind ControlKind) string {
	return task + "-" + string(kind)
}

// ControlSelector returns a CSS selector matching the button for task and kind.
func ControlSelector(task string, kind ControlKind) string {
	return NameSelector("button", ControlName(task, kind))
}

// NameSelector builds an attribute selector for an element with the given tag and name.
func NameSelector(tag, name string) string {
	return tag + "[name=" + cssString(name) + "]"
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
