// Package todolist implements the markdown checklist state machine that
// backs the agent's plan surface: an ordered, single-level list of
// "- [ ] text" / "- [x] text" lines, replaced atomically as a whole.
package todolist

import (
	"strings"
)

// Item is one checklist line.
type Item struct {
	Text string
	Done bool
}

// TodoList is an ordered markdown checklist. The zero value is an empty list.
type TodoList struct {
	items []Item
}

// New builds a TodoList from plan steps, all initially open.
func New(steps []string) *TodoList {
	t := &TodoList{items: make([]Item, 0, len(steps))}
	for _, s := range steps {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t.items = append(t.items, Item{Text: s})
	}
	return t
}

// Parse reads a markdown checklist produced by a previous Markdown() call
// (or authored by hand / an LLM). Lines that are not "- [ ] " / "- [x] "
// are ignored rather than rejected, since LLMs occasionally emit stray
// blank lines or headers around the list.
func Parse(markdown string) *TodoList {
	t := &TodoList{}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- [x]"), strings.HasPrefix(trimmed, "- [X]"):
			t.items = append(t.items, Item{Text: strings.TrimSpace(trimmed[5:]), Done: true})
		case strings.HasPrefix(trimmed, "- [ ]"):
			t.items = append(t.items, Item{Text: strings.TrimSpace(trimmed[5:]), Done: false})
		}
	}
	return t
}

// Markdown renders the list back to its canonical wire form.
func (t *TodoList) Markdown() string {
	if t == nil || len(t.items) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, item := range t.items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if item.Done {
			sb.WriteString("- [x] ")
		} else {
			sb.WriteString("- [ ] ")
		}
		sb.WriteString(item.Text)
	}
	return sb.String()
}

// Items returns a copy of the current items.
func (t *TodoList) Items() []Item {
	if t == nil {
		return nil
	}
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Complete reports whether no line contains "- [ ]" — i.e. the list has no
// open items (an empty list counts as complete).
func (t *TodoList) Complete() bool {
	if t == nil {
		return true
	}
	for _, item := range t.items {
		if !item.Done {
			return false
		}
	}
	return true
}

// NextOpen returns the first open item and true, or the zero Item and false
// if none remain.
func (t *TodoList) NextOpen() (Item, bool) {
	if t == nil {
		return Item{}, false
	}
	for _, item := range t.items {
		if !item.Done {
			return item, true
		}
	}
	return Item{}, false
}

// MarkDone marks the item at index as done. It reports false if index is
// out of range.
func (t *TodoList) MarkDone(index int) bool {
	if t == nil || index < 0 || index >= len(t.items) {
		return false
	}
	t.items[index].Done = true
	return true
}

// Len reports the number of items.
func (t *TodoList) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}
