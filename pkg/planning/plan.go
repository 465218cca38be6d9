// Package planning holds the Plan type produced by the planner tool and
// consumed by the MultiStep strategy.
package planning

import "github.com/odvcencio/wayfarer/pkg/todolist"

// Step is one high-level action with its brief reasoning.
type Step struct {
	Action    string `json:"action"`
	Reasoning string `json:"reasoning"`
}

// Plan is an ordered list of steps, materialised 1:1 into a TodoList.
type Plan struct {
	Steps []Step `json:"steps"`
}

// ToTodoList converts the plan's steps into an initial checklist, all open.
func (p *Plan) ToTodoList() *todolist.TodoList {
	if p == nil {
		return todolist.New(nil)
	}
	texts := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		texts = append(texts, s.Action)
	}
	return todolist.New(texts)
}
