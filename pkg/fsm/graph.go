package fsm

import (
	"fmt"
	"io"
	"strconv"
)

// Edge is one transition rule, for inspection and export.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Transition string `json:"transition"`
	Priority   int    `json:"priority"` // position in From's table, 0 = evaluated first
}

// Edges returns every transition in evaluation order.
func (m *Machine[O]) Edges() []Edge {
	var out []Edge
	for _, s := range m.states {
		for i, t := range s.transitions {
			out = append(out, Edge{
				From:       s.name,
				To:         m.states[t.to].name,
				Transition: t.name,
				Priority:   i,
			})
		}
	}
	return out
}

// WriteDOT writes the transition graph in Graphviz DOT format.
func (m *Machine[O]) WriteDOT(w io.Writer) error {
	name := m.name
	if name == "" {
		name = "fsm"
	}
	if _, err := fmt.Fprintf(w, "digraph %s {\n", strconv.Quote(name)); err != nil {
		return err
	}
	for i, s := range m.states {
		shape := "ellipse"
		if i == m.initial {
			shape = "doublecircle"
		}
		if _, err := fmt.Fprintf(w, "  %s [shape=%s];\n", strconv.Quote(s.name), shape); err != nil {
			return err
		}
	}
	for _, e := range m.Edges() {
		label := fmt.Sprintf("%d: %s", e.Priority, e.Transition)
		if _, err := fmt.Fprintf(w, "  %s -> %s [label=%s];\n",
			strconv.Quote(e.From), strconv.Quote(e.To), strconv.Quote(label)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}
