package tui

import (
	"github.com/chronicle-labs/chronicle/internal/model"
)

// treeRow is one visible line of the detail pane.
type treeRow struct {
	node  *model.Node
	depth int
}

// treePane tracks cursor and expansion state over a detail tree. Nodes are
// materialized only when their parent is expanded, preserving the tree's
// laziness.
type treePane struct {
	tree     *model.DetailTree
	expanded map[*model.Node]bool
	cursor   int
	rows     []treeRow
}

func newTreePane(tree *model.DetailTree) *treePane {
	return &treePane{tree: tree, expanded: make(map[*model.Node]bool)}
}

// reset drops expansion state and rebuilds, expanding the top-level
// branches so a freshly selected record shows its fields.
func (p *treePane) reset() {
	p.expanded = make(map[*model.Node]bool)
	p.cursor = 0
	root := p.tree.Root()
	for i := 0; i < root.ChildCount(); i++ {
		p.expanded[root.Child(i)] = true
	}
	p.rebuild()
}

// rebuild re-flattens the visible rows after expansion changes.
func (p *treePane) rebuild() {
	p.rows = p.rows[:0]
	root := p.tree.Root()
	for i := 0; i < root.ChildCount(); i++ {
		p.walk(root.Child(i), 0)
	}
	if p.cursor >= len(p.rows) {
		p.cursor = len(p.rows) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *treePane) walk(n *model.Node, depth int) {
	p.rows = append(p.rows, treeRow{node: n, depth: depth})
	if !p.expanded[n] {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		p.walk(n.Child(i), depth+1)
	}
}

func (p *treePane) current() *model.Node {
	if p.cursor < 0 || p.cursor >= len(p.rows) {
		return nil
	}
	return p.rows[p.cursor].node
}

func (p *treePane) moveUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *treePane) moveDown() {
	if p.cursor < len(p.rows)-1 {
		p.cursor++
	}
}

// toggle expands or collapses the node under the cursor.
func (p *treePane) toggle() {
	n := p.current()
	if n == nil || n.ChildCount() == 0 {
		return
	}
	if p.expanded[n] {
		delete(p.expanded, n)
	} else {
		p.expanded[n] = true
	}
	p.rebuild()
}

// collapse collapses the cursor node, or moves to its parent when already
// collapsed.
func (p *treePane) collapse() {
	n := p.current()
	if n == nil {
		return
	}
	if p.expanded[n] {
		delete(p.expanded, n)
		p.rebuild()
		return
	}
	if parent := n.Parent(); parent != nil {
		for i, row := range p.rows {
			if row.node == parent {
				p.cursor = i
				return
			}
		}
	}
}
