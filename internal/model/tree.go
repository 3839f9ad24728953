package model

import (
	"sort"
	"strconv"
	"sync"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// Node is one row of the detail tree. Nodes expose three columns (key, type
// label, value) and build their children lazily: a node holds its raw value
// and a child count up front, materializes each child on first access, and
// releases the raw value once every child is built.
type Node struct {
	key     string
	label   string
	display string
	parent  *Node
	row     int

	raw        any
	childCount int
	children   []*Node
	built      int
	builder    func(parent *Node, i int) *Node
}

// Key is the node's name within its parent: a map key, a list index or a
// field name.
func (n *Node) Key() string { return n.key }

// TypeLabel is the short type name shown in the tree's middle column.
func (n *Node) TypeLabel() string { return n.label }

// Display is the bounded single-line rendering of the node's value.
func (n *Node) Display() string { return n.display }

// Parent returns the node's parent, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Row is the node's position within its parent.
func (n *Node) Row() int { return n.row }

// ChildCount returns how many children the node decomposes into, without
// building any of them.
func (n *Node) ChildCount() int { return n.childCount }

// Child returns the i-th child, building and caching it on first access.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= n.childCount {
		return nil
	}
	if n.children == nil {
		n.children = make([]*Node, n.childCount)
	}
	if n.children[i] == nil {
		n.children[i] = n.builder(n, i)
		n.built++
		if n.built == n.childCount {
			// Fully materialized: the raw value and builder are no
			// longer needed.
			n.raw = nil
			n.builder = nil
		}
	}
	return n.children[i]
}

// newNode builds a node for an arbitrary value, deciding its decomposition:
// maps by sorted key, slices by index, inspectable objects by field,
// everything else a leaf.
func newNode(parent *Node, row int, key string, value any) *Node {
	n := &Node{
		key:     key,
		label:   core.TypeLabel(value),
		display: core.FormatValue(value, core.DisplayMaxLength),
		parent:  parent,
		row:     row,
		raw:     value,
	}

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n.childCount = len(keys)
		n.builder = func(p *Node, i int) *Node {
			return newNode(p, i, keys[i], v[keys[i]])
		}
	case []any:
		n.childCount = len(v)
		n.builder = func(p *Node, i int) *Node {
			return newNode(p, i, strconv.Itoa(i), v[i])
		}
	case core.Record:
		n.childCount = len(core.RecordFields)
		n.builder = func(p *Node, i int) *Node {
			field := core.RecordFields[i]
			value, _ := v.Field(field)
			return newNode(p, i, field, value)
		}
	case core.Inspectable:
		fields := v.Fields()
		n.childCount = len(fields)
		n.builder = func(p *Node, i int) *Node {
			return newNode(p, i, fields[i].Name, fields[i].Value)
		}
	}
	return n
}

// rootLabels are the fixed top-level branches of the detail tree.
const (
	rootRecordKey   = "record"
	rootObjKey      = "obj"
	rootSnapshotKey = "snapshot"
)

// TreeReset is published when the tree's content is replaced.
type TreeReset struct{}

// DetailTree decomposes the selected record, and when available the live
// object loaded from it and its exact stored snapshot, into a lazily built
// tree.
type DetailTree struct {
	mu   sync.Mutex
	root *Node
	obs  observers[TreeReset]
}

// NewDetailTree returns an empty tree.
func NewDetailTree() *DetailTree {
	return &DetailTree{root: &Node{}}
}

// Subscribe registers an observer, returning its unsubscribe func.
func (t *DetailTree) Subscribe(fn func(TreeReset)) func() {
	return t.obs.subscribe(fn)
}

// Root returns the current (invisible) root node.
func (t *DetailTree) Root() *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// SetRecord replaces the tree's content. The record branch is always
// present; the obj branch appears when a live object was loaded, and the
// snapshot branch only when both the live object and the snapshot are
// available.
func (t *DetailTree) SetRecord(rec core.Record, liveObj, snapshot any) {
	children := []*Node{newNode(nil, 0, rootRecordKey, rec)}
	if liveObj != nil {
		children = append(children, newNode(nil, len(children), rootObjKey, liveObj))
		if snapshot != nil {
			children = append(children, newNode(nil, len(children), rootSnapshotKey, snapshot))
		}
	}

	root := &Node{childCount: len(children), children: children, built: len(children)}
	for _, c := range children {
		c.parent = root
	}

	t.mu.Lock()
	t.root = root
	t.mu.Unlock()
	t.obs.notify(TreeReset{})
}

// Reset clears the tree.
func (t *DetailTree) Reset() {
	t.mu.Lock()
	t.root = &Node{}
	t.mu.Unlock()
	t.obs.notify(TreeReset{})
}
