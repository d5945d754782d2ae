package entities

import (
	"sort"
	"strings"
)

// EntryKind classifies a node of the namespace graph.
type EntryKind string

const (
	KindNamespace EntryKind = "namespace"
	KindFactory   EntryKind = "factory"
)

// NamespaceTree is a detached snapshot of a namespace graph. It holds names
// and classification only, never script values, so two snapshots can be
// compared after their engines are gone.
type NamespaceTree struct {
	Name     string          `json:"name"`
	Kind     EntryKind       `json:"kind"`
	Origin   string          `json:"origin,omitempty"`
	Children []NamespaceTree `json:"children,omitempty"`
}

// Isomorphic reports whether t and other have the same names, nesting and
// leaf/namespace classification. Origins and child order are ignored.
func (t NamespaceTree) Isomorphic(other NamespaceTree) bool {
	if t.Name != other.Name || t.Kind != other.Kind || len(t.Children) != len(other.Children) {
		return false
	}
	a, b := t.sortedChildren(), other.sortedChildren()
	for i := range a {
		if !a[i].Isomorphic(b[i]) {
			return false
		}
	}
	return true
}

// Lookup walks a dotted path ("ns.inner.file") below t.
func (t NamespaceTree) Lookup(path string) (NamespaceTree, bool) {
	cur := t
	for _, part := range strings.Split(path, ".") {
		found := false
		for _, c := range cur.Children {
			if c.Name == part {
				cur, found = c, true
				break
			}
		}
		if !found {
			return NamespaceTree{}, false
		}
	}
	return cur, true
}

// Count returns the number of namespace and factory nodes below t.
func (t NamespaceTree) Count() (namespaces, factories int) {
	for _, c := range t.Children {
		switch c.Kind {
		case KindNamespace:
			namespaces++
			n, f := c.Count()
			namespaces += n
			factories += f
		case KindFactory:
			factories++
		}
	}
	return namespaces, factories
}

func (t NamespaceTree) sortedChildren() []NamespaceTree {
	out := make([]NamespaceTree, len(t.Children))
	copy(out, t.Children)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
