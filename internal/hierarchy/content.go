// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hierarchy

import (
	"slices"
	"strconv"
	"strings"
)

type particleKind int

const (
	particleElement particleKind = iota
	particleAny
	particleSequence
	particleChoice
	particleAll
)

// unbounded is the max of a particle with maxOccurs="unbounded".
const unbounded = -1

// particle is one node of a compiled content model.
type particle struct {
	kind     particleKind
	min, max int

	name string // element local name
	ns   string // element namespace, or the wildcard's namespace list

	items []*particle
}

// occurs reads minOccurs or maxOccurs, both defaulting to 1.
func occurs(n *Node, attr string) int {
	v, ok := n.AttrValue(attr)
	if !ok {
		return 1
	}
	if v == "unbounded" {
		return unbounded
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 1
	}
	return i
}

// matcher checks a run of sibling elements against a content model. It
// works on sets of reachable positions, so no input is matched twice.
type matcher struct {
	s        *Schema
	children []*Node

	// furthest is the highest position any element particle consumed up to.
	furthest int
	// expected lists the element names tried at each position.
	expected map[int][]string
}

func newMatcher(s *Schema, children []*Node) *matcher {
	return &matcher{s: s, children: children, expected: map[int][]string{}}
}

// accepts reports whether the whole run of children matches p.
func (mt *matcher) accepts(p *particle) bool {
	if p == nil {
		return len(mt.children) == 0
	}
	return slices.Contains(mt.match(p, 0), len(mt.children))
}

// match returns the positions reachable from pos by matching p between
// p.min and p.max times.
func (mt *matcher) match(p *particle, pos int) []int {
	var out []int
	if p.min == 0 {
		out = []int{pos}
	}
	seen := []int{pos}
	cur := []int{pos}
	for i := 1; p.max == unbounded || i <= p.max; i++ {
		var next []int
		for _, q := range cur {
			next = union(next, mt.once(p, q)...)
		}
		if i >= p.min {
			var fresh []int
			for _, q := range next {
				if !slices.Contains(seen, q) {
					fresh = append(fresh, q)
				}
			}
			out = union(out, fresh...)
			seen = union(seen, fresh...)
			next = fresh
		}
		if len(next) == 0 {
			break
		}
		cur = next
	}
	return out
}

// once returns the positions reachable from pos by one occurrence of p.
func (mt *matcher) once(p *particle, pos int) []int {
	switch p.kind {
	case particleElement:
		if pos < len(mt.children) {
			c := mt.children[pos]
			if c.Name.Local == p.name && c.Name.Space == p.ns {
				mt.advance(pos + 1)
				return []int{pos + 1}
			}
		}
		if !slices.Contains(mt.expected[pos], p.name) {
			mt.expected[pos] = append(mt.expected[pos], p.name)
		}
		return nil
	case particleAny:
		if pos < len(mt.children) && mt.s.wildcardAllows(p.ns, mt.children[pos].Name.Space) {
			mt.advance(pos + 1)
			return []int{pos + 1}
		}
		return nil
	case particleSequence:
		cur := []int{pos}
		for _, item := range p.items {
			var next []int
			for _, q := range cur {
				next = union(next, mt.match(item, q)...)
			}
			if len(next) == 0 {
				return nil
			}
			cur = next
		}
		return cur
	case particleChoice:
		var out []int
		for _, item := range p.items {
			out = union(out, mt.match(item, pos)...)
		}
		return out
	case particleAll:
		var out []int
		mt.all(p.items, pos, 0, &out)
		return out
	}
	return nil
}

// all explores every order of the members of an xsd:all group. Each member
// occurs at most once; members with minOccurs > 0 must occur.
func (mt *matcher) all(items []*particle, pos int, used uint64, out *[]int) {
	complete := true
	for i, it := range items {
		if used&(1<<i) == 0 && it.min > 0 {
			complete = false
		}
	}
	if complete {
		*out = union(*out, pos)
	}
	for i, it := range items {
		if i >= 64 || used&(1<<i) != 0 {
			continue
		}
		for _, end := range mt.once(it, pos) {
			if end > pos {
				mt.all(items, end, used|1<<i, out)
			}
		}
	}
}

func (mt *matcher) advance(pos int) {
	if pos > mt.furthest {
		mt.furthest = pos
	}
}

// expectedAt renders the element names that would have been accepted at pos.
func (mt *matcher) expectedAt(pos int) string {
	names := mt.expected[pos]
	if len(names) == 0 {
		return "no further elements"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, " or ")
}

// wildcardAllows applies an xsd:any namespace constraint to ns.
func (s *Schema) wildcardAllows(constraint, ns string) bool {
	if constraint == "" {
		return true
	}
	for _, tok := range strings.Fields(constraint) {
		switch tok {
		case "##any":
			return true
		case "##other":
			if ns != s.targetNS && ns != "" {
				return true
			}
		case "##targetNamespace":
			if ns == s.targetNS {
				return true
			}
		case "##local":
			if ns == "" {
				return true
			}
		default:
			if tok == ns {
				return true
			}
		}
	}
	return false
}

// contentError describes why children did not match the content model m.
func (s *Schema) contentError(n *Node, path string, m *model, mt *matcher) error {
	if mt.furthest < len(mt.children) {
		c := mt.children[mt.furthest]
		childPath := path + "/" + c.Name.Local
		if _, known := m.children[c.Name.Local]; !known && !m.anyChild {
			return s.violation(c, childPath, "element is not allowed here")
		}
		return s.violation(c, childPath, "unexpected element %q, expected %s", c.Name.Local, mt.expectedAt(mt.furthest))
	}
	names := mt.expected[len(mt.children)]
	if len(names) == 1 {
		return s.violation(n, path, "missing required element %q", names[0])
	}
	return s.violation(n, path, "content is incomplete, expected %s", mt.expectedAt(len(mt.children)))
}

func union(set []int, values ...int) []int {
	for _, v := range values {
		if !slices.Contains(set, v) {
			set = append(set, v)
		}
	}
	return set
}
