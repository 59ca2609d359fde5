// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hierarchy

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// ErrSchemaViolation is returned when a document does not conform to the schema.
var ErrSchemaViolation = errors.New("schema violation")

const (
	xsdNS = "http://www.w3.org/2001/XMLSchema"
	xsiNS = "http://www.w3.org/2001/XMLSchema-instance"
)

// Schema is a compiled XSD. It understands the constructs used by the
// OneNote hierarchy schemas: element and attribute declarations, named
// complex and simple types, sequence/choice/all with occurrence bounds,
// group and attributeGroup references, wildcards, content extension and
// restriction, required and fixed attributes, the lexical forms of the
// built-in simple types, and the enumeration, pattern, length and range
// facets.
type Schema struct {
	targetNS  string
	qualified bool

	elements   map[string]*Node
	types      map[string]*Node
	simple     map[string]*Node
	groups     map[string]*Node
	attrGroups map[string]*Node
	attrs      map[string]*Node

	models   map[*Node]*model
	patterns map[string]*regexp.Regexp
}

// model is the compiled content model of an element declaration.
type model struct {
	content       *particle        // nil for empty content
	children      map[string]*Node // element declarations by local name
	anyChild      bool
	attrs         map[string]*Node
	requiredAttrs []string
	anyAttr       bool
	anyAttrNS     string // namespace constraint of anyAttribute
	simple        bool
	mixed         bool
	text          typeRef // type of simple content
}

func newModel() *model {
	return &model{children: map[string]*Node{}, attrs: map[string]*Node{}}
}

var anyModel = &model{anyChild: true, anyAttr: true, mixed: true,
	content: &particle{kind: particleAny, min: 0, max: unbounded}}

// LoadSchema reads and compiles the XSD at path.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// ParseSchema compiles an XSD document.
func ParseSchema(data []byte) (*Schema, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root
	if root.Name.Space != xsdNS || root.Name.Local != "schema" {
		return nil, fmt.Errorf("root element %s is not an xsd:schema", root.Name.Local)
	}

	s := &Schema{
		elements:   map[string]*Node{},
		types:      map[string]*Node{},
		simple:     map[string]*Node{},
		groups:     map[string]*Node{},
		attrGroups: map[string]*Node{},
		attrs:      map[string]*Node{},
		models:     map[*Node]*model{},
		patterns:   map[string]*regexp.Regexp{},
	}
	s.targetNS, _ = root.AttrValue("targetNamespace")
	if v, _ := root.AttrValue("elementFormDefault"); v == "qualified" {
		s.qualified = true
	}

	for _, c := range root.Children {
		if c.Name.Space != xsdNS {
			continue
		}
		name, _ := c.AttrValue("name")
		var table map[string]*Node
		switch c.Name.Local {
		case "element":
			table = s.elements
		case "complexType":
			table = s.types
		case "simpleType":
			table = s.simple
		case "group":
			table = s.groups
		case "attributeGroup":
			table = s.attrGroups
		case "attribute":
			table = s.attrs
		default:
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("line %d: top-level xsd:%s without a name", c.Line, c.Name.Local)
		}
		table[name] = c
	}

	if len(s.elements) == 0 {
		return nil, errors.New("schema declares no global elements")
	}
	return s, nil
}

// Validate checks doc against the schema. Errors wrap ErrSchemaViolation
// and name the offending element path and line.
func (s *Schema) Validate(doc *Document) error {
	root := doc.Root
	path := "/" + root.Name.Local
	if root.Name.Space != s.targetNS {
		return s.violation(root, path, "namespace %q, want %q", root.Name.Space, s.targetNS)
	}
	decl, ok := s.elements[root.Name.Local]
	if !ok {
		return s.violation(root, path, "root element is not declared by the schema")
	}
	return s.validateElement(root, decl, path)
}

func (s *Schema) violation(n *Node, path, format string, args ...any) error {
	return fmt.Errorf("%w: %s (line %d): %s", ErrSchemaViolation, path, n.Line, fmt.Sprintf(format, args...))
}

func (s *Schema) validateElement(n, decl *Node, path string) error {
	m := s.elementModel(decl)

	if err := s.validateAttrs(n, m, path); err != nil {
		return err
	}

	if m.simple {
		if len(n.Children) > 0 {
			return s.violation(n, path, "simple content may not contain element %q", n.Children[0].Name.Local)
		}
		if err := s.checkSimple(m.text, n.Text, 0); err != nil {
			return s.violation(n, path, "content %q: %v", n.Text, err)
		}
		if fixed, ok := decl.AttrValue("fixed"); ok && n.Text != fixed {
			return s.violation(n, path, "content %q, fixed value is %q", n.Text, fixed)
		}
		return nil
	}
	if !m.mixed && n.Text != "" {
		return s.violation(n, path, "text content is not allowed")
	}

	mt := newMatcher(s, n.Children)
	if !mt.accepts(m.content) {
		return s.contentError(n, path, m, mt)
	}

	for _, c := range n.Children {
		cd, ok := m.children[c.Name.Local]
		if !ok {
			// Wildcard match: validate only what the schema declares globally.
			if cd, ok = s.elements[c.Name.Local]; !ok || c.Name.Space != s.targetNS {
				continue
			}
		}
		if err := s.validateElement(c, cd, path+"/"+c.Name.Local); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) validateAttrs(n *Node, m *model, path string) error {
	seen := map[string]bool{}
	for _, a := range n.Attr {
		switch {
		case a.Name.Space == xmlnsPrefix, a.Name.Space == "" && a.Name.Local == xmlnsPrefix:
			continue
		case a.Name.Space == xsiNS, a.Name.Space == xmlURL:
			continue
		}
		ad, ok := m.attrs[a.Name.Local]
		if !ok || a.Name.Space != "" {
			if m.anyAttr && s.wildcardAllows(m.anyAttrNS, a.Name.Space) {
				continue
			}
			return s.violation(n, path, "attribute %q is not allowed", a.Name.Local)
		}
		if err := s.checkSimple(typeOf(ad), a.Value, 0); err != nil {
			return s.violation(n, path, "attribute %q value %q: %v", a.Name.Local, a.Value, err)
		}
		if fixed, ok := ad.AttrValue("fixed"); ok && a.Value != fixed {
			return s.violation(n, path, "attribute %q value %q, fixed value is %q", a.Name.Local, a.Value, fixed)
		}
		seen[a.Name.Local] = true
	}
	for _, name := range m.requiredAttrs {
		if !seen[name] {
			return s.violation(n, path, "missing required attribute %q", name)
		}
	}
	return nil
}

// elementModel resolves the content model of an element declaration.
func (s *Schema) elementModel(decl *Node) *model {
	if m, ok := s.models[decl]; ok {
		return m
	}
	var m *model
	if t, ok := decl.AttrValue("type"); ok {
		local := localName(t)
		switch ct, isComplex := s.types[local]; {
		case isComplex:
			m = s.complexModel(ct)
		case local == "anyType":
			m = anyModel
		default:
			m = &model{simple: true, text: typeRef{name: t}}
		}
	} else if ct := xsdChild(decl, "complexType"); ct != nil {
		m = s.complexModel(ct)
	} else if st := xsdChild(decl, "simpleType"); st != nil {
		m = &model{simple: true, text: typeRef{inline: st}}
	} else {
		m = anyModel
	}
	s.models[decl] = m
	return m
}

func (s *Schema) complexModel(ct *Node) *model {
	if m, ok := s.models[ct]; ok {
		return m
	}
	m := newModel()
	s.models[ct] = m
	m.content = s.compileType(m, ct, map[*Node]bool{ct: true})
	return m
}

// compileType adds the attributes of a complexType, attributeGroup,
// extension or restriction to m and returns its content particle.
func (s *Schema) compileType(m *model, n *Node, visiting map[*Node]bool) *particle {
	if v, _ := n.AttrValue("mixed"); v == "true" {
		m.mixed = true
	}
	var content *particle
	for _, c := range n.Children {
		if c.Name.Space != xsdNS {
			continue
		}
		switch c.Name.Local {
		case "sequence", "choice", "all", "group":
			content = s.compileParticle(m, c, visiting)
		case "attribute", "attributeGroup", "anyAttribute":
			s.compileAttr(m, c, visiting)
		case "complexContent":
			if v, _ := c.AttrValue("mixed"); v == "true" {
				m.mixed = true
			}
			for _, d := range c.Children {
				if d.Name.Space != xsdNS || (d.Name.Local != "extension" && d.Name.Local != "restriction") {
					continue
				}
				base := s.compileBase(m, d, visiting)
				own := s.compileType(m, d, visiting)
				if d.Name.Local == "extension" {
					content = sequenceOf(base, own)
				} else {
					content = own
				}
			}
		case "simpleContent":
			m.simple = true
			for _, d := range c.Children {
				if d.Name.Space != xsdNS || (d.Name.Local != "extension" && d.Name.Local != "restriction") {
					continue
				}
				if b, ok := d.AttrValue("base"); ok {
					if _, isComplex := s.types[localName(b)]; isComplex {
						s.compileBase(m, d, visiting)
					} else {
						m.text = typeRef{name: b}
					}
				}
				if st := xsdChild(d, "simpleType"); st != nil && d.Name.Local == "restriction" {
					m.text = typeRef{inline: st}
				}
				s.compileType(m, d, visiting)
			}
		}
	}
	return content
}

// compileBase compiles the complex base type of an extension or
// restriction into m and returns the base content particle.
func (s *Schema) compileBase(m *model, d *Node, visiting map[*Node]bool) *particle {
	b, ok := d.AttrValue("base")
	if !ok {
		return nil
	}
	bt, ok := s.types[localName(b)]
	if !ok || visiting[bt] {
		return nil
	}
	visiting[bt] = true
	defer delete(visiting, bt)
	return s.compileType(m, bt, visiting)
}

func (s *Schema) compileParticle(m *model, c *Node, visiting map[*Node]bool) *particle {
	p := &particle{min: occurs(c, "minOccurs"), max: occurs(c, "maxOccurs")}
	switch c.Name.Local {
	case "element":
		p.kind = particleElement
		decl := c
		if ref, ok := c.AttrValue("ref"); ok {
			p.name = localName(ref)
			p.ns = s.targetNS
			if g, ok := s.elements[p.name]; ok {
				decl = g
			}
		} else {
			p.name, _ = c.AttrValue("name")
			form, _ := c.AttrValue("form")
			if form == "qualified" || (form == "" && s.qualified) {
				p.ns = s.targetNS
			}
		}
		m.children[p.name] = decl
	case "any":
		p.kind = particleAny
		p.ns, _ = c.AttrValue("namespace")
		m.anyChild = true
	case "sequence", "choice", "all":
		p.kind = map[string]particleKind{"sequence": particleSequence, "choice": particleChoice, "all": particleAll}[c.Name.Local]
		for _, d := range c.Children {
			if d.Name.Space != xsdNS {
				continue
			}
			switch d.Name.Local {
			case "element", "any", "sequence", "choice", "group":
				if q := s.compileParticle(m, d, visiting); q != nil {
					p.items = append(p.items, q)
				}
			}
		}
	case "group":
		g, ok := s.groups[refName(c)]
		if !ok || visiting[g] {
			return nil
		}
		visiting[g] = true
		defer delete(visiting, g)
		p.kind = particleSequence
		for _, d := range g.Children {
			if d.Name.Space != xsdNS {
				continue
			}
			switch d.Name.Local {
			case "sequence", "choice", "all":
				if q := s.compileParticle(m, d, visiting); q != nil {
					p.items = append(p.items, q)
				}
			}
		}
	default:
		return nil
	}
	return p
}

func (s *Schema) compileAttr(m *model, c *Node, visiting map[*Node]bool) {
	switch c.Name.Local {
	case "attribute":
		decl, name := c, ""
		if ref, ok := c.AttrValue("ref"); ok {
			name = localName(ref)
			if g, ok := s.attrs[name]; ok {
				decl = g
			}
		} else {
			name, _ = c.AttrValue("name")
		}
		use, _ := c.AttrValue("use")
		if use == "prohibited" {
			delete(m.attrs, name)
			m.requiredAttrs = slices.DeleteFunc(m.requiredAttrs, func(n string) bool { return n == name })
			return
		}
		m.attrs[name] = decl
		if use == "required" && !slices.Contains(m.requiredAttrs, name) {
			m.requiredAttrs = append(m.requiredAttrs, name)
		}
	case "attributeGroup":
		g, ok := s.attrGroups[refName(c)]
		if !ok || visiting[g] {
			return
		}
		visiting[g] = true
		defer delete(visiting, g)
		s.compileType(m, g, visiting)
	case "anyAttribute":
		m.anyAttr = true
		m.anyAttrNS, _ = c.AttrValue("namespace")
	}
}

// sequenceOf joins the non-nil particles into one sequence.
func sequenceOf(ps ...*particle) *particle {
	var items []*particle
	for _, p := range ps {
		if p != nil {
			items = append(items, p)
		}
	}
	switch len(items) {
	case 0:
		return nil
	case 1:
		return items[0]
	}
	return &particle{kind: particleSequence, min: 1, max: 1, items: items}
}

func refName(n *Node) string {
	ref, _ := n.AttrValue("ref")
	return localName(ref)
}

// localName strips the prefix from a QName attribute value.
func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
