// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hierarchy parses OneNote hierarchy snapshots, validates them
// against an XSD, and extracts the notebook entries to export.
package hierarchy

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/onenote-export/internal/onenote"
	"github.com/pdiddy/onenote-export/pkg/types"
)

// ErrMalformed is returned when a document is not well-formed XML.
var ErrMalformed = errors.New("malformed XML")

const (
	xmlnsPrefix = "xmlns"
	xmlURL      = "http://www.w3.org/XML/1998/namespace"
)

// Node is one element of a parsed document. Names carry resolved
// namespace URLs.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Text     string
	Line     int
}

// AttrValue returns the value of the unqualified attribute local.
func (n *Node) AttrValue(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Walk visits n and its descendants in document order. Returning false from
// fn stops the walk below that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Document is a parsed XML document.
type Document struct {
	Root *Node
}

// utf8BOM is the byte order mark PowerShell writes ahead of UTF-8 output.
var utf8BOM = []byte("\xEF\xBB\xBF")

// Parse reads data into a Document. A leading UTF-8 byte order mark is
// ignored. Errors wrap ErrMalformed.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Snapshots are re-encoded as UTF-8 before they reach us, whatever the
	// declaration claims.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("%w: line %d: content after root element", ErrMalformed, line)
			}
			n := &Node{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...), Line: line}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(stack) > 0 {
				text[len(text)-1].Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: line %d: text outside root element", ErrMalformed, line)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return &Document{Root: root}, nil
}

// Notebooks returns every OneNote 2013 Notebook element in document order,
// at any depth. ExportPath is left empty.
func (d *Document) Notebooks() []types.Notebook {
	var out []types.Notebook
	d.Root.Walk(func(n *Node) bool {
		if n.Name.Space != onenote.Namespace2013 || n.Name.Local != "Notebook" {
			return true
		}
		nb := types.Notebook{}
		nb.ID, _ = n.AttrValue("ID")
		nb.Name, _ = n.AttrValue("name")
		nb.Nickname, _ = n.AttrValue("nickname")
		nb.Location, _ = n.AttrValue("path")
		if v, ok := n.AttrValue("lastModifiedTime"); ok {
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				nb.LastModified = ts
			}
		}
		out = append(out, nb)
		return true
	})
	return out
}

// WriteTo writes the document as indented UTF-8 XML with a declaration,
// preserving the namespace prefixes declared in the source.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version='1.0' encoding='UTF-8'?>` + "\n")
	writeNode(&buf, d.Root, 0, map[string]string{xmlURL: "xml"})
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// WriteFile writes the document to path.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func writeNode(buf *bytes.Buffer, n *Node, depth int, inherited map[string]string) {
	prefixes, copied := inherited, false
	for _, a := range n.Attr {
		var url, prefix string
		switch {
		case a.Name.Space == xmlnsPrefix:
			url, prefix = a.Value, a.Name.Local
		case a.Name.Space == "" && a.Name.Local == xmlnsPrefix:
			url, prefix = a.Value, ""
		default:
			continue
		}
		if !copied {
			prefixes, copied = copyMap(inherited), true
		}
		prefixes[url] = prefix
	}

	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	buf.WriteByte('<')
	name := qualify(n.Name, prefixes)
	buf.WriteString(name)
	for _, a := range n.Attr {
		buf.WriteByte(' ')
		switch {
		case a.Name.Space == xmlnsPrefix:
			buf.WriteString(xmlnsPrefix + ":" + a.Name.Local)
		default:
			buf.WriteString(qualify(a.Name, prefixes))
		}
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}

	switch {
	case len(n.Children) > 0:
		buf.WriteString(">\n")
		for _, c := range n.Children {
			writeNode(buf, c, depth+1, prefixes)
		}
		buf.WriteString(indent + "</" + name + ">\n")
	case n.Text != "":
		buf.WriteByte('>')
		xml.EscapeText(buf, []byte(n.Text))
		buf.WriteString("</" + name + ">\n")
	default:
		buf.WriteString("/>\n")
	}
}

// qualify renders name with the prefix bound to its namespace.
func qualify(name xml.Name, prefixes map[string]string) string {
	if name.Space == "" {
		return name.Local
	}
	prefix, ok := prefixes[name.Space]
	if !ok {
		// Unbound prefixes are left untranslated by the decoder.
		prefix = name.Space
	}
	if prefix == "" {
		return name.Local
	}
	return prefix + ":" + name.Local
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
