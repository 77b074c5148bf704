package xml990

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// node is one element of a decoded filing document. Filing schemas vary
// enough across years and preparation software that documents are probed as
// loosely-typed trees rather than unmarshaled into structs.
type node struct {
	name     string
	text     string
	children []*node
}

// decode builds a node tree from an XML document. Namespaces are ignored -
// only local element names matter for probing.
func decode(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	// filings declare a range of charsets; the payloads are ASCII in practice
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	root := &node{}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decoding token")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}
	if len(root.children) == 0 {
		return nil, errors.New("document has no elements")
	}
	return root, nil
}

// first returns the descendant reached by following path one level at a time,
// taking the first matching child at each level, or nil.
func (n *node) first(path ...string) *node {
	cur := n
	for _, name := range path {
		var next *node
		for _, c := range cur.children {
			if c.name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// allAt follows path like first, except the last element, for which every
// matching child is returned.
func (n *node) allAt(path ...string) []*node {
	if len(path) == 0 {
		return nil
	}
	parent := n
	if len(path) > 1 {
		parent = n.first(path[:len(path)-1]...)
		if parent == nil {
			return nil
		}
	}
	var out []*node
	for _, c := range parent.children {
		if c.name == path[len(path)-1] {
			out = append(out, c)
		}
	}
	return out
}

// textAt returns the trimmed text of the descendant at path, or "".
func (n *node) textAt(path ...string) string {
	d := n.first(path...)
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.text)
}
