package nfe

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// xmlNode is a minimal element tree. Field lookups over fiscal documents are
// path-driven data, so a generic tree beats static struct unmarshalling here.
type xmlNode struct {
	space    string
	local    string
	attrs    []xml.Attr
	text     strings.Builder
	children []*xmlNode
}

func parseXMLTree(r io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(r)
	// content is decoded to UTF-8 before parsing; ignore declared charsets
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{space: t.Name.Space, local: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}

// splitPath turns a relative path such as ".//nfe:ide/nfe:dhEmi" into its
// local-name segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, ".//")
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if idx := strings.Index(s, ":"); idx >= 0 {
			segments[i] = s[idx+1:]
		}
	}
	return segments
}

func (n *xmlNode) matches(ns, local string) bool {
	return n.local == local && (ns == "" || n.space == ns)
}

// findFirst returns the first descendant (document order) matching the first
// segment whose direct-child chain matches the remaining segments.
func (n *xmlNode) findFirst(ns string, segments []string) *xmlNode {
	if len(segments) == 0 {
		return nil
	}
	for _, child := range n.children {
		if child.matches(ns, segments[0]) {
			if m := child.chain(ns, segments[1:]); m != nil {
				return m
			}
		}
		if m := child.findFirst(ns, segments); m != nil {
			return m
		}
	}
	return nil
}

func (n *xmlNode) chain(ns string, segments []string) *xmlNode {
	if len(segments) == 0 {
		return n
	}
	for _, child := range n.children {
		if child.matches(ns, segments[0]) {
			if m := child.chain(ns, segments[1:]); m != nil {
				return m
			}
		}
	}
	return nil
}

// findAll collects every descendant with the given local name, in document
// order.
func (n *xmlNode) findAll(ns, local string) []*xmlNode {
	var out []*xmlNode
	for _, child := range n.children {
		if child.matches(ns, local) {
			out = append(out, child)
		}
		out = append(out, child.findAll(ns, local)...)
	}
	return out
}

// findText resolves a relative path and returns the trimmed element text, or
// the empty string when the path does not resolve.
func (n *xmlNode) findText(ns, path string) string {
	m := n.findFirst(ns, splitPath(path))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.text.String())
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
