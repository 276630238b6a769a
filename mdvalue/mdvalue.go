// Package mdvalue defines the boundary between mqscript's evaluator and a
// host-supplied Markdown document model. mqscript never parses Markdown
// itself (spec §1 Non-goals); a host embeds the evaluator and supplies a
// Node implementation plus a MapValues hook so pipes can walk and rewrite
// the host's own tree (spec §6).
package mdvalue

// Kind tags a Markdown node's structural type, the same vocabulary
// Selector paths filter against (e.g. .h1, .list.checked).
type Kind string

const (
	KindDocument  Kind = "document"
	KindHeading   Kind = "h"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindListItem  Kind = "list_item"
	KindCodeBlock Kind = "code_block"
	KindText      Kind = "text"
	KindLink      Kind = "link"
	KindImage     Kind = "image"
	KindTable     Kind = "table"
)

// Node is a host-supplied Markdown AST node. mqscript treats it opaquely:
// it reads Kind/Attr/Children to match selectors and calls MapValues to
// produce a rewritten tree, but never constructs a Node itself.
type Node interface {
	Kind() Kind
	// Attr returns a named attribute (e.g. "level" for a heading, "checked"
	// for a list item), or ("", false) if absent.
	Attr(name string) (string, bool)
	Text() string
	Children() []Node
}

// Mapper rewrites a Node into a replacement value. Returning nil elides
// the node (spec §6's None-elision rule, extended to Markdown values).
type Mapper func(Node) (Node, error)

// MapValues applies f to root alone and returns its result; a nil
// replacement elides root. The children of root are not visited.
func MapValues(root Node, f Mapper) (Node, error) {
	mapped, err := f(root)
	if err != nil || mapped == nil {
		return mapped, err
	}
	return mapped, nil
}

// Matches reports whether n's Kind/attr chain satisfies a selector path
// such as ["list", "checked"] (spec §4: dotted selector semantics — each
// path segment after the first narrows by attribute presence/value).
func Matches(n Node, path []string) bool {
	if len(path) == 0 {
		return true
	}
	if string(n.Kind()) != path[0] {
		if _, ok := n.Attr(path[0]); !ok {
			return false
		}
	}
	for _, seg := range path[1:] {
		if v, ok := n.Attr(seg); !ok || v == "false" || v == "" {
			return false
		}
	}
	return true
}
