package mdvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNode struct {
	kind     Kind
	attrs    map[string]string
	text     string
	children []Node
}

func (n *fakeNode) Kind() Kind { return n.kind }
func (n *fakeNode) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}
func (n *fakeNode) Text() string      { return n.text }
func (n *fakeNode) Children() []Node  { return n.children }

func TestMatchesOnKindOnly(t *testing.T) {
	n := &fakeNode{kind: KindList}
	assert.True(t, Matches(n, []string{"list"}))
	assert.False(t, Matches(n, []string{"h"}))
}

func TestMatchesOnKindPlusAttrChain(t *testing.T) {
	n := &fakeNode{kind: KindListItem, attrs: map[string]string{"checked": "true"}}
	assert.True(t, Matches(n, []string{"list_item", "checked"}))
}

func TestMatchesFailsWhenAttrMissingOrFalsey(t *testing.T) {
	n := &fakeNode{kind: KindListItem, attrs: map[string]string{"checked": "false"}}
	assert.False(t, Matches(n, []string{"list_item", "checked"}))

	n2 := &fakeNode{kind: KindListItem}
	assert.False(t, Matches(n2, []string{"list_item", "checked"}))
}

func TestMatchesEmptyPathAlwaysTrue(t *testing.T) {
	n := &fakeNode{kind: KindText}
	assert.True(t, Matches(n, nil))
}

func TestMapValuesReplacesRoot(t *testing.T) {
	root := &fakeNode{kind: KindHeading, text: "hello"}
	replaced := &fakeNode{kind: KindHeading, text: "HELLO"}

	out, err := MapValues(root, func(n Node) (Node, error) {
		return replaced, nil
	})
	assert.NoError(t, err)
	assert.Same(t, replaced, out)
}

func TestMapValuesElidesOnNilReplacement(t *testing.T) {
	root := &fakeNode{kind: KindParagraph}
	out, err := MapValues(root, func(n Node) (Node, error) { return nil, nil })
	assert.NoError(t, err)
	assert.Nil(t, out)
}
