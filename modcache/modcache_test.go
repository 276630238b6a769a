package modcache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/token"
)

type countingResolver struct {
	calls int32
	progs map[string]*ast.Program
}

func (r *countingResolver) Resolve(path string) (*ast.Program, error) {
	atomic.AddInt32(&r.calls, 1)
	return r.progs[path], nil
}

func TestResolveMemoizesByPath(t *testing.T) {
	inner := &countingResolver{progs: map[string]*ast.Program{
		"mod.mq": {ModuleID: "mod.mq", Body: ast.NewBlock(token.Range{})},
	}}
	c := New(inner)

	p1, err := c.Resolve("mod.mq")
	require.NoError(t, err)
	p2, err := c.Resolve("mod.mq")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
}

func TestResolveDistinguishesPaths(t *testing.T) {
	inner := &countingResolver{progs: map[string]*ast.Program{
		"a.mq": {ModuleID: "a.mq", Body: ast.NewBlock(token.Range{})},
		"b.mq": {ModuleID: "b.mq", Body: ast.NewBlock(token.Range{})},
	}}
	c := New(inner)

	a, err := c.Resolve("a.mq")
	require.NoError(t, err)
	b, err := c.Resolve("b.mq")
	require.NoError(t, err)

	assert.NotEqual(t, a.ModuleID, b.ModuleID)
	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.calls))
}

func TestInvalidateForcesReResolve(t *testing.T) {
	inner := &countingResolver{progs: map[string]*ast.Program{
		"mod.mq": {ModuleID: "mod.mq", Body: ast.NewBlock(token.Range{})},
	}}
	c := New(inner)

	_, err := c.Resolve("mod.mq")
	require.NoError(t, err)
	c.Invalidate("mod.mq")
	_, err = c.Resolve("mod.mq")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.calls))
}

func TestSnapshotEncodesDigestLedger(t *testing.T) {
	inner := &countingResolver{progs: map[string]*ast.Program{
		"mod.mq": {ModuleID: "mod.mq", Body: ast.NewBlock(token.Range{})},
	}}
	c := New(inner)
	_, err := c.Resolve("mod.mq")
	require.NoError(t, err)

	data, err := c.Snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
