// Package compiler wires the lexer, parser, resolver, macro expander,
// optimizer, type inferencer, and evaluator into the single front-to-back
// pipeline a host program actually wants to call (spec §8: the pipeline's
// stages are independently testable packages, but a real embedder needs
// one entry point), the way the teacher's top-level Engine composes its
// lexer/parser/runtime stages behind one Run method.
package compiler

import (
	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
	"github.com/mqscript/mqscript/eval"
	"github.com/mqscript/mqscript/hir"
	"github.com/mqscript/mqscript/macro"
	"github.com/mqscript/mqscript/optimize"
	"github.com/mqscript/mqscript/parser"
	"github.com/mqscript/mqscript/types"
)

// Config aggregates every stage's tunables behind one struct, mirroring
// the parser's and optimizer's own Option pattern so a host can override
// any one stage without touching the others.
type Config struct {
	ParserOpts   []parser.Option
	OptimizeOpts []optimize.Option
	Registry     *types.Registry
	Resolver     eval.Resolver
	SkipOptimize bool
	SkipTypes    bool
}

// Option configures a Config.
type Option func(*Config)

// WithParserOptions appends parser-stage options.
func WithParserOptions(opts ...parser.Option) Option {
	return func(c *Config) { c.ParserOpts = append(c.ParserOpts, opts...) }
}

// WithOptimizeOptions appends optimizer-stage options.
func WithOptimizeOptions(opts ...optimize.Option) Option {
	return func(c *Config) { c.OptimizeOpts = append(c.OptimizeOpts, opts...) }
}

// WithRegistry overrides the builtin overload registry used for type
// inference; the default is types.NewRegistry().
func WithRegistry(r *types.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// WithResolver sets the module Resolver passed through to the evaluator
// for include/import (spec §1: the concrete loader is host-supplied).
func WithResolver(r eval.Resolver) Option {
	return func(c *Config) { c.Resolver = r }
}

// WithoutOptimize skips the constant-folding/inlining/dead-let pass suite,
// useful for a host that wants to inspect the pre-optimization AST.
func WithoutOptimize() Option {
	return func(c *Config) { c.SkipOptimize = true }
}

// WithoutTypes skips constraint-based type inference.
func WithoutTypes() Option {
	return func(c *Config) { c.SkipTypes = true }
}

func defaultConfig() Config {
	return Config{Registry: types.NewRegistry()}
}

// Unit is everything produced by compiling one module's source: the
// resolved AST plus every diagnostic bag raised along the way, none of
// which are fatal by themselves (spec §4.2: diagnostics are collected, not
// fail-fast) except a parse failure severe enough that program is nil.
type Unit struct {
	Program    *ast.Program
	ParseDiags *diag.Bag
	ScopeDiags *diag.Bag
	MacroDiags *diag.Bag
	TypeDiags  *diag.Bag
	Types      map[ast.Node]types.Type
}

// Compile runs every front-end stage over source and returns the resulting
// Unit. It never fails outright on diagnosable errors; callers inspect the
// returned Unit's *diag.Bag fields to decide whether to proceed to Run.
func Compile(source, moduleID string, opts ...Option) *Unit {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	program, parseDiags := parser.Parse(source, moduleID, cfg.ParserOpts...)
	unit := &Unit{Program: program, ParseDiags: parseDiags}
	if program == nil {
		return unit
	}

	scopeResult := hir.Resolve(program)
	unit.ScopeDiags = scopeResult.Bag

	expander := macro.Collect(program)
	expander.Expand(program)
	unit.MacroDiags = expander.Bag

	if !cfg.SkipOptimize {
		optimize.Run(program, cfg.OptimizeOpts...)
	}

	if !cfg.SkipTypes {
		nodeTypes, typeDiags := types.Infer(program, cfg.Registry)
		unit.Types = nodeTypes
		unit.TypeDiags = typeDiags
	}

	return unit
}

// Diagnostics flattens every stage's bag into one slice, in pipeline
// order, for a host that just wants "everything wrong with this program".
func (u *Unit) Diagnostics() []diag.Diagnostic {
	var all []diag.Diagnostic
	for _, bag := range []*diag.Bag{u.ParseDiags, u.ScopeDiags, u.MacroDiags, u.TypeDiags} {
		if bag != nil {
			all = append(all, bag.Items()...)
		}
	}
	return all
}

// HasErrors reports whether any stage raised a diagnostic.
func (u *Unit) HasErrors() bool {
	for _, bag := range []*diag.Bag{u.ParseDiags, u.ScopeDiags, u.MacroDiags, u.TypeDiags} {
		if bag != nil && !bag.Empty() {
			return true
		}
	}
	return false
}

// Run compiles source and, if compilation produced a program, evaluates
// it against env (a fresh eval.NewEnvironment() if env is nil). It always
// returns the compiled Unit alongside whatever the evaluator produced, so
// a host can report diagnostics even when evaluation itself succeeds.
func Run(source, moduleID string, env *eval.Environment, opts ...Option) (*Unit, eval.RuntimeValue, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	unit := Compile(source, moduleID, opts...)
	if unit.Program == nil {
		return unit, nil, nil
	}

	if env == nil {
		env = eval.NewEnvironment()
	}
	evaluator := eval.New(cfg.Resolver)
	result, err := evaluator.Run(unit.Program, env, eval.None)
	return unit, result, err
}
