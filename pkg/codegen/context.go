package codegen

import (
	"fmt"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// Kind names a context variety on the generation stack.
type Kind string

const (
	KindGlobal Kind = "global"
	KindScript Kind = "script"
	KindClass  Kind = "class"
	KindMethod Kind = "method"
)

// Context is one frame of the generation stack. exit finalizes the
// frame's accumulated state into the bytecode file and returns the frame
// to resume, nil at the bottom of the stack.
type Context interface {
	ContextKind() Kind
	Parent() Context
	exit() Context
}

// methodHost is a context that can own methods: scripts and classes.
type methodHost interface {
	Context
	addInstanceTrait(t *abc.Trait)
	addStaticTrait(t *abc.Trait)
	overridden(static bool, name abc.QName) bool
}

// Param is one declared method parameter.
type Param struct {
	Type abc.QName
	Name string
}

func paramTypes(params []Param) []abc.QName {
	types := make([]abc.QName, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return types
}

func paramNames(params []Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// ---------------------------------------------------------------------------
// Global

// GlobalContext is the bottom of the stack. It only opens scripts.
type GlobalContext struct {
	gen *Generator
}

func (*GlobalContext) ContextKind() Kind { return KindGlobal }
func (*GlobalContext) Parent() Context   { return nil }
func (*GlobalContext) exit() Context     { return nil }

// NewScript opens a script context and makes it current.
func (c *GlobalContext) NewScript() *ScriptContext {
	ctx := &ScriptContext{
		gen:     c.gen,
		parent:  c,
		pending: make(map[abc.QName]*pendingClass),
	}
	c.gen.enterContext(ctx)
	return ctx
}

// ---------------------------------------------------------------------------
// Script

type pendingClass struct {
	ctx *ClassContext
	// bases is the explicit scope-stack ancestor list, nil meaning
	// "infer from the superclass chain".
	bases []abc.QName
}

// ScriptContext accumulates script-level traits and pending classes, and
// owns the script init method.
type ScriptContext struct {
	gen     *Generator
	parent  Context
	init    *abc.MethodInfo
	initCtx *MethodContext
	traits  []*abc.Trait
	pending map[abc.QName]*pendingClass
	order   []abc.QName
	done    bool
}

func (*ScriptContext) ContextKind() Kind { return KindScript }

func (s *ScriptContext) Parent() Context { return s.parent }

func (s *ScriptContext) addInstanceTrait(t *abc.Trait) { s.traits = append(s.traits, t) }
func (s *ScriptContext) addStaticTrait(t *abc.Trait) { s.traits = append(s.traits, t) }

func (s *ScriptContext) overridden(static bool, name abc.QName) bool { return false }

// MakeInit lazily creates the script init method and enters its context.
func (s *ScriptContext) MakeInit() *MethodContext {
	if s.initCtx == nil {
		s.init = abc.NewMethodInfo("", nil, nil, abc.AnyName)
		s.initCtx = newMethodContext(s.gen, s.init, s, nil)
	}
	s.gen.enterContext(s.initCtx)
	return s.initCtx
}

// NewClass opens a class context, registering it as pending on this
// script. Reopening a pending class name re-enters its existing context.
func (s *ScriptContext) NewClass(name, superName abc.QName, bases []abc.QName) *ClassContext {
	if p, ok := s.pending[name]; ok {
		s.gen.enterContext(p.ctx)
		return p.ctx
	}
	if superName.IsZero() {
		superName = abc.QN("Object")
	}
	ctx := &ClassContext{
		gen:       s.gen,
		name:      name,
		superName: superName,
		parent:    s,
	}
	s.pending[name] = &pendingClass{ctx: ctx, bases: bases}
	s.order = append(s.order, name)
	s.gen.enterContext(ctx)
	return ctx
}

// exit finalizes the script: it runs exactly once (later calls return the
// parent immediately). Class-creation code is spliced into the init
// method directly after its two-instruction prologue, ahead of whatever
// the caller already emitted there.
func (s *ScriptContext) exit() Context {
	if s.done {
		return s.parent
	}
	s.done = true

	meth := s.MakeInit()

	var detached []abc.Instruction
	code := meth.asm.Instructions()
	if len(code) > 2 {
		detached = append(detached, code[2:]...)
		meth.asm.SetInstructions(code[:2:2])
	}

	for _, key := range s.order {
		p := s.pending[key]
		parents := p.bases
		if parents == nil {
			link, ok := s.gen.classLink(p.ctx.superName, s.pending)
			for ok {
				parents = append(parents, link.name)
				link, ok = s.gen.classLink(link.superName, s.pending)
			}
			if !containsName(parents, abc.QN("Object")) {
				parents = append(parents, abc.QN("Object"))
			}
		}

		s.gen.Emit(getScopeObject(0))
		for i := len(parents) - 1; i >= 0; i-- {
			s.gen.Emit(getLex(parents[i]), opPushScope)
		}

		s.traits = append(s.traits, &abc.Trait{
			Kind:  abc.TraitClass,
			Name:  p.ctx.name,
			Class: p.ctx.ref,
		})
		s.gen.Emit(getLex(p.ctx.superName))
		s.gen.Emit(newClass(p.ctx.index))
		for range parents {
			s.gen.Emit(opPopScope)
		}
		s.gen.Emit(initProperty(p.ctx.name))
	}

	s.gen.file.Scripts.IndexFor(&abc.ScriptInfo{Init: s.init, Traits: s.traits})
	s.gen.exitContext()

	if len(detached) > 0 {
		meth.asm.SetInstructions(append(meth.asm.Instructions(), detached...))
		meth.body.Code = meth.asm.Instructions()
	}
	return s.parent
}

func containsName(names []abc.QName, q abc.QName) bool {
	for _, n := range names {
		if n == q {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Class

// ClassContext accumulates the instance and static halves of one class.
type ClassContext struct {
	gen       *Generator
	name      abc.QName
	superName abc.QName
	parent    *ScriptContext

	instanceTraits []*abc.Trait
	staticTraits   []*abc.Trait

	cinit    *abc.MethodInfo
	cinitCtx *MethodContext
	iinit    *abc.MethodInfo
	iinitCtx *MethodContext

	iinitPrologue bool

	ref   *abc.ClassRef
	index int
}

func (*ClassContext) ContextKind() Kind { return KindClass }

func (c *ClassContext) Parent() Context { return c.parent }

// Name returns the class's qualified name.
func (c *ClassContext) Name() abc.QName { return c.name }

// SuperName returns the superclass's qualified name.
func (c *ClassContext) SuperName() abc.QName { return c.superName }

func (c *ClassContext) addInstanceTrait(t *abc.Trait) {
	c.instanceTraits = append(c.instanceTraits, t)
}

func (c *ClassContext) addStaticTrait(t *abc.Trait) {
	c.staticTraits = append(c.staticTraits, t)
}

// overridden reports whether a method of this name exists anywhere up the
// platform superclass chain, which forces the override flag.
func (c *ClassContext) overridden(static bool, name abc.QName) bool {
	if c.gen.lib == nil {
		return false
	}
	info, ok := c.gen.lib.ResolveType(c.name)
	for ok {
		if static && info.StaticMethods[name] {
			return true
		}
		if !static && info.Methods[name] {
			return true
		}
		info, ok = c.gen.lib.ResolveType(info.SuperName)
	}
	return false
}

// MakeCInit lazily creates the class initializer and enters its context.
func (c *ClassContext) MakeCInit() *MethodContext {
	if c.cinitCtx == nil {
		c.cinit = abc.NewMethodInfo("", nil, nil, abc.AnyName)
		c.cinitCtx = newMethodContext(c.gen, c.cinit, c, nil)
	}
	c.gen.enterContext(c.cinitCtx)
	return c.cinitCtx
}

// MakeIInit lazily creates the constructor and enters its context. The
// parameter list is fixed on first creation; re-entering with a non-empty
// list is a redefinition error. The first entry emits the standard
// prologue that calls the superclass constructor.
func (c *ClassContext) MakeIInit(params []Param) (*MethodContext, error) {
	if c.iinitCtx != nil {
		if len(params) > 0 {
			return nil, fmt.Errorf("%w: constructor of %s", ErrParamsRedefined, c.name)
		}
	} else {
		c.iinit = abc.NewMethodInfo("", paramTypes(params), paramNames(params), abc.QN("void"))
		c.iinitCtx = newMethodContext(c.gen, c.iinit, c, params)
		c.iinitCtx.constructor = true
	}
	c.gen.enterContext(c.iinitCtx)

	if !c.iinitPrologue {
		c.iinitPrologue = true
		c.gen.PushThis()
		c.gen.Emit(constructSuper(0))
	}
	return c.iinitCtx, nil
}

// exit synthesizes default initializers for whichever of iinit/cinit was
// never opened, then finalizes the instance and class records.
func (c *ClassContext) exit() Context {
	if c.iinitCtx == nil {
		c.MakeIInit(nil)
		c.gen.EndConstructor()
	}
	if c.cinitCtx == nil {
		c.MakeCInit()
		c.gen.EndMethod()
	}
	instance := &abc.InstanceInfo{
		Name:      c.name,
		SuperName: c.superName,
		IInit:     c.iinit,
		Traits:    c.instanceTraits,
	}
	class := &abc.ClassInfo{CInit: c.cinit, Traits: c.staticTraits}
	c.index = c.gen.file.Instances.IndexFor(instance)
	c.gen.file.Classes.IndexFor(class)
	c.ref = &abc.ClassRef{Instance: instance, Class: class, Index: c.index}
	return c.parent
}

// ---------------------------------------------------------------------------
// Method

type tryRegion struct {
	from, to int
}

// MethodContext owns one method body under assembly. Catch regions are an
// overlay on the method frame: each active catch adds one scope-nesting
// level and one synthetic local holding the caught value.
type MethodContext struct {
	gen    *Generator
	method *abc.MethodInfo
	parent Context
	params []Param

	asm           *Assembler
	labelCounters map[string]int
	acvTraits     []*abc.Trait
	exceptions    []*abc.Exception
	body          *abc.MethodBodyInfo

	constructor bool

	openTries   []tryRegion
	closedTry   tryRegion
	catchLocals []string
}

func newMethodContext(gen *Generator, method *abc.MethodInfo, parent Context, params []Param) *MethodContext {
	m := &MethodContext{
		gen:           gen,
		method:        method,
		parent:        parent,
		params:        params,
		asm:           NewAssembler(gen.pool, append([]string{"this"}, paramNames(params)...)),
		labelCounters: make(map[string]int),
	}
	m.body = &abc.MethodBodyInfo{Method: method}
	m.restoreScopes()
	return m
}

func (*MethodContext) ContextKind() Kind { return KindMethod }

func (m *MethodContext) Parent() Context { return m.parent }

// Method returns the signature record under construction.
func (m *MethodContext) Method() *abc.MethodInfo { return m.method }

// Assembler returns the method's instruction assembler.
func (m *MethodContext) Assembler() *Assembler { return m.asm }

// ScopeNest returns the current scope-nesting level: 0 in the method
// proper, one more per active catch region.
func (m *MethodContext) ScopeNest() int { return len(m.catchLocals) }

// NextLabel returns a fresh label name for the given prefix.
func (m *MethodContext) NextLabel(prefix string) string {
	n := m.labelCounters[prefix]
	m.labelCounters[prefix] = n + 1
	return fmt.Sprintf("__%s_%d", prefix, n)
}

// AddActivationTrait records a trait on the method's activation object
// and returns the new trait count.
func (m *MethodContext) AddActivationTrait(t *abc.Trait) int {
	m.acvTraits = append(m.acvTraits, t)
	return len(m.acvTraits)
}

// addException allocates an exception-table slot for a caught type and
// returns its index. Region bounds stay unresolved until the try/catch
// markers patch them.
func (m *MethodContext) addException(excType abc.QName) int {
	exc := abc.NewException(excType)
	m.asm.Add(addExcInfo(m, exc))
	m.exceptions = append(m.exceptions, exc)
	return len(m.exceptions) - 1
}

// restoreScopes emits the scope-stack prologue: the method scope, then
// one scope per active catch region, innermost last.
func (m *MethodContext) restoreScopes() {
	m.asm.Add(getLocal(0), opPushScope)
	for _, name := range m.catchLocals {
		reg, err := m.asm.GetLocal(name)
		if err != nil {
			continue
		}
		m.asm.Add(getLocal(reg), opPushScope)
	}
}

// exit commits the signature and assembled body into the file tables.
func (m *MethodContext) exit() Context {
	m.body.Code = m.asm.Instructions()
	m.body.ActivationTraits = m.acvTraits
	m.body.Exceptions = m.exceptions
	m.body.LocalCount = m.asm.LocalCount()
	m.gen.file.Methods.IndexFor(m.method)
	m.gen.file.Bodies.IndexFor(m.body)
	return m.parent
}

// newMethod builds a signature, registers its trait on the host, and
// opens a method context for the body.
func newMethod(gen *Generator, host methodHost, spec MethodSpec) *MethodContext {
	ret := spec.Returns
	if ret.IsZero() {
		ret = abc.QN("void")
	}
	method := abc.NewMethodInfo(spec.Name.String(), paramTypes(spec.Params), paramNames(spec.Params), ret)

	kind := spec.Kind
	if kind != abc.TraitGetter && kind != abc.TraitSetter {
		kind = abc.TraitMethod
	}
	trait := &abc.Trait{
		Kind:     kind,
		Name:     spec.Name,
		Method:   method,
		Override: spec.Override || host.overridden(spec.Static, spec.Name),
	}
	if spec.Static {
		host.addStaticTrait(trait)
	} else {
		host.addInstanceTrait(trait)
	}

	ctx := newMethodContext(gen, method, host, spec.Params)
	gen.enterContext(ctx)
	return ctx
}
