package codegen

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// TypeLibrary resolves platform class names during override detection and
// ancestor-chain resolution. A nil library means no platform classes are
// known.
type TypeLibrary interface {
	ResolveType(name abc.QName) (TypeInfo, bool)
}

// TypeInfo is the shape of a resolved platform class: its qualified name,
// its superclass, and which method names exist at each level.
type TypeInfo struct {
	Name          abc.QName
	SuperName     abc.QName
	Methods       map[abc.QName]bool
	StaticMethods map[abc.QName]bool
}

// MethodSpec describes a method to open on a class or script.
type MethodSpec struct {
	Name     abc.QName
	Params   []Param
	Returns  abc.QName     // zero means void
	Kind     abc.TraitKind // TraitMethod, TraitGetter or TraitSetter
	Static   bool
	Override bool
}

// Generator drives bytecode construction through a stack of contexts. It
// owns the abc.File accumulator and the single current-context pointer.
// It is not safe for concurrent use.
type Generator struct {
	file    *abc.File
	pool    *abc.Pool
	lib     TypeLibrary
	ctx     Context
	script0 *ScriptContext
	loaders map[reflect.Type]LoaderFunc
}

// NewGenerator returns a generator with a fresh file and an already-open
// first script context. lib may be nil.
func NewGenerator(lib TypeLibrary) *Generator {
	return NewGeneratorFor(abc.NewFile(), lib)
}

// NewGeneratorFor builds on an existing file accumulator.
func NewGeneratorFor(file *abc.File, lib TypeLibrary) *Generator {
	g := &Generator{
		file:    file,
		pool:    file.Constants,
		lib:     lib,
		loaders: make(map[reflect.Type]LoaderFunc),
	}
	registerDefaultLoaders(g)
	global := &GlobalContext{gen: g}
	g.ctx = global
	g.script0 = global.NewScript()
	return g
}

// File returns the bytecode-file accumulator.
func (g *Generator) File() *abc.File { return g.file }

// Pool returns the constant pool.
func (g *Generator) Pool() *abc.Pool { return g.pool }

// Context returns the current context.
func (g *Generator) Context() Context { return g.ctx }

// Script0 returns the first script, opened at construction.
func (g *Generator) Script0() *ScriptContext { return g.script0 }

func (g *Generator) kindName() string {
	if g.ctx == nil {
		return "empty"
	}
	return string(g.ctx.ContextKind())
}

// method returns the current method context, or a wrong-context error
// naming the attempted operation.
func (g *Generator) method(op string) (*MethodContext, error) {
	if m, ok := g.ctx.(*MethodContext); ok {
		return m, nil
	}
	return nil, &WrongContextError{Op: op, Got: g.kindName()}
}

// ---------------------------------------------------------------------------
// Context stack

// EnterContext pushes a context, making it current.
func (g *Generator) EnterContext(ctx Context) {
	g.ctx = ctx
}

func (g *Generator) enterContext(ctx Context) {
	g.ctx = ctx
}

// ExitContext finalizes the current context, pops it, and returns it.
func (g *Generator) ExitContext() Context {
	return g.exitContext()
}

func (g *Generator) exitContext() Context {
	ctx := g.ctx
	g.ctx = ctx.exit()
	return ctx
}

// ExitUntilKind finalizes and pops contexts until the current one is of
// the given kind.
func (g *Generator) ExitUntilKind(kind Kind) {
	for g.ctx != nil && g.ctx.ContextKind() != kind {
		g.exitContext()
	}
}

// ExitUntil finalizes and pops contexts until ctx itself is current.
// Contexts are compared by identity.
func (g *Generator) ExitUntil(ctx Context) {
	for g.ctx != nil && g.ctx != ctx {
		g.exitContext()
	}
}

// Finish drains the stack, finalizing every still-open construct. Must be
// called before the accumulated file is serialized.
func (g *Generator) Finish() {
	for g.ctx != nil {
		g.exitContext()
	}
}

// CurrentClass returns the innermost enclosing class context, nil when
// there is none.
func (g *Generator) CurrentClass() *ClassContext {
	for ctx := g.ctx; ctx != nil; ctx = ctx.Parent() {
		if c, ok := ctx.(*ClassContext); ok {
			return c
		}
	}
	return nil
}

// BeginClass opens a class on the current script. bases, when non-nil, is
// the explicit scope-stack ancestor list (excluding Object); nil infers
// it from the superclass chain at script finalization.
func (g *Generator) BeginClass(name, superName abc.QName, bases []abc.QName) (*ClassContext, error) {
	s, ok := g.ctx.(*ScriptContext)
	if !ok {
		return nil, &WrongContextError{Op: "begin_class", Got: g.kindName()}
	}
	return s.NewClass(name, superName, bases), nil
}

// EndClass finalizes the current class context.
func (g *Generator) EndClass() (Context, error) {
	if _, ok := g.ctx.(*ClassContext); !ok {
		return nil, &WrongContextError{Op: "end_class", Got: g.kindName()}
	}
	return g.exitContext(), nil
}

// BeginMethod opens a method on the current class or script. A getter
// must carry a non-void return type and no parameters; a setter a void
// return type and exactly one parameter — by the caller's convention, not
// enforced here. Constructors go through BeginConstructor instead.
func (g *Generator) BeginMethod(spec MethodSpec) (*MethodContext, error) {
	host, ok := g.ctx.(methodHost)
	if !ok {
		return nil, &WrongContextError{Op: "begin_method", Got: g.kindName()}
	}
	return newMethod(g, host, spec), nil
}

// BeginConstructor opens the instance initializer of the current class.
func (g *Generator) BeginConstructor(params []Param) (*MethodContext, error) {
	c, ok := g.ctx.(*ClassContext)
	if !ok {
		return nil, &WrongContextError{Op: "begin_constructor", Got: g.kindName()}
	}
	return c.MakeIInit(params)
}

// EndMethod finalizes the current method context. It refuses to close a
// constructor frame; those close through EndConstructor only.
func (g *Generator) EndMethod() (Context, error) {
	m, ok := g.ctx.(*MethodContext)
	if !ok {
		return nil, &WrongContextError{Op: "end_method", Got: g.kindName()}
	}
	if m.constructor {
		return nil, &WrongContextError{Op: "end_method", Got: "constructor"}
	}
	return g.exitContext(), nil
}

// EndConstructor finalizes the current constructor context.
func (g *Generator) EndConstructor() (Context, error) {
	m, ok := g.ctx.(*MethodContext)
	if !ok || !m.constructor {
		return nil, &WrongContextError{Op: "end_constructor", Got: g.kindName()}
	}
	return g.exitContext(), nil
}

// classLink resolves one step of a superclass chain, first against the
// platform library, then against a script's pending classes.
type classLink struct {
	name      abc.QName
	superName abc.QName
}

func (g *Generator) classLink(name abc.QName, pending map[abc.QName]*pendingClass) (classLink, bool) {
	if g.lib != nil {
		if info, ok := g.lib.ResolveType(name); ok {
			return classLink{name: info.Name, superName: info.SuperName}, true
		}
	}
	if p, ok := pending[name]; ok {
		return classLink{name: p.ctx.name, superName: p.ctx.superName}, true
	}
	return classLink{}, false
}

// ---------------------------------------------------------------------------
// Instruction emission

// Emit appends instructions to the current method body.
func (g *Generator) Emit(ins ...abc.Instruction) error {
	m, err := g.method("emit")
	if err != nil {
		return err
	}
	m.asm.Add(ins...)
	return nil
}

// StoreLocal pops the stack into the local bound to name, allocating or
// reusing a register, and returns the register.
func (g *Generator) StoreLocal(name string) (int, error) {
	m, err := g.method("store_local")
	if err != nil {
		return 0, err
	}
	reg := m.asm.SetLocal(name)
	m.asm.Add(setLocal(reg))
	return reg, nil
}

// LoadLocal pushes the local bound to name and returns its register.
func (g *Generator) LoadLocal(name string) (int, error) {
	m, err := g.method("load_local")
	if err != nil {
		return 0, err
	}
	reg, err := m.asm.GetLocal(name)
	if err != nil {
		return 0, err
	}
	m.asm.Add(getLocal(reg))
	return reg, nil
}

// KillLocal emits a kill for the local bound to name. When release is
// true the register is also freed for reuse; only release a local that is
// genuinely dead.
func (g *Generator) KillLocal(name string, release bool) error {
	m, err := g.method("kill_local")
	if err != nil {
		return err
	}
	var reg int
	if release {
		reg, err = m.asm.KillLocal(name)
	} else {
		reg, err = m.asm.GetLocal(name)
	}
	if err != nil {
		return err
	}
	m.asm.Add(killOp(reg))
	return nil
}

// HasLocal reports whether name is bound in the current method.
func (g *Generator) HasLocal(name string) (bool, error) {
	m, err := g.method("has_local")
	if err != nil {
		return false, err
	}
	return m.asm.HasLocal(name), nil
}

// NextLabel returns a fresh label name in the current method.
func (g *Generator) NextLabel(prefix string) (string, error) {
	m, err := g.method("next_label")
	if err != nil {
		return "", err
	}
	return m.NextLabel(prefix), nil
}

// SetLabel marks the current position with a label.
func (g *Generator) SetLabel(label string) error {
	return g.Emit(labelOp(label))
}

// BranchUnconditionally jumps to a label.
func (g *Generator) BranchUnconditionally(label string) error {
	return g.Emit(jumpOp(label))
}

// BranchConditionally branches to a label when the top of the stack,
// converted to a boolean, matches cond.
func (g *Generator) BranchConditionally(cond bool, label string) error {
	if cond {
		return g.BranchIfTrue(label)
	}
	return g.BranchIfFalse(label)
}

func (g *Generator) BranchIfTrue(label string) error  { return g.Emit(branchIf("iftrue", label)) }
func (g *Generator) BranchIfFalse(label string) error { return g.Emit(branchIf("iffalse", label)) }

func (g *Generator) BranchIfEqual(label string) error    { return g.Emit(branchIf("ifeq", label)) }
func (g *Generator) BranchIfNotEqual(label string) error { return g.Emit(branchIf("ifne", label)) }

func (g *Generator) BranchIfStrictEqual(label string) error {
	return g.Emit(branchIf("ifstricteq", label))
}

func (g *Generator) BranchIfStrictNotEqual(label string) error {
	return g.Emit(branchIf("ifstrictne", label))
}

func (g *Generator) BranchIfGreaterThan(label string) error   { return g.Emit(branchIf("ifgt", label)) }
func (g *Generator) BranchIfGreaterEquals(label string) error { return g.Emit(branchIf("ifge", label)) }
func (g *Generator) BranchIfLessThan(label string) error      { return g.Emit(branchIf("iflt", label)) }
func (g *Generator) BranchIfLessEquals(label string) error    { return g.Emit(branchIf("ifle", label)) }

func (g *Generator) BranchIfNotGreaterThan(label string) error {
	return g.Emit(branchIf("ifngt", label))
}

func (g *Generator) BranchIfNotGreaterEquals(label string) error {
	return g.Emit(branchIf("ifnge", label))
}

func (g *Generator) BranchIfNotLessThan(label string) error {
	return g.Emit(branchIf("ifnlt", label))
}

func (g *Generator) BranchIfNotLessEquals(label string) error {
	return g.Emit(branchIf("ifnle", label))
}

// Pop discards the top of the stack.
func (g *Generator) Pop() error { return g.Emit(opPop) }

// Dup duplicates the top of the stack. This duplicates the reference, not
// the object.
func (g *Generator) Dup() error { return g.Emit(opDup) }

// Swap exchanges the top two stack items.
func (g *Generator) Swap() error { return g.Emit(opSwap) }

// Throw throws the top of the stack.
func (g *Generator) Throw() error { return g.Emit(opThrow) }

// ReturnValue returns the top of the stack from the current method.
func (g *Generator) ReturnValue() error { return g.Emit(opReturnValue) }

// ReturnVoid returns from the current method with no value.
func (g *Generator) ReturnVoid() error { return g.Emit(opReturnVoid) }

// ---------------------------------------------------------------------------
// Value pushes

// PushThis pushes the receiver, always bound at register 0.
func (g *Generator) PushThis() error {
	_, err := g.LoadLocal("this")
	return err
}

// PushVar pushes the local bound to name.
func (g *Generator) PushVar(name string) error {
	_, err := g.LoadLocal(name)
	return err
}

// PushArg pushes the local bound to name, which must be a declared
// parameter of the current method.
func (g *Generator) PushArg(name string) error {
	m, err := g.method("push_arg")
	if err != nil {
		return err
	}
	for _, p := range m.params {
		if p.Name == name {
			_, err := g.LoadLocal(name)
			return err
		}
	}
	return &NotAnArgumentError{Name: name}
}

func (g *Generator) PushTrue() error      { return g.Emit(opPushTrue) }
func (g *Generator) PushFalse() error     { return g.Emit(opPushFalse) }
func (g *Generator) PushUndefined() error { return g.Emit(opPushUndefined) }
func (g *Generator) PushNull() error      { return g.Emit(opPushNull) }

// StoreVar pops the stack into the local bound to name.
func (g *Generator) StoreVar(name string) error {
	_, err := g.StoreLocal(name)
	return err
}

// ---------------------------------------------------------------------------
// Calls

// CallFunctionConstArgs finds the owner of a global function, pushes the
// constant arguments, and calls it.
func (g *Generator) CallFunctionConstArgs(name abc.QName, args ...any) error {
	if err := g.Emit(findPropStrict(name)); err != nil {
		return err
	}
	return g.CallMethodConstArgs(name, args...)
}

// CallFunctionConstArgsVoid is CallFunctionConstArgs discarding the
// return value.
func (g *Generator) CallFunctionConstArgsVoid(name abc.QName, args ...any) error {
	if err := g.Emit(findPropStrict(name)); err != nil {
		return err
	}
	return g.CallMethodConstArgsVoid(name, args...)
}

// CallMethodConstArgs calls a method on the object on the stack with the
// given constant arguments.
func (g *Generator) CallMethodConstArgs(name abc.QName, args ...any) error {
	if len(args) > 0 {
		if err := g.Load(args...); err != nil {
			return err
		}
	}
	return g.Emit(callProperty(name, len(args)))
}

// CallMethodConstArgsVoid is CallMethodConstArgs discarding the return
// value.
func (g *Generator) CallMethodConstArgsVoid(name abc.QName, args ...any) error {
	if len(args) > 0 {
		if err := g.Load(args...); err != nil {
			return err
		}
	}
	return g.Emit(callPropVoid(name, len(args)))
}

// CallFunction calls a global function with argc arguments already on the
// stack.
func (g *Generator) CallFunction(name abc.QName, argc int) error {
	if err := g.Emit(findPropStrict(name)); err != nil {
		return err
	}
	return g.Emit(callProperty(name, argc))
}

// CallMethod calls a method on the object on the stack with argc
// arguments already pushed.
func (g *Generator) CallMethod(name abc.QName, argc int) error {
	return g.Emit(callProperty(name, argc))
}

// CallMethodAs is CallMethod followed by a downcast of the result.
func (g *Generator) CallMethodAs(name abc.QName, argc int, typ abc.QName) error {
	if err := g.Emit(callProperty(name, argc)); err != nil {
		return err
	}
	return g.Downcast(typ)
}

// ---------------------------------------------------------------------------
// Properties and casts

// SetField pops a value and an object and sets the named field.
func (g *Generator) SetField(field abc.QName) error {
	return g.Emit(setProperty(field))
}

// SetFieldAs downcasts the value on the stack before setting the field.
func (g *Generator) SetFieldAs(field, typ abc.QName) error {
	if err := g.Downcast(typ); err != nil {
		return err
	}
	return g.SetField(field)
}

// GetField pops an object and pushes the named field.
func (g *Generator) GetField(field abc.QName) error {
	return g.Emit(getProperty(field))
}

// GetFieldAs is GetField followed by a downcast of the result.
func (g *Generator) GetFieldAs(field, typ abc.QName) error {
	if err := g.GetField(field); err != nil {
		return err
	}
	return g.Downcast(typ)
}

// fastCast holds the conversion ops that replace a generic coerce for the
// primitive types.
var fastCast = map[abc.QName]abc.Instruction{
	abc.QN("String"):  opCoerceString,
	abc.QN("Array"):   opCoerceAny,
	abc.QN("uint"):    opConvertUint,
	abc.QN("int"):     opConvertInt,
	abc.QN("Number"):  opConvertDouble,
	abc.QN("Object"):  opConvertObject,
	abc.QN("Boolean"): opConvertBool,
}

// Downcast coerces the top of the stack to typ, pushing null when the
// value is not an instance of it.
func (g *Generator) Downcast(typ abc.QName) error {
	if ins, ok := fastCast[typ]; ok {
		return g.Emit(ins)
	}
	return g.Emit(coerceOp(typ))
}

// IsInstance replaces the top of the stack with whether it is an instance
// of typ.
func (g *Generator) IsInstance(typ abc.QName) error {
	return g.Emit(isTypeOp(typ))
}

// GetType replaces the top object with its constructor.
func (g *Generator) GetType() error {
	if err := g.GetField(abc.QN("prototype")); err != nil {
		return err
	}
	return g.GetField(abc.QN("constructor"))
}

// ---------------------------------------------------------------------------
// Initializers

// InitArray pushes the members and builds an Array from them.
func (g *Generator) InitArray(members []any) error {
	if len(members) > 0 {
		if err := g.Load(members...); err != nil {
			return err
		}
	}
	return g.Emit(newArrayOp(len(members)))
}

// InitObject pushes the pairs and builds an Object from them. Keys are
// emitted in sorted order so the output is deterministic.
func (g *Generator) InitObject(members map[string]any) error {
	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := g.Load(k, members[k]); err != nil {
			return err
		}
	}
	return g.Emit(newObjectOp(len(members)))
}

// vectorName is the parametrizable platform Vector class.
var vectorName = abc.Packaged("__AS3__.vec", "Vector")

// pushVectorType pushes the Vector class applied to elem and returns the
// name to coerce the constructed value to.
func (g *Generator) pushVectorType(elem abc.QName) (abc.QName, error) {
	if err := g.Load(vectorName); err != nil {
		return abc.QName{}, err
	}
	if err := g.Load(elem); err != nil {
		return abc.QName{}, err
	}
	if err := g.Emit(applyTypeOp(1)); err != nil {
		return abc.QName{}, err
	}
	return vectorName, nil
}

// InitVector pushes the members and builds a Vector of elem from them.
func (g *Generator) InitVector(elem abc.QName, members []any) error {
	if len(members) > 0 {
		if err := g.Load(members...); err != nil {
			return err
		}
	}
	typ, err := g.pushVectorType(elem)
	if err != nil {
		return err
	}
	if err := g.Emit(constructOp(len(members))); err != nil {
		return err
	}
	return g.Emit(coerceOp(typ))
}

// NewVector constructs an empty Vector of elem with the given length.
func (g *Generator) NewVector(elem abc.QName, length int) error {
	typ, err := g.pushVectorType(elem)
	if err != nil {
		return err
	}
	if err := g.Load(length); err != nil {
		return err
	}
	if err := g.Emit(constructOp(1)); err != nil {
		return err
	}
	return g.Emit(coerceOp(typ))
}

// NewArray constructs an Array with the given length.
func (g *Generator) NewArray(length int) error {
	if err := g.Emit(opGetGlobalScope); err != nil {
		return err
	}
	if err := g.Load(length); err != nil {
		return err
	}
	return g.Emit(constructProp(abc.QN("Array"), 1))
}

// ---------------------------------------------------------------------------
// Try / catch

// BeginTry marks the start of a try region in the current method.
func (g *Generator) BeginTry() error {
	m, err := g.method("begin_try")
	if err != nil {
		return err
	}
	m.asm.Add(beginTry(m))
	return nil
}

// EndTry marks the end of the innermost open try region.
func (g *Generator) EndTry() error {
	m, err := g.method("end_try")
	if err != nil {
		return err
	}
	if len(m.openTries) == 0 {
		return fmt.Errorf("codegen: end_try without a matching begin_try")
	}
	m.asm.Add(endTry(m))
	return nil
}

// BeginCatch opens a catch region for the given caught type: it allocates
// the exception-table slot, re-establishes the scope stack, activates a
// catch overlay on the method frame, and emits the handler prologue that
// stores the caught value into a synthetic local and its scope slot.
func (g *Generator) BeginCatch(typ abc.Multinamer) error {
	m, err := g.method("begin_catch")
	if err != nil {
		return err
	}
	name := typ.Multiname()
	idx := m.addException(name)
	m.restoreScopes()

	local := fmt.Sprintf(".catch%d", len(m.catchLocals)+1)
	m.catchLocals = append(m.catchLocals, local)

	if err := g.Emit(newCatchOp(idx)); err != nil {
		return err
	}
	if err := g.Dup(); err != nil {
		return err
	}
	if err := g.StoreVar(local); err != nil {
		return err
	}
	if err := g.Dup(); err != nil {
		return err
	}
	if err := g.Emit(opPushScope); err != nil {
		return err
	}
	if err := g.Swap(); err != nil {
		return err
	}
	return g.Emit(setSlot(1))
}

// PushException pushes the caught value of the innermost catch region.
func (g *Generator) PushException() error {
	m, err := g.method("push_exception")
	if err != nil {
		return err
	}
	if err := g.Emit(getScopeObject(m.ScopeNest())); err != nil {
		return err
	}
	return g.Emit(getSlot(1))
}

// EndCatch closes the innermost catch region: it pops the handler scope,
// kills the synthetic local, and deactivates the overlay. The local's
// register stays reserved so a later catch at the same nesting level maps
// back to the same register.
func (g *Generator) EndCatch() error {
	m, err := g.method("end_catch")
	if err != nil {
		return err
	}
	if len(m.catchLocals) == 0 {
		return fmt.Errorf("codegen: end_catch without a matching begin_catch")
	}
	if err := g.Emit(opPopScope); err != nil {
		return err
	}
	local := m.catchLocals[len(m.catchLocals)-1]
	if err := g.KillLocal(local, false); err != nil {
		return err
	}
	m.catchLocals = m.catchLocals[:len(m.catchLocals)-1]
	return nil
}
