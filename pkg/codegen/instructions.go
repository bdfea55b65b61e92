package codegen

import (
	"fmt"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// The generator emits a fixed repertoire of instructions. Each kind below
// satisfies abc.Instruction; kinds whose operands live in the constant
// pool additionally implement poolParticipant so the assembler can intern
// them at emission time.

type poolParticipant interface {
	intern(p *abc.Pool)
}

type simpleOp struct {
	name string
	code byte
}

func (o simpleOp) OpName() string { return o.name }
func (o simpleOp) Opcode() byte   { return o.code }

// Stack and control ops without operands.
var (
	opDup            = simpleOp{"dup", 0x2a}
	opPop            = simpleOp{"pop", 0x29}
	opSwap           = simpleOp{"swap", 0x2b}
	opThrow          = simpleOp{"throw", 0x03}
	opPushScope      = simpleOp{"pushscope", 0x30}
	opPopScope       = simpleOp{"popscope", 0x1d}
	opPushTrue       = simpleOp{"pushtrue", 0x26}
	opPushFalse      = simpleOp{"pushfalse", 0x27}
	opPushNaN        = simpleOp{"pushnan", 0x28}
	opPushUndefined  = simpleOp{"pushundefined", 0x21}
	opPushNull       = simpleOp{"pushnull", 0x20}
	opReturnValue    = simpleOp{"returnvalue", 0x48}
	opReturnVoid     = simpleOp{"returnvoid", 0x47}
	opGetGlobalScope = simpleOp{"getglobalscope", 0x64}
	opCoerceAny      = simpleOp{"coerce_a", 0x82}
	opCoerceString   = simpleOp{"coerce_s", 0x85}
	opConvertInt     = simpleOp{"convert_i", 0x73}
	opConvertUint    = simpleOp{"convert_u", 0x74}
	opConvertDouble  = simpleOp{"convert_d", 0x75}
	opConvertBool    = simpleOp{"convert_b", 0x76}
	opConvertObject  = simpleOp{"convert_o", 0x77}
)

// indexOp is an instruction with one small unsigned operand: a register,
// a scope index, a slot, an argument count or a table index.
type indexOp struct {
	simpleOp
	index int
}

func (o indexOp) String() string {
	return fmt.Sprintf("%s %d", o.name, o.index)
}

func getLocal(reg int) abc.Instruction {
	return indexOp{simpleOp{"getlocal", 0x62}, reg}
}

func setLocal(reg int) abc.Instruction {
	return indexOp{simpleOp{"setlocal", 0x63}, reg}
}

func killOp(reg int) abc.Instruction {
	return indexOp{simpleOp{"kill", 0x08}, reg}
}

func getScopeObject(idx int) abc.Instruction {
	return indexOp{simpleOp{"getscopeobject", 0x65}, idx}
}

func newClass(idx int) abc.Instruction {
	return indexOp{simpleOp{"newclass", 0x58}, idx}
}

func newArrayOp(argc int) abc.Instruction {
	return indexOp{simpleOp{"newarray", 0x56}, argc}
}

func newObjectOp(argc int) abc.Instruction {
	return indexOp{simpleOp{"newobject", 0x55}, argc}
}

func constructOp(argc int) abc.Instruction {
	return indexOp{simpleOp{"construct", 0x42}, argc}
}

func applyTypeOp(argc int) abc.Instruction {
	return indexOp{simpleOp{"applytype", 0x53}, argc}
}

func constructSuper(argc int) abc.Instruction {
	return indexOp{simpleOp{"constructsuper", 0x49}, argc}
}

func newCatchOp(idx int) abc.Instruction {
	return indexOp{simpleOp{"newcatch", 0x5a}, idx}
}

func setSlot(slot int) abc.Instruction {
	return indexOp{simpleOp{"setslot", 0x6d}, slot}
}

func getSlot(slot int) abc.Instruction {
	return indexOp{simpleOp{"getslot", 0x6c}, slot}
}

func pushByte(v int) abc.Instruction {
	return indexOp{simpleOp{"pushbyte", 0x24}, v}
}

// nameOp is an instruction whose operand is a qualified name in the
// constant pool.
type nameOp struct {
	simpleOp
	name abc.QName
}

func (o nameOp) String() string {
	return fmt.Sprintf("%s %s", o.simpleOp.name, o.name)
}

func (o nameOp) intern(p *abc.Pool) {
	p.NameIndex(o.name)
}

func getLex(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"getlex", 0x60}, n}
}

func initProperty(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"initproperty", 0x68}, n}
}

func findPropStrict(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"findpropstrict", 0x5d}, n}
}

func getProperty(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"getproperty", 0x66}, n}
}

func setProperty(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"setproperty", 0x61}, n}
}

func coerceOp(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"coerce", 0x80}, n}
}

func isTypeOp(n abc.QName) abc.Instruction {
	return nameOp{simpleOp{"istype", 0xb2}, n}
}

// nameArgcOp is a property call: a pooled name plus an argument count.
type nameArgcOp struct {
	simpleOp
	name abc.QName
	argc int
}

func (o nameArgcOp) String() string {
	return fmt.Sprintf("%s %s %d", o.simpleOp.name, o.name, o.argc)
}

func (o nameArgcOp) intern(p *abc.Pool) {
	p.NameIndex(o.name)
}

func callProperty(n abc.QName, argc int) abc.Instruction {
	return nameArgcOp{simpleOp{"callproperty", 0x46}, n, argc}
}

func callPropVoid(n abc.QName, argc int) abc.Instruction {
	return nameArgcOp{simpleOp{"callpropvoid", 0x4f}, n, argc}
}

func constructProp(n abc.QName, argc int) abc.Instruction {
	return nameArgcOp{simpleOp{"constructprop", 0x4a}, n, argc}
}

// Constant pushes with pooled operands.

type pushIntOp struct {
	simpleOp
	value int64
}

func (o pushIntOp) intern(p *abc.Pool) {
	p.IntIndex(o.value)
}

func pushInt(v int64) abc.Instruction {
	return pushIntOp{simpleOp{"pushint", 0x2d}, v}
}

type pushUintOp struct {
	simpleOp
	value uint64
}

func (o pushUintOp) intern(p *abc.Pool) {
	p.UintIndex(o.value)
}

func pushUint(v uint64) abc.Instruction {
	return pushUintOp{simpleOp{"pushuint", 0x2e}, v}
}

type pushDoubleOp struct {
	simpleOp
	value float64
}

func (o pushDoubleOp) intern(p *abc.Pool) {
	p.DoubleIndex(o.value)
}

func pushDouble(v float64) abc.Instruction {
	return pushDoubleOp{simpleOp{"pushdouble", 0x2f}, v}
}

type pushStringOp struct {
	simpleOp
	value string
}

func (o pushStringOp) intern(p *abc.Pool) {
	p.StringIndex(o.value)
}

func pushString(v string) abc.Instruction {
	return pushStringOp{simpleOp{"pushstring", 0x2c}, v}
}

// branchOp is a label definition or a branch targeting a label.
type branchOp struct {
	simpleOp
	label string
}

func (o branchOp) String() string {
	return fmt.Sprintf("%s %s", o.name, o.label)
}

func labelOp(name string) abc.Instruction {
	return branchOp{simpleOp{"label", 0x09}, name}
}

func jumpOp(label string) abc.Instruction {
	return branchOp{simpleOp{"jump", 0x10}, label}
}

var branchOpcodes = map[string]byte{
	"iftrue":     0x11,
	"iffalse":    0x12,
	"ifeq":       0x13,
	"ifne":       0x14,
	"iflt":       0x15,
	"ifle":       0x16,
	"ifgt":       0x17,
	"ifge":       0x18,
	"ifstricteq": 0x19,
	"ifstrictne": 0x1a,
	"ifnlt":      0x0c,
	"ifnle":      0x0d,
	"ifngt":      0x0e,
	"ifnge":      0x0f,
}

func branchIf(kind, label string) abc.Instruction {
	code, ok := branchOpcodes[kind]
	if !ok {
		panic(fmt.Sprintf("codegen: unknown branch kind %q", kind))
	}
	return branchOp{simpleOp{kind, code}, label}
}

// Try/catch bookkeeping. These are assembly-time markers, not bytecode:
// when added, the assembler records the current code position into the
// owning method context's exception machinery and drops the marker. Each
// carries a back-reference to the context whose exception table it
// patches.

type beginTryMarker struct {
	ctx *MethodContext
}

func (beginTryMarker) OpName() string { return "begintry" }
func (beginTryMarker) Opcode() byte   { return 0 }

type endTryMarker struct {
	ctx *MethodContext
}

func (endTryMarker) OpName() string { return "endtry" }
func (endTryMarker) Opcode() byte   { return 0 }

type excInfoMarker struct {
	ctx *MethodContext
	exc *abc.Exception
}

func (excInfoMarker) OpName() string { return "addexcinfo" }
func (excInfoMarker) Opcode() byte   { return 0 }

func beginTry(ctx *MethodContext) abc.Instruction {
	return beginTryMarker{ctx}
}

func endTry(ctx *MethodContext) abc.Instruction {
	return endTryMarker{ctx}
}

func addExcInfo(ctx *MethodContext, exc *abc.Exception) abc.Instruction {
	return excInfoMarker{ctx, exc}
}
