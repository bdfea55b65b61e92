package abc

import "fmt"

// TraitKind classifies a trait declaration.
type TraitKind uint8

const (
	TraitMethod TraitKind = iota
	TraitGetter
	TraitSetter
	TraitClass
	TraitSlot
	TraitConst
)

// String returns a human-readable name for TraitKind.
func (k TraitKind) String() string {
	switch k {
	case TraitMethod:
		return "method"
	case TraitGetter:
		return "getter"
	case TraitSetter:
		return "setter"
	case TraitClass:
		return "class"
	case TraitSlot:
		return "slot"
	case TraitConst:
		return "const"
	default:
		return fmt.Sprintf("TraitKind(%d)", k)
	}
}

// Trait is a named member declaration recorded in a class, instance or
// script record.
type Trait struct {
	Kind     TraitKind
	Name     QName
	Method   *MethodInfo // for method/getter/setter traits
	Class    *ClassRef   // for class traits
	Type     QName       // for slot/const traits
	SlotID   int
	Override bool
}

// ClassRef pairs the instance and class records of a finalized class, as
// referenced by a class trait.
type ClassRef struct {
	Instance *InstanceInfo
	Class    *ClassInfo
	Index    int // index of the instance record in the file
}

// MethodInfo is the signature record of a method: its name, parameter
// types and names, and return type.
type MethodInfo struct {
	Name       string
	ParamTypes []QName
	ParamNames []string
	ReturnType QName
}

// NewMethodInfo builds a signature record. A zero return type becomes the
// wildcard.
func NewMethodInfo(name string, paramTypes []QName, paramNames []string, ret QName) *MethodInfo {
	if ret.IsZero() {
		ret = AnyName
	}
	return &MethodInfo{
		Name:       name,
		ParamTypes: paramTypes,
		ParamNames: paramNames,
		ReturnType: ret,
	}
}

// Instruction is an opaque bytecode instruction: the method-body record
// only needs its opcode identity and display name. Concrete encodings live
// with the code generator.
type Instruction interface {
	OpName() string
	Opcode() byte
}

// MethodBodyInfo is the body record of a method: its assembled instruction
// sequence, the traits of its activation object, and its exception table.
type MethodBodyInfo struct {
	Method           *MethodInfo
	Code             []Instruction
	ActivationTraits []*Trait
	Exceptions       []*Exception
	LocalCount       int
}

// Exception is one entry in a method's exception table. From, To and
// Target are bytecode positions, -1 while unresolved; they are patched by
// the try/catch emission machinery.
type Exception struct {
	From     int
	To       int
	Target   int
	ExcType  QName
	VarName  string
}

// NewException returns an unresolved exception-table entry for the given
// caught type.
func NewException(excType QName) *Exception {
	return &Exception{From: -1, To: -1, Target: -1, ExcType: excType}
}

// InstanceInfo is the per-instance record of a class: its name, superclass,
// constructor and instance traits.
type InstanceInfo struct {
	Name      QName
	SuperName QName
	IInit     *MethodInfo
	Traits    []*Trait
}

// ClassInfo is the static record of a class: its class initializer and
// static traits.
type ClassInfo struct {
	CInit  *MethodInfo
	Traits []*Trait
}

// ScriptInfo is one entry in the global script table: an init method plus
// script-level traits.
type ScriptInfo struct {
	Init   *MethodInfo
	Traits []*Trait
}
