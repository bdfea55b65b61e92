package abc

import (
	"fmt"

	"github.com/tangpei1215/fusion/pkg/bitstream"
)

// FormatVersion is the current container format version. Increment when
// making incompatible changes to the layout.
const FormatVersion uint16 = 1

// FormatMagic identifies a serialized bytecode file container.
var FormatMagic = []byte{'F', 'A', 'B', 'C'}

// Serialize encodes the file's tables to bytes through the bitstream
// layer. Code sections are written as opaque opcode listings; operand
// encodings are not part of this container.
//
// Layout:
//
//	[magic:4] [version:16]
//	[pool: ints, uints, doubles, strings, names]
//	[methods] [bodies] [instances] [classes] [scripts]
func (f *File) Serialize() ([]byte, error) {
	s := bitstream.New()
	s.WriteBytes(FormatMagic)
	if err := bitstream.Write(s, uint64(FormatVersion), bitstream.UB{Width: 16}); err != nil {
		return nil, err
	}

	w := &fileWriter{s: s, file: f}
	w.writePool(f.Constants)
	w.writeMethods()
	w.writeBodies()
	w.writeInstances()
	w.writeClasses()
	w.writeScripts()
	if w.err != nil {
		return nil, w.err
	}

	s.Flush()
	data, err := bitstream.Read(s.AtStart(), bitstream.ByteString{Count: s.Len() / 8})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// fileWriter carries the error state of a serialization pass so each
// section can be written without per-call error plumbing.
type fileWriter struct {
	s    *bitstream.BitStream
	file *File
	err  error
}

func (w *fileWriter) u16(v int) {
	if w.err == nil {
		w.err = bitstream.Write(w.s, uint64(v), bitstream.UB{Width: 16})
	}
}

func (w *fileWriter) u32(v int) {
	if w.err == nil {
		w.err = bitstream.Write(w.s, uint64(v), bitstream.UB{Width: 32})
	}
}

func (w *fileWriter) s32(v int) {
	if w.err == nil {
		w.err = bitstream.Write(w.s, int64(v), bitstream.SB{Width: 32})
	}
}

func (w *fileWriter) str(v string) {
	w.u16(len(v))
	if w.err == nil {
		w.s.WriteBytes([]byte(v))
	}
}

func (w *fileWriter) name(q QName) {
	w.str(q.NS)
	w.str(q.Name)
}

func (w *fileWriter) writePool(p *Pool) {
	w.u16(len(p.Ints()))
	for _, v := range p.Ints() {
		if w.err == nil {
			w.err = bitstream.Write(w.s, v, bitstream.SB{Width: 64})
		}
	}
	w.u16(len(p.Uints()))
	for _, v := range p.Uints() {
		if w.err == nil {
			w.err = bitstream.Write(w.s, v, bitstream.UB{Width: 64})
		}
	}
	w.u16(len(p.Doubles()))
	for _, v := range p.Doubles() {
		if w.err == nil {
			w.err = bitstream.Write(w.s, v, bitstream.Float{Width: 64})
		}
	}
	w.u16(len(p.Strings()))
	for _, v := range p.Strings() {
		w.str(v)
	}
	w.u16(len(p.Names()))
	for _, q := range p.Names() {
		w.name(q)
	}
}

func (w *fileWriter) writeMethods() {
	w.u16(w.file.Methods.Len())
	for _, m := range w.file.Methods.All() {
		w.str(m.Name)
		w.u16(len(m.ParamTypes))
		for i, pt := range m.ParamTypes {
			w.name(pt)
			if i < len(m.ParamNames) {
				w.str(m.ParamNames[i])
			} else {
				w.str("")
			}
		}
		w.name(m.ReturnType)
	}
}

func (w *fileWriter) methodIndex(m *MethodInfo) int {
	if m == nil {
		return -1
	}
	if i, ok := w.file.Methods.Lookup(m); ok {
		return i
	}
	if w.err == nil {
		w.err = fmt.Errorf("abc: method %q referenced but not interned", m.Name)
	}
	return -1
}

func (w *fileWriter) writeTraits(traits []*Trait) {
	w.u16(len(traits))
	for _, t := range traits {
		if w.err == nil {
			w.s.WriteBytes([]byte{byte(t.Kind)})
		}
		w.name(t.Name)
		override := 0
		if t.Override {
			override = 1
		}
		w.u16(override)
		switch t.Kind {
		case TraitMethod, TraitGetter, TraitSetter:
			w.s32(w.methodIndex(t.Method))
		case TraitClass:
			if t.Class == nil {
				w.s32(-1)
			} else {
				w.s32(t.Class.Index)
			}
		case TraitSlot, TraitConst:
			w.name(t.Type)
			w.u16(t.SlotID)
		}
	}
}

func (w *fileWriter) writeBodies() {
	w.u16(w.file.Bodies.Len())
	for _, b := range w.file.Bodies.All() {
		w.s32(w.methodIndex(b.Method))
		w.u16(b.LocalCount)
		w.u32(len(b.Code))
		for _, ins := range b.Code {
			if w.err == nil {
				w.s.WriteBytes([]byte{ins.Opcode()})
			}
		}
		w.writeTraits(b.ActivationTraits)
		w.u16(len(b.Exceptions))
		for _, e := range b.Exceptions {
			w.s32(e.From)
			w.s32(e.To)
			w.s32(e.Target)
			w.name(e.ExcType)
			w.str(e.VarName)
		}
	}
}

func (w *fileWriter) writeInstances() {
	w.u16(w.file.Instances.Len())
	for _, inst := range w.file.Instances.All() {
		w.name(inst.Name)
		w.name(inst.SuperName)
		w.s32(w.methodIndex(inst.IInit))
		w.writeTraits(inst.Traits)
	}
}

func (w *fileWriter) writeClasses() {
	w.u16(w.file.Classes.Len())
	for _, cls := range w.file.Classes.All() {
		w.s32(w.methodIndex(cls.CInit))
		w.writeTraits(cls.Traits)
	}
}

func (w *fileWriter) writeScripts() {
	w.u16(w.file.Scripts.Len())
	for _, sc := range w.file.Scripts.All() {
		w.s32(w.methodIndex(sc.Init))
		w.writeTraits(sc.Traits)
	}
}

// rawOp is the opaque instruction form produced by deserialization: the
// opcode identity survives; the operand payload does not.
type rawOp struct {
	op byte
}

func (r rawOp) OpName() string {
	return fmt.Sprintf("op_0x%02x", r.op)
}

func (r rawOp) Opcode() byte {
	return r.op
}

// Deserialize decodes a container produced by Serialize. Code sections
// come back as opaque opcode listings.
func Deserialize(data []byte) (*File, error) {
	s := bitstream.FromBytes(data)

	magic, err := bitstream.Read(s, bitstream.ByteString{Count: 4})
	if err != nil {
		return nil, fmt.Errorf("abc: reading magic: %w", err)
	}
	if string(magic) != string(FormatMagic) {
		return nil, fmt.Errorf("abc: invalid magic: expected %q, got %q", FormatMagic, magic)
	}
	version, err := bitstream.Read(s, bitstream.UB{Width: 16})
	if err != nil {
		return nil, fmt.Errorf("abc: reading version: %w", err)
	}
	if uint16(version) > FormatVersion {
		return nil, fmt.Errorf("abc: container version %d is newer than supported version %d", version, FormatVersion)
	}

	f := NewFile()
	r := &fileReader{s: s, file: f}
	r.readPool()
	r.readMethods()
	r.readBodies()
	r.readInstances()
	r.readClasses()
	r.readScripts()
	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}

type fileReader struct {
	s       *bitstream.BitStream
	file    *File
	methods []*MethodInfo
	err     error
}

func (r *fileReader) u16() int {
	if r.err != nil {
		return 0
	}
	v, err := bitstream.Read(r.s, bitstream.UB{Width: 16})
	if err != nil {
		r.err = fmt.Errorf("abc: truncated container: %w", err)
		return 0
	}
	return int(v)
}

func (r *fileReader) u32() int {
	if r.err != nil {
		return 0
	}
	v, err := bitstream.Read(r.s, bitstream.UB{Width: 32})
	if err != nil {
		r.err = fmt.Errorf("abc: truncated container: %w", err)
		return 0
	}
	return int(v)
}

func (r *fileReader) s32() int {
	if r.err != nil {
		return 0
	}
	v, err := bitstream.Read(r.s, bitstream.SB{Width: 32})
	if err != nil {
		r.err = fmt.Errorf("abc: truncated container: %w", err)
		return 0
	}
	return int(v)
}

func (r *fileReader) byte() byte {
	if r.err != nil {
		return 0
	}
	v, err := bitstream.Read(r.s, bitstream.Byte)
	if err != nil {
		r.err = fmt.Errorf("abc: truncated container: %w", err)
		return 0
	}
	return byte(v)
}

func (r *fileReader) str() string {
	n := r.u16()
	if r.err != nil {
		return ""
	}
	data, err := r.s.ReadBytes(n)
	if err != nil {
		r.err = fmt.Errorf("abc: truncated string: %w", err)
		return ""
	}
	return string(data)
}

func (r *fileReader) name() QName {
	ns := r.str()
	name := r.str()
	return QName{NS: ns, Name: name}
}

func (r *fileReader) methodAt(i int) *MethodInfo {
	if i < 0 {
		return nil
	}
	if i >= len(r.methods) {
		if r.err == nil {
			r.err = fmt.Errorf("abc: method index %d out of range", i)
		}
		return nil
	}
	return r.methods[i]
}

func (r *fileReader) readPool() {
	p := r.file.Constants
	for n := r.u16(); n > 0 && r.err == nil; n-- {
		v, err := bitstream.Read(r.s, bitstream.SB{Width: 64})
		if err != nil {
			r.err = err
			return
		}
		p.IntIndex(v)
	}
	for n := r.u16(); n > 0 && r.err == nil; n-- {
		v, err := bitstream.Read(r.s, bitstream.UB{Width: 64})
		if err != nil {
			r.err = err
			return
		}
		p.UintIndex(v)
	}
	for n := r.u16(); n > 0 && r.err == nil; n-- {
		v, err := bitstream.Read(r.s, bitstream.Float{Width: 64})
		if err != nil {
			r.err = err
			return
		}
		p.DoubleIndex(v)
	}
	for n := r.u16(); n > 0 && r.err == nil; n-- {
		p.StringIndex(r.str())
	}
	for n := r.u16(); n > 0 && r.err == nil; n-- {
		p.NameIndex(r.name())
	}
}

func (r *fileReader) readMethods() {
	n := r.u16()
	for i := 0; i < n && r.err == nil; i++ {
		m := &MethodInfo{Name: r.str()}
		params := r.u16()
		for j := 0; j < params && r.err == nil; j++ {
			m.ParamTypes = append(m.ParamTypes, r.name())
			m.ParamNames = append(m.ParamNames, r.str())
		}
		m.ReturnType = r.name()
		r.file.Methods.IndexFor(m)
		r.methods = append(r.methods, m)
	}
}

func (r *fileReader) readTraits() []*Trait {
	n := r.u16()
	traits := make([]*Trait, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		t := &Trait{Kind: TraitKind(r.byte()), Name: r.name()}
		t.Override = r.u16() != 0
		switch t.Kind {
		case TraitMethod, TraitGetter, TraitSetter:
			t.Method = r.methodAt(r.s32())
		case TraitClass:
			if idx := r.s32(); idx >= 0 {
				t.Class = &ClassRef{Index: idx}
			}
		case TraitSlot, TraitConst:
			t.Type = r.name()
			t.SlotID = r.u16()
		}
		traits = append(traits, t)
	}
	return traits
}

func (r *fileReader) readBodies() {
	n := r.u16()
	for i := 0; i < n && r.err == nil; i++ {
		b := &MethodBodyInfo{Method: r.methodAt(r.s32())}
		b.LocalCount = r.u16()
		codeLen := r.u32()
		for j := 0; j < codeLen && r.err == nil; j++ {
			b.Code = append(b.Code, rawOp{op: r.byte()})
		}
		b.ActivationTraits = r.readTraits()
		excs := r.u16()
		for j := 0; j < excs && r.err == nil; j++ {
			e := &Exception{From: r.s32(), To: r.s32(), Target: r.s32()}
			e.ExcType = r.name()
			e.VarName = r.str()
			b.Exceptions = append(b.Exceptions, e)
		}
		r.file.Bodies.IndexFor(b)
	}
}

func (r *fileReader) readInstances() {
	n := r.u16()
	for i := 0; i < n && r.err == nil; i++ {
		inst := &InstanceInfo{Name: r.name(), SuperName: r.name()}
		inst.IInit = r.methodAt(r.s32())
		inst.Traits = r.readTraits()
		r.file.Instances.IndexFor(inst)
	}
}

func (r *fileReader) readClasses() {
	n := r.u16()
	for i := 0; i < n && r.err == nil; i++ {
		cls := &ClassInfo{CInit: r.methodAt(r.s32())}
		cls.Traits = r.readTraits()
		r.file.Classes.IndexFor(cls)
	}
}

func (r *fileReader) readScripts() {
	n := r.u16()
	for i := 0; i < n && r.err == nil; i++ {
		sc := &ScriptInfo{Init: r.methodAt(r.s32())}
		sc.Traits = r.readTraits()
		r.file.Scripts.IndexFor(sc)
	}
}
