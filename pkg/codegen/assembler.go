package codegen

import (
	"fmt"
	"sort"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// ErrUnknownLocal is returned when a local name has no register binding.
var ErrUnknownLocal = fmt.Errorf("codegen: unknown local")

// Assembler is the growable instruction sequence of one method body plus
// its local-variable table. Register 0 is always the receiver; declared
// parameters follow in order. Instructions whose operands live in the
// constant pool are interned as they are added.
type Assembler struct {
	pool   *abc.Pool
	code   []abc.Instruction
	locals map[string]int
	freed  []int
	high   int
}

// NewAssembler returns an assembler with the given names pre-bound to
// registers 0..len(names)-1. The first name is conventionally "this".
func NewAssembler(pool *abc.Pool, names []string) *Assembler {
	a := &Assembler{pool: pool, locals: make(map[string]int)}
	for i, n := range names {
		a.locals[n] = i
	}
	a.high = len(names)
	return a
}

// Add appends instructions to the body. Pool operands are interned;
// try/catch markers are consumed here instead of being appended, patching
// the owning context's exception table with the current code position.
func (a *Assembler) Add(ins ...abc.Instruction) {
	for _, i := range ins {
		switch m := i.(type) {
		case beginTryMarker:
			m.ctx.openTries = append(m.ctx.openTries, tryRegion{from: len(a.code), to: -1})
		case endTryMarker:
			n := len(m.ctx.openTries) - 1
			region := m.ctx.openTries[n]
			region.to = len(a.code)
			m.ctx.openTries = m.ctx.openTries[:n]
			m.ctx.closedTry = region
		case excInfoMarker:
			m.exc.From = m.ctx.closedTry.from
			m.exc.To = m.ctx.closedTry.to
			m.exc.Target = len(a.code)
		default:
			if p, ok := i.(poolParticipant); ok {
				p.intern(a.pool)
			}
			a.code = append(a.code, i)
		}
	}
}

// Instructions returns the assembled sequence. The slice is the
// assembler's own backing; script finalization detaches and reattaches
// through it.
func (a *Assembler) Instructions() []abc.Instruction {
	return a.code
}

// SetInstructions replaces the assembled sequence.
func (a *Assembler) SetInstructions(code []abc.Instruction) {
	a.code = code
}

// NextFreeLocal returns the register the next fresh binding would get.
func (a *Assembler) NextFreeLocal() int {
	if len(a.freed) > 0 {
		return a.freed[0]
	}
	return a.high
}

// SetLocal binds a name to a register, reusing the lowest freed register
// before growing the frame, and returns the register. An existing binding
// keeps its register. This is bookkeeping only; it emits nothing.
func (a *Assembler) SetLocal(name string) int {
	if reg, ok := a.locals[name]; ok {
		return reg
	}
	var reg int
	if len(a.freed) > 0 {
		reg = a.freed[0]
		a.freed = a.freed[1:]
	} else {
		reg = a.high
		a.high++
	}
	a.locals[name] = reg
	return reg
}

// KillLocal unbinds a name and marks its register free for reuse,
// returning the freed register. Bookkeeping only.
func (a *Assembler) KillLocal(name string) (int, error) {
	reg, ok := a.locals[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocal, name)
	}
	delete(a.locals, name)
	a.freed = append(a.freed, reg)
	sort.Ints(a.freed)
	return reg, nil
}

// GetLocal returns the register bound to a name.
func (a *Assembler) GetLocal(name string) (int, error) {
	reg, ok := a.locals[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocal, name)
	}
	return reg, nil
}

// HasLocal reports whether a name is bound.
func (a *Assembler) HasLocal(name string) bool {
	_, ok := a.locals[name]
	return ok
}

// LocalCount returns the frame size: the high-water register count.
func (a *Assembler) LocalCount() int {
	return a.high
}
