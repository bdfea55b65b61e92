package codegen

import (
	"errors"
	"testing"

	"github.com/tangpei1215/fusion/pkg/abc"
)

func TestAssemblerParamBindings(t *testing.T) {
	a := NewAssembler(abc.NewPool(), []string{"this", "x", "y"})

	for i, name := range []string{"this", "x", "y"} {
		reg, err := a.GetLocal(name)
		if err != nil {
			t.Fatalf("GetLocal(%q): %v", name, err)
		}
		if reg != i {
			t.Errorf("register for %q = %d, want %d", name, reg, i)
		}
	}
	if a.LocalCount() != 3 {
		t.Errorf("LocalCount = %d, want 3", a.LocalCount())
	}
}

func TestAssemblerLowestFreedFirst(t *testing.T) {
	a := NewAssembler(abc.NewPool(), []string{"this"})

	ra := a.SetLocal("a") // 1
	rb := a.SetLocal("b") // 2
	rc := a.SetLocal("c") // 3
	if ra != 1 || rb != 2 || rc != 3 {
		t.Fatalf("registers = %d,%d,%d, want 1,2,3", ra, rb, rc)
	}

	a.KillLocal("c")
	a.KillLocal("a")
	if got := a.NextFreeLocal(); got != 1 {
		t.Errorf("NextFreeLocal = %d, want 1", got)
	}
	if reg := a.SetLocal("d"); reg != 1 {
		t.Errorf("register for d = %d, want 1", reg)
	}
	if reg := a.SetLocal("e"); reg != 3 {
		t.Errorf("register for e = %d, want 3", reg)
	}
	// High-water mark is unaffected by reuse.
	if a.LocalCount() != 4 {
		t.Errorf("LocalCount = %d, want 4", a.LocalCount())
	}
}

func TestAssemblerExistingBindingKeepsRegister(t *testing.T) {
	a := NewAssembler(abc.NewPool(), []string{"this"})

	first := a.SetLocal("v")
	again := a.SetLocal("v")
	if first != again {
		t.Errorf("rebinding moved the register: %d then %d", first, again)
	}
}

func TestAssemblerKillUnknown(t *testing.T) {
	a := NewAssembler(abc.NewPool(), []string{"this"})
	if _, err := a.KillLocal("ghost"); !errors.Is(err, ErrUnknownLocal) {
		t.Errorf("error = %v, want ErrUnknownLocal", err)
	}
	if _, err := a.GetLocal("ghost"); !errors.Is(err, ErrUnknownLocal) {
		t.Errorf("error = %v, want ErrUnknownLocal", err)
	}
}

func TestAssemblerInternsPoolOperands(t *testing.T) {
	pool := abc.NewPool()
	a := NewAssembler(pool, []string{"this"})

	a.Add(pushString("hi"))
	a.Add(pushDouble(2.5))
	a.Add(getLex(abc.QN("Object")))

	found := false
	for _, s := range pool.Strings() {
		if s == "hi" {
			found = true
		}
	}
	if !found {
		t.Error("string operand not interned")
	}
	if len(pool.Doubles()) != 1 {
		t.Errorf("doubles = %v, want one entry", pool.Doubles())
	}
	if len(pool.Names()) != 1 {
		t.Errorf("names = %d entries, want 1", len(pool.Names()))
	}
}

func TestAssemblerMarkersNeverEnterCode(t *testing.T) {
	pool := abc.NewPool()
	a := NewAssembler(pool, []string{"this"})
	m := &MethodContext{asm: a}

	a.Add(beginTry(m))
	a.Add(opPushNull)
	a.Add(endTry(m))

	exc := abc.NewException(abc.QN("Error"))
	a.Add(addExcInfo(m, exc))

	if len(a.Instructions()) != 1 {
		t.Fatalf("code length = %d, want 1", len(a.Instructions()))
	}
	if exc.From != 0 || exc.To != 1 || exc.Target != 1 {
		t.Errorf("exception region = [%d,%d)->%d, want [0,1)->1",
			exc.From, exc.To, exc.Target)
	}
}

func TestAssemblerNestedTryRegions(t *testing.T) {
	pool := abc.NewPool()
	a := NewAssembler(pool, []string{"this"})
	m := &MethodContext{asm: a}

	a.Add(beginTry(m))
	a.Add(opPushNull)
	a.Add(beginTry(m))
	a.Add(opPushTrue)
	a.Add(endTry(m))

	inner := abc.NewException(abc.QN("Error"))
	a.Add(addExcInfo(m, inner))
	if inner.From != 1 || inner.To != 2 {
		t.Errorf("inner region = [%d,%d), want [1,2)", inner.From, inner.To)
	}

	a.Add(opPop)
	a.Add(endTry(m))
	outer := abc.NewException(abc.QN("Error"))
	a.Add(addExcInfo(m, outer))
	if outer.From != 0 || outer.To != 3 {
		t.Errorf("outer region = [%d,%d), want [0,3)", outer.From, outer.To)
	}
}
