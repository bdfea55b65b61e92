package codegen

import (
	"fmt"
	"math"
	"reflect"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// Loadable is a value that knows how to push itself onto the operand
// stack.
type Loadable interface {
	Load(g *Generator) error
}

// LoaderFunc pushes a plain value of one registered runtime type.
type LoaderFunc func(g *Generator, v any) error

// RegisterLoader teaches Load how to push values of sample's type. The
// registry is per generator; built-in shapes are pre-registered.
func (g *Generator) RegisterLoader(sample any, fn LoaderFunc) {
	g.loaders[reflect.TypeOf(sample)] = fn
}

// Load pushes values onto the operand stack, in order. A value exposing a
// qualified name loads as a global lexical lookup; a Loadable loads
// itself; anything else dispatches on its runtime type through the
// generator's adapter registry.
func (g *Generator) Load(values ...any) error {
	for _, v := range values {
		if err := g.loadOne(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) loadOne(v any) error {
	if v == nil {
		return g.PushNull()
	}
	if m, ok := v.(abc.Multinamer); ok {
		return g.Emit(getLex(m.Multiname()))
	}
	if l, ok := v.(Loadable); ok {
		return l.Load(g)
	}
	if fn, ok := g.loaders[reflect.TypeOf(v)]; ok {
		return fn(g, v)
	}
	return fmt.Errorf("codegen: no loadable adapter for %T", v)
}

func registerDefaultLoaders(g *Generator) {
	loadBool := func(g *Generator, v any) error {
		if v.(bool) {
			return g.PushTrue()
		}
		return g.PushFalse()
	}
	loadFloat := func(g *Generator, v any) error {
		f := reflect.ValueOf(v).Float()
		if math.IsNaN(f) {
			return g.Emit(opPushNaN)
		}
		return g.Emit(pushDouble(f))
	}
	loadInt := func(g *Generator, v any) error {
		return g.loadInt(reflect.ValueOf(v).Int())
	}
	loadUint := func(g *Generator, v any) error {
		return g.loadUint(reflect.ValueOf(v).Uint())
	}
	loadString := func(g *Generator, v any) error {
		return g.Emit(pushString(v.(string)))
	}
	loadList := func(g *Generator, v any) error {
		return g.InitArray(v.([]any))
	}
	loadMap := func(g *Generator, v any) error {
		return g.InitObject(v.(map[string]any))
	}

	g.RegisterLoader(false, loadBool)
	g.RegisterLoader(int(0), loadInt)
	g.RegisterLoader(int32(0), loadInt)
	g.RegisterLoader(int64(0), loadInt)
	g.RegisterLoader(uint(0), loadUint)
	g.RegisterLoader(uint32(0), loadUint)
	g.RegisterLoader(uint64(0), loadUint)
	g.RegisterLoader(float32(0), loadFloat)
	g.RegisterLoader(float64(0), loadFloat)
	g.RegisterLoader("", loadString)
	g.RegisterLoader([]any(nil), loadList)
	g.RegisterLoader(map[string]any(nil), loadMap)
}

// Integer pushes use the narrowest encoding that fits: a single byte for
// 0..255, a 32-bit pool constant when the value fits one, a double
// otherwise.
const (
	maxUint32 = int64(math.MaxUint32)
	maxInt32  = int64(math.MaxInt32)
)

func (g *Generator) loadInt(v int64) error {
	switch {
	case v > maxUint32 || v < -maxInt32:
		return g.Emit(pushDouble(float64(v)))
	case v >= 0 && v < 256:
		return g.Emit(pushByte(int(v)))
	case v >= 0:
		return g.Emit(pushUint(uint64(v)))
	default:
		return g.Emit(pushInt(v))
	}
}

func (g *Generator) loadUint(v uint64) error {
	switch {
	case v > uint64(maxUint32):
		return g.Emit(pushDouble(float64(v)))
	case v < 256:
		return g.Emit(pushByte(int(v)))
	default:
		return g.Emit(pushUint(v))
	}
}

// Local pushes the named local when loaded.
type Local struct {
	Name string
}

func (l Local) Load(g *Generator) error {
	return g.PushVar(l.Name)
}

// Argument pushes the named method argument when loaded.
type Argument struct {
	Name string
}

func (a Argument) Load(g *Generator) error {
	return g.PushArg(a.Name)
}
