package abc

// Pool is the constant pool of a bytecode file. Each section interns values
// and hands out stable 1-based indices; index 0 is reserved for the empty
// or wildcard entry, following the AVM2 convention.
type Pool struct {
	ints    []int64
	uints   []uint64
	doubles []float64
	strings []string
	names   []QName

	intIndex    map[int64]int
	uintIndex   map[uint64]int
	doubleIndex map[float64]int
	stringIndex map[string]int
	nameIndex   map[QName]int
}

// NewPool returns an empty constant pool.
func NewPool() *Pool {
	return &Pool{
		intIndex:    make(map[int64]int),
		uintIndex:   make(map[uint64]int),
		doubleIndex: make(map[float64]int),
		stringIndex: make(map[string]int),
		nameIndex:   make(map[QName]int),
	}
}

// IntIndex interns a signed integer and returns its index.
func (p *Pool) IntIndex(v int64) int {
	if i, ok := p.intIndex[v]; ok {
		return i
	}
	p.ints = append(p.ints, v)
	i := len(p.ints)
	p.intIndex[v] = i
	return i
}

// UintIndex interns an unsigned integer and returns its index.
func (p *Pool) UintIndex(v uint64) int {
	if i, ok := p.uintIndex[v]; ok {
		return i
	}
	p.uints = append(p.uints, v)
	i := len(p.uints)
	p.uintIndex[v] = i
	return i
}

// DoubleIndex interns a float and returns its index.
func (p *Pool) DoubleIndex(v float64) int {
	if i, ok := p.doubleIndex[v]; ok {
		return i
	}
	p.doubles = append(p.doubles, v)
	i := len(p.doubles)
	p.doubleIndex[v] = i
	return i
}

// StringIndex interns a string and returns its index. The empty string
// maps to index 0.
func (p *Pool) StringIndex(v string) int {
	if v == "" {
		return 0
	}
	if i, ok := p.stringIndex[v]; ok {
		return i
	}
	p.strings = append(p.strings, v)
	i := len(p.strings)
	p.stringIndex[v] = i
	return i
}

// NameIndex interns a qualified name and returns its index. The wildcard
// name maps to index 0.
func (p *Pool) NameIndex(q QName) int {
	if q.IsZero() || q.IsAny() {
		return 0
	}
	if i, ok := p.nameIndex[q]; ok {
		return i
	}
	p.StringIndex(q.NS)
	p.StringIndex(q.Name)
	p.names = append(p.names, q)
	i := len(p.names)
	p.nameIndex[q] = i
	return i
}

// Ints returns the interned signed integers in index order.
func (p *Pool) Ints() []int64 { return p.ints }

// Uints returns the interned unsigned integers in index order.
func (p *Pool) Uints() []uint64 { return p.uints }

// Doubles returns the interned floats in index order.
func (p *Pool) Doubles() []float64 { return p.doubles }

// Strings returns the interned strings in index order.
func (p *Pool) Strings() []string { return p.strings }

// Names returns the interned qualified names in index order.
func (p *Pool) Names() []QName { return p.names }
