package abc

// Table is an interning record table. IndexFor deduplicates by record
// identity and returns a stable zero-based index, so finalizing the same
// record twice yields one table entry.
type Table[T any] struct {
	records []*T
	index   map[*T]int
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{index: make(map[*T]int)}
}

// IndexFor interns the record and returns its index.
func (t *Table[T]) IndexFor(rec *T) int {
	if i, ok := t.index[rec]; ok {
		return i
	}
	i := len(t.records)
	t.records = append(t.records, rec)
	t.index[rec] = i
	return i
}

// Lookup reports whether the record has been interned, and its index.
func (t *Table[T]) Lookup(rec *T) (int, bool) {
	i, ok := t.index[rec]
	return i, ok
}

// At returns the record at the given index.
func (t *Table[T]) At(i int) *T {
	return t.records[i]
}

// Len returns the number of interned records.
func (t *Table[T]) Len() int {
	return len(t.records)
}

// All returns the interned records in index order.
func (t *Table[T]) All() []*T {
	return t.records
}

// File accumulates the record tables of one bytecode file. It is the sole
// output of context-stack finalization and the input to serialization.
type File struct {
	Constants *Pool

	Methods   *Table[MethodInfo]
	Bodies    *Table[MethodBodyInfo]
	Instances *Table[InstanceInfo]
	Classes   *Table[ClassInfo]
	Scripts   *Table[ScriptInfo]
}

// NewFile returns an empty bytecode file accumulator.
func NewFile() *File {
	return &File{
		Constants: NewPool(),
		Methods:   NewTable[MethodInfo](),
		Bodies:    NewTable[MethodBodyInfo](),
		Instances: NewTable[InstanceInfo](),
		Classes:   NewTable[ClassInfo](),
		Scripts:   NewTable[ScriptInfo](),
	}
}
