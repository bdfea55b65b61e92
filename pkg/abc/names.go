package abc

import "strings"

// QName is a namespaced identifier referencing a type, method or field in
// the bytecode's symbol space. The zero value is the empty name.
type QName struct {
	NS   string
	Name string
}

// AnyName is the wildcard name used for untyped signatures.
var AnyName = QName{Name: "*"}

// QN returns a qualified name in the default (public) namespace.
func QN(name string) QName {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return QName{NS: name[:i], Name: name[i+1:]}
	}
	return QName{Name: name}
}

// Packaged returns a qualified name inside a package namespace, as used for
// platform classes like flash.display.Sprite.
func Packaged(ns, name string) QName {
	return QName{NS: ns, Name: name}
}

// IsZero reports whether the name is empty.
func (q QName) IsZero() bool {
	return q.NS == "" && q.Name == ""
}

// IsAny reports whether the name is the wildcard.
func (q QName) IsAny() bool {
	return q.NS == "" && q.Name == "*"
}

// Multiname returns the name itself, satisfying Multinamer.
func (q QName) Multiname() QName {
	return q
}

func (q QName) String() string {
	if q.NS == "" {
		return q.Name
	}
	return q.NS + "." + q.Name
}

// Multinamer is implemented by values that can be referenced through a
// qualified name. Loading such a value emits a global lexical lookup.
type Multinamer interface {
	Multiname() QName
}
