package library

import (
	"strings"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// MethodDesc describes one method of a native class.
type MethodDesc struct {
	Name       string      `cbor:"name"`
	ParamTypes []abc.QName `cbor:"params,omitempty"`
	ReturnType abc.QName   `cbor:"returns,omitempty"`
}

// FieldDesc describes one slot of a native class.
type FieldDesc struct {
	Name string    `cbor:"name"`
	Type abc.QName `cbor:"type,omitempty"`
}

// PropertyDesc describes one accessor pair of a native class. A property
// may carry only a getter or only a setter.
type PropertyDesc struct {
	Name   string    `cbor:"name"`
	Type   abc.QName `cbor:"type,omitempty"`
	Getter bool      `cbor:"getter,omitempty"`
	Setter bool      `cbor:"setter,omitempty"`
}

// ClassDesc is the library record for one native class: its identity,
// its supertype, and the members of its instance and static halves.
type ClassDesc struct {
	FullName abc.QName `cbor:"name"`
	BaseType abc.QName `cbor:"base,omitempty"`

	Fields       []FieldDesc `cbor:"fields,omitempty"`
	StaticFields []FieldDesc `cbor:"staticFields,omitempty"`

	Methods       []MethodDesc `cbor:"methods,omitempty"`
	StaticMethods []MethodDesc `cbor:"staticMethods,omitempty"`

	Properties       []PropertyDesc `cbor:"properties,omitempty"`
	StaticProperties []PropertyDesc `cbor:"staticProperties,omitempty"`
}

// Package returns the package component of the class name.
func (d *ClassDesc) Package() string { return d.FullName.NS }

// ShortName returns the unqualified class name.
func (d *ClassDesc) ShortName() string { return d.FullName.Name }

// HasMethod reports whether the instance half declares the named method
// or property.
func (d *ClassDesc) HasMethod(name string) bool {
	return hasMember(d.Methods, d.Properties, name)
}

// HasStaticMethod reports whether the static half declares the named
// method or property.
func (d *ClassDesc) HasStaticMethod(name string) bool {
	return hasMember(d.StaticMethods, d.StaticProperties, name)
}

func hasMember(methods []MethodDesc, props []PropertyDesc, name string) bool {
	for _, m := range methods {
		if m.Name == name {
			return true
		}
	}
	for _, p := range props {
		if p.Name == name {
			return true
		}
	}
	return false
}

// splitPath splits a dotted path into its components. The empty path has
// no components.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
