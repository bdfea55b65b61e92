package library

import (
	"errors"
	"fmt"

	"github.com/tangpei1215/fusion/pkg/abc"
	"github.com/tangpei1215/fusion/pkg/codegen"
)

// ErrTypeNotFound indicates the requested type is in no installed class
// description.
var ErrTypeNotFound = errors.New("library: type not found")

// Package is one node of the explicit package tree. The zero-named node
// is the toplevel package.
type Package struct {
	name     string
	packages map[string]*Package
	types    map[string]*ClassDesc
}

func newPackage(name string) *Package {
	return &Package{
		name:     name,
		packages: make(map[string]*Package),
		types:    make(map[string]*ClassDesc),
	}
}

// Name returns the full dotted package name; empty for the toplevel.
func (p *Package) Name() string { return p.name }

// Package returns the named direct subpackage.
func (p *Package) Package(name string) (*Package, bool) {
	sub, ok := p.packages[name]
	return sub, ok
}

// Type returns the named class declared directly in this package.
func (p *Package) Type(name string) (*ClassDesc, bool) {
	d, ok := p.types[name]
	return d, ok
}

// Packages returns the names of the direct subpackages.
func (p *Package) Packages() []string {
	names := make([]string, 0, len(p.packages))
	for n := range p.packages {
		names = append(names, n)
	}
	return names
}

// Types returns the names of the classes declared directly here.
func (p *Package) Types() []string {
	names := make([]string, 0, len(p.types))
	for n := range p.types {
		names = append(names, n)
	}
	return names
}

// Registry is an installed set of class descriptions with a package tree
// over them. It satisfies the type-library interface the code generator
// consults, so a registry can be passed straight to codegen.NewGenerator.
type Registry struct {
	types    map[abc.QName]*ClassDesc
	toplevel *Package
}

var _ codegen.TypeLibrary = (*Registry)(nil)

// NewRegistry builds a registry over the given class descriptions.
func NewRegistry(descs ...*ClassDesc) *Registry {
	r := &Registry{
		types:    make(map[abc.QName]*ClassDesc),
		toplevel: newPackage(""),
	}
	for _, d := range descs {
		r.Add(d)
	}
	return r
}

// Add installs a class description, creating its package chain as
// needed. A description with the same full name replaces the old one.
func (r *Registry) Add(d *ClassDesc) {
	r.types[d.FullName] = d
	pkg := r.toplevel
	for _, part := range splitPath(d.Package()) {
		sub, ok := pkg.packages[part]
		if !ok {
			full := part
			if pkg.name != "" {
				full = pkg.name + "." + part
			}
			sub = newPackage(full)
			pkg.packages[part] = sub
		}
		pkg = sub
	}
	pkg.types[d.ShortName()] = d
}

// Len returns the number of installed types.
func (r *Registry) Len() int { return len(r.types) }

// Toplevel returns the root of the package tree.
func (r *Registry) Toplevel() *Package { return r.toplevel }

// Type returns the description installed under a qualified name.
func (r *Registry) Type(name abc.QName) (*ClassDesc, bool) {
	d, ok := r.types[name]
	return d, ok
}

// All returns every installed description, in no particular order.
func (r *Registry) All() []*ClassDesc {
	descs := make([]*ClassDesc, 0, len(r.types))
	for _, d := range r.types {
		descs = append(descs, d)
	}
	return descs
}

// Resolve walks a dotted path through the package tree and returns the
// class it ends at. Intermediate components must be packages.
func (r *Registry) Resolve(path string) (*ClassDesc, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrTypeNotFound)
	}
	pkg := r.toplevel
	for _, part := range parts[:len(parts)-1] {
		sub, ok := pkg.packages[part]
		if !ok {
			return nil, fmt.Errorf("%w: no package %q under %q", ErrTypeNotFound, part, pkg.name)
		}
		pkg = sub
	}
	d, ok := pkg.types[parts[len(parts)-1]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotFound, path)
	}
	return d, nil
}

// ResolveType satisfies codegen.TypeLibrary.
func (r *Registry) ResolveType(name abc.QName) (codegen.TypeInfo, bool) {
	d, ok := r.types[name]
	if !ok {
		return codegen.TypeInfo{}, false
	}
	info := codegen.TypeInfo{
		Name:          d.FullName,
		SuperName:     d.BaseType,
		Methods:       make(map[abc.QName]bool),
		StaticMethods: make(map[abc.QName]bool),
	}
	for _, m := range d.Methods {
		info.Methods[abc.QName{Name: m.Name}] = true
	}
	for _, p := range d.Properties {
		info.Methods[abc.QName{Name: p.Name}] = true
	}
	for _, m := range d.StaticMethods {
		info.StaticMethods[abc.QName{Name: m.Name}] = true
	}
	for _, p := range d.StaticProperties {
		info.StaticMethods[abc.QName{Name: p.Name}] = true
	}
	return info, true
}
