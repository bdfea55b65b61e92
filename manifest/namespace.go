package manifest

import "strings"

// reservedLibraryNames lists toplevel AVM2 class names that cannot be
// used as library names, so a manifest entry never shadows a class every
// program can already see.
var reservedLibraryNames = map[string]bool{
	"Object":          true,
	"Class":           true,
	"Function":        true,
	"Boolean":         true,
	"int":             true,
	"uint":            true,
	"Number":          true,
	"String":          true,
	"Array":           true,
	"Vector":          true,
	"XML":             true,
	"XMLList":         true,
	"Namespace":       true,
	"QName":           true,
	"RegExp":          true,
	"Date":            true,
	"Math":            true,
	"JSON":            true,
	"Error":           true,
	"ArgumentError":   true,
	"DefinitionError": true,
	"EvalError":       true,
	"RangeError":      true,
	"ReferenceError":  true,
	"SecurityError":   true,
	"SyntaxError":     true,
	"TypeError":       true,
	"URIError":        true,
	"VerifyError":     true,
}

// IsReservedLibraryName reports whether name is a toplevel class name
// that must not be used for a library entry.
func IsReservedLibraryName(name string) bool {
	return reservedLibraryNames[name]
}

// IsValidLibraryName reports whether name is usable as a library entry:
// a dotted sequence of identifiers whose first segment is not a reserved
// toplevel class name.
func IsValidLibraryName(name string) bool {
	if name == "" {
		return false
	}
	for i, part := range strings.Split(name, ".") {
		if !isIdentifier(part) {
			return false
		}
		if i == 0 && IsReservedLibraryName(part) {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
