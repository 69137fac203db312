package racr

import (
	"fmt"
	"strings"
)

// String renders the path in source form, a::b::c.
func (p Path) String() string {
	return strings.Join(p.Segments, "::")
}

// String renders the use tree in source form, a::b::C.
func (t UsePath) String() string {
	return t.Segment + "::" + UseTreeString(t.Tree)
}

func (t UseIdent) String() string { return t.Name }

// UseTreeString renders any UseTree in source form.
func UseTreeString(t UseTree) string {
	switch tree := t.(type) {
	case UseIdent:
		return tree.String()
	case UsePath:
		return tree.String()
	default:
		return ""
	}
}

// String renders the register type in source form, either a path or the
// [path; size] array shorthand.
func (t SingleType) String() string { return t.Path.String() }

func (t ArrayType) String() string {
	return fmt.Sprintf("[%s; %d]", t.Path, t.Size)
}

// TypePath returns the register type path of either RegisterType variant.
func TypePath(t RegisterType) Path {
	switch ty := t.(type) {
	case SingleType:
		return ty.Path
	case ArrayType:
		return ty.Path
	default:
		return Path{}
	}
}
