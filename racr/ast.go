// Package racr defines the data model for the racr register description
// language: the AST values produced by parsing a racr source file.
//
// All values are plain data. They are constructed once by a parser (or by
// hand in tests and generators) and never mutated afterwards. Name
// resolution is out of scope: a Path is an opaque chain of identifier
// segments, not a resolved link.
package racr

// Access is the access mode of a register or field.
type Access int

const (
	// AccessUnspecified is the zero value. On a FieldInstance it means the
	// field inherits the access mode of its register.
	AccessUnspecified Access = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "ReadOnly"
	case WriteOnly:
		return "WriteOnly"
	case ReadWrite:
		return "ReadWrite"
	default:
		return "Unspecified"
	}
}

// Path is a non-empty chain of identifier segments naming an external type,
// written a::b::c in source. Segment order is outer-to-inner.
type Path struct {
	Segments []string
}

// UseTree is one import target of a use statement. It is a singly-branching
// chain: zero or more UsePath links terminating in exactly one UseIdent.
type UseTree interface{ isUseTree() }

// UseIdent is the leaf of a UseTree: the imported name itself.
type UseIdent struct {
	Name string
}

// UsePath is one segment of a UseTree chain followed by the rest of the
// chain.
type UsePath struct {
	Segment string
	Tree    UseTree
}

func (UseIdent) isUseTree() {}
func (UsePath) isUseTree()  {}

// Use is a single use statement.
type Use struct {
	Tree UseTree
}

// Module is a module declaration. Content is nil for an out-of-line module
// (mod foo;) and non-nil, possibly empty, for an inline body (mod foo {...}).
type Module struct {
	Ident   string
	Content []Item
}

// FieldInstance is one bit field of a register. BitStart and BitEnd are
// inclusive; a single-bit field has BitStart == BitEnd. Access is
// AccessUnspecified when the field carries no override.
type FieldInstance struct {
	Ident       string
	Description string
	BitStart    uint
	BitEnd      uint
	Access      Access
}

// RegisterDefinition is a register layout: a bit width, an optional reset
// value, and an ordered list of fields. Fields keep declaration order, not
// bit order, and the parser does not check them for overlap; see Validate.
type RegisterDefinition struct {
	Access      Access
	Ident       string
	Description string
	Size        uint
	ResetValue  *uint64
	Fields      []FieldInstance
}

// Field returns the field with the given ident, or nil if not declared.
func (r *RegisterDefinition) Field(ident string) *FieldInstance {
	for i := range r.Fields {
		if r.Fields[i].Ident == ident {
			return &r.Fields[i]
		}
	}
	return nil
}

// RegisterType is the type of a register instance: either a single register
// type or a fixed-size array of one.
type RegisterType interface{ isRegisterType() }

// SingleType names one register type.
type SingleType struct {
	Path Path
}

// ArrayType is a fixed-size repetition of one register type.
type ArrayType struct {
	Path Path
	Size uint64
}

func (SingleType) isRegisterType() {}
func (ArrayType) isRegisterType()  {}

// RegisterInstance is a named occurrence of a register type inside a
// peripheral.
type RegisterInstance struct {
	Ident string
	Type  RegisterType
}

// RegisterSlot is one addressable entry of a peripheral register map.
type RegisterSlot interface {
	isRegisterSlot()
	// SlotOffset is the byte offset of the slot within the peripheral.
	SlotOffset() uint64
}

// SingleSlot places one register instance at one offset.
type SingleSlot struct {
	Instance RegisterInstance
	Offset   uint64
}

// OverloadedSlot places two or more mutually exclusive register
// interpretations at one shared offset.
type OverloadedSlot struct {
	Alternatives []RegisterInstance
	Offset       uint64
}

func (SingleSlot) isRegisterSlot()     {}
func (OverloadedSlot) isRegisterSlot() {}

func (s SingleSlot) SlotOffset() uint64     { return s.Offset }
func (s OverloadedSlot) SlotOffset() uint64 { return s.Offset }

// PeripheralDefinition is an ordered register map.
type PeripheralDefinition struct {
	Ident       string
	Description string
	Registers   []RegisterSlot
}

// Slot returns the slot containing a register instance with the given
// ident, or nil if none does.
func (p *PeripheralDefinition) Slot(ident string) RegisterSlot {
	for _, slot := range p.Registers {
		switch s := slot.(type) {
		case SingleSlot:
			if s.Instance.Ident == ident {
				return s
			}
		case OverloadedSlot:
			for _, alt := range s.Alternatives {
				if alt.Ident == ident {
					return s
				}
			}
		}
	}
	return nil
}

// PeripheralInstance is a named occurrence of a peripheral type at a base
// address inside a device.
type PeripheralInstance struct {
	Ident   string
	Path    Path
	Address uint64
}

// DeviceDefinition is an ordered peripheral map.
type DeviceDefinition struct {
	Ident       string
	Description string
	Peripherals []PeripheralInstance
}

// Peripheral returns the peripheral instance with the given ident, or nil
// if not declared.
func (d *DeviceDefinition) Peripheral(ident string) *PeripheralInstance {
	for i := range d.Peripherals {
		if d.Peripherals[i].Ident == ident {
			return &d.Peripherals[i]
		}
	}
	return nil
}

// Item is anything that may appear at content scope: a module, a use
// statement, or a register, peripheral, or device definition.
type Item interface{ isItem() }

func (Module) isItem()               {}
func (Use) isItem()                  {}
func (RegisterDefinition) isItem()   {}
func (PeripheralDefinition) isItem() {}
func (DeviceDefinition) isItem()     {}
