package racr

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a validation diagnostic.
type Severity int

const (
	// Error means the description is not usable by a code generator.
	Error Severity = iota
	// Warning means the description is usable but is probably not what the
	// author intended.
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Rule     string   // rule identifier (e.g., "field_overlap")
	Severity Severity // ERROR or WARNING
	Message  string   // human-readable description
	Ident    string   // related declaration ident (optional)
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", d.Severity, d.Rule, d.Message)
	if d.Ident != "" {
		fmt.Fprintf(&b, " (in %s)", d.Ident)
	}
	return b.String()
}

// LintRule is the interface for a single validation rule. Apply is invoked
// once per item, including items nested in inline modules.
type LintRule interface {
	Name() string
	Apply(item Item) []Diagnostic
}

// ValidationError is returned by ValidateOrError when error-severity
// diagnostics exist.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, d := range e.Diagnostics {
		msgs = append(msgs, d.String())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  %s", len(e.Diagnostics), strings.Join(msgs, "\n  "))
}

// Validate runs all built-in rules (and any extra rules) against the items
// and everything nested inside them. The parser does not perform these
// checks; overlap and duplicate detection live here so that a parse is a
// pure grammar question. Returns all diagnostics regardless of severity.
func Validate(items []Item, extraRules ...LintRule) []Diagnostic {
	rules := builtInRules()
	rules = append(rules, extraRules...)

	var diagnostics []Diagnostic
	walkItems(items, func(item Item) {
		for _, rule := range rules {
			diagnostics = append(diagnostics, rule.Apply(item)...)
		}
	})
	return diagnostics
}

// ValidateOrError runs Validate and returns an error if any error-severity
// diagnostics are found. All diagnostics are still returned.
func ValidateOrError(items []Item, extraRules ...LintRule) ([]Diagnostic, error) {
	diagnostics := Validate(items, extraRules...)

	var errors []Diagnostic
	for _, d := range diagnostics {
		if d.Severity == Error {
			errors = append(errors, d)
		}
	}
	if len(errors) > 0 {
		return diagnostics, &ValidationError{Diagnostics: errors}
	}
	return diagnostics, nil
}

func walkItems(items []Item, visit func(Item)) {
	for _, item := range items {
		visit(item)
		if mod, ok := item.(Module); ok {
			walkItems(mod.Content, visit)
		}
	}
}

func builtInRules() []LintRule {
	return []LintRule{
		fieldRangeRule{},
		fieldBoundsRule{},
		fieldOverlapRule{},
		duplicateFieldRule{},
		resetValueWidthRule{},
		duplicateRegisterRule{},
		duplicateOffsetRule{},
		duplicatePeripheralRule{},
		duplicateAddressRule{},
	}
}

// fieldRangeRule reports fields whose bit range is written end-first.
type fieldRangeRule struct{}

func (fieldRangeRule) Name() string { return "field_range" }

func (fieldRangeRule) Apply(item Item) []Diagnostic {
	reg, ok := item.(RegisterDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	for _, f := range reg.Fields {
		if f.BitStart > f.BitEnd {
			diags = append(diags, Diagnostic{
				Rule:     "field_range",
				Severity: Error,
				Message:  fmt.Sprintf("field %s has reversed bit range [%d..%d]", f.Ident, f.BitStart, f.BitEnd),
				Ident:    reg.Ident,
			})
		}
	}
	return diags
}

// fieldBoundsRule reports fields that do not fit in the register.
type fieldBoundsRule struct{}

func (fieldBoundsRule) Name() string { return "field_bounds" }

func (fieldBoundsRule) Apply(item Item) []Diagnostic {
	reg, ok := item.(RegisterDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	for _, f := range reg.Fields {
		if f.BitEnd >= reg.Size {
			diags = append(diags, Diagnostic{
				Rule:     "field_bounds",
				Severity: Error,
				Message:  fmt.Sprintf("field %s ends at bit %d but the register is %d bits wide", f.Ident, f.BitEnd, reg.Size),
				Ident:    reg.Ident,
			})
		}
	}
	return diags
}

// fieldOverlapRule reports fields whose bit ranges intersect.
type fieldOverlapRule struct{}

func (fieldOverlapRule) Name() string { return "field_overlap" }

func (fieldOverlapRule) Apply(item Item) []Diagnostic {
	reg, ok := item.(RegisterDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	for i, a := range reg.Fields {
		for _, b := range reg.Fields[i+1:] {
			if a.BitStart > a.BitEnd || b.BitStart > b.BitEnd {
				continue // reported by field_range
			}
			if a.BitStart <= b.BitEnd && b.BitStart <= a.BitEnd {
				diags = append(diags, Diagnostic{
					Rule:     "field_overlap",
					Severity: Error,
					Message:  fmt.Sprintf("fields %s [%d..%d] and %s [%d..%d] overlap", a.Ident, a.BitStart, a.BitEnd, b.Ident, b.BitStart, b.BitEnd),
					Ident:    reg.Ident,
				})
			}
		}
	}
	return diags
}

// duplicateFieldRule reports fields declared twice in one register.
type duplicateFieldRule struct{}

func (duplicateFieldRule) Name() string { return "duplicate_field" }

func (duplicateFieldRule) Apply(item Item) []Diagnostic {
	reg, ok := item.(RegisterDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[string]bool)
	for _, f := range reg.Fields {
		if seen[f.Ident] {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_field",
				Severity: Error,
				Message:  fmt.Sprintf("field %s is declared more than once", f.Ident),
				Ident:    reg.Ident,
			})
		}
		seen[f.Ident] = true
	}
	return diags
}

// resetValueWidthRule reports reset values that do not fit in the register.
type resetValueWidthRule struct{}

func (resetValueWidthRule) Name() string { return "reset_value_width" }

func (resetValueWidthRule) Apply(item Item) []Diagnostic {
	reg, ok := item.(RegisterDefinition)
	if !ok {
		return nil
	}
	if reg.ResetValue == nil || reg.Size >= 64 {
		return nil
	}
	if *reg.ResetValue >= 1<<reg.Size {
		return []Diagnostic{{
			Rule:     "reset_value_width",
			Severity: Error,
			Message:  fmt.Sprintf("reset value %#x does not fit in %d bits", *reg.ResetValue, reg.Size),
			Ident:    reg.Ident,
		}}
	}
	return nil
}

// duplicateRegisterRule reports register instance idents reused within one
// peripheral, across single and overloaded slots.
type duplicateRegisterRule struct{}

func (duplicateRegisterRule) Name() string { return "duplicate_register" }

func (duplicateRegisterRule) Apply(item Item) []Diagnostic {
	per, ok := item.(PeripheralDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[string]bool)
	report := func(ident string) {
		if seen[ident] {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_register",
				Severity: Error,
				Message:  fmt.Sprintf("register %s is declared more than once", ident),
				Ident:    per.Ident,
			})
		}
		seen[ident] = true
	}
	for _, slot := range per.Registers {
		switch s := slot.(type) {
		case SingleSlot:
			report(s.Instance.Ident)
		case OverloadedSlot:
			for _, alt := range s.Alternatives {
				report(alt.Ident)
			}
		}
	}
	return diags
}

// duplicateOffsetRule reports two slots mapped at the same offset. Sharing
// an offset is only expressible through an overloaded slot.
type duplicateOffsetRule struct{}

func (duplicateOffsetRule) Name() string { return "duplicate_offset" }

func (duplicateOffsetRule) Apply(item Item) []Diagnostic {
	per, ok := item.(PeripheralDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[uint64]bool)
	for _, slot := range per.Registers {
		off := slot.SlotOffset()
		if seen[off] {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_offset",
				Severity: Warning,
				Message:  fmt.Sprintf("more than one slot at offset %#x; use an overloaded slot to share an offset", off),
				Ident:    per.Ident,
			})
		}
		seen[off] = true
	}
	return diags
}

// duplicatePeripheralRule reports peripheral instance idents reused within
// one device.
type duplicatePeripheralRule struct{}

func (duplicatePeripheralRule) Name() string { return "duplicate_peripheral" }

func (duplicatePeripheralRule) Apply(item Item) []Diagnostic {
	dev, ok := item.(DeviceDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[string]bool)
	for _, p := range dev.Peripherals {
		if seen[p.Ident] {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_peripheral",
				Severity: Error,
				Message:  fmt.Sprintf("peripheral %s is declared more than once", p.Ident),
				Ident:    dev.Ident,
			})
		}
		seen[p.Ident] = true
	}
	return diags
}

// duplicateAddressRule reports two peripherals mapped at the same base
// address.
type duplicateAddressRule struct{}

func (duplicateAddressRule) Name() string { return "duplicate_address" }

func (duplicateAddressRule) Apply(item Item) []Diagnostic {
	dev, ok := item.(DeviceDefinition)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	seen := make(map[uint64]string)
	for _, p := range dev.Peripherals {
		if other, ok := seen[p.Address]; ok {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_address",
				Severity: Warning,
				Message:  fmt.Sprintf("peripherals %s and %s share base address %#x", other, p.Ident, p.Address),
				Ident:    dev.Ident,
			})
		} else {
			seen[p.Address] = p.Ident
		}
	}
	return diags
}
