package racrparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitkis/racr-parser/racr"
)

func resetValue(v uint64) *uint64 { return &v }

func TestParseAccess(t *testing.T) {
	tests := []struct {
		input string
		want  racr.Access
	}{
		{"ReadOnly", racr.ReadOnly},
		{"WriteOnly", racr.WriteOnly},
		{"ReadWrite", racr.ReadWrite},
	}
	for _, tt := range tests {
		got, err := ParseAccess([]byte(tt.input))
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, got, "input: %s", tt.input)
	}
}

func TestParseAccessRejectsOtherTokens(t *testing.T) {
	for _, input := range []string{"readonly", "register", "42", ""} {
		_, err := ParseAccess([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseAccessRejectsTrailingInput(t *testing.T) {
	_, err := ParseAccess([]byte("ReadOnly ReadOnly"))
	require.Error(t, err)
	assert.IsType(t, &SyntaxError{}, err)
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath([]byte("foo::bar::baz"))
	require.NoError(t, err)
	assert.Equal(t, racr.Path{Segments: []string{"foo", "bar", "baz"}}, path)
}

func TestParsePathSingleSegment(t *testing.T) {
	path, err := ParsePath([]byte("Foo"))
	require.NoError(t, err)
	assert.Equal(t, racr.Path{Segments: []string{"Foo"}}, path)
}

func TestParsePathCrateRoot(t *testing.T) {
	path, err := ParsePath([]byte("crate::bar::Baz"))
	require.NoError(t, err)
	assert.Equal(t, racr.Path{Segments: []string{"crate", "bar", "Baz"}}, path)
}

func TestParsePathRoundTrip(t *testing.T) {
	cases := [][]string{
		{"foo"},
		{"foo", "bar"},
		{"foo", "bar", "baz"},
		{"crate", "uart", "Cr1"},
	}
	for _, segments := range cases {
		src := strings.Join(segments, "::")
		path, err := ParsePath([]byte(src))
		require.NoError(t, err, "input: %s", src)
		assert.Equal(t, segments, path.Segments, "input: %s", src)
		assert.Equal(t, src, path.String(), "input: %s", src)
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, input := range []string{"", "::foo", "foo::", "foo::42", "42"} {
		_, err := ParsePath([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseUseTreeRightAssociative(t *testing.T) {
	tree, err := ParseUseTree([]byte("foo::bar::Baz"))
	require.NoError(t, err)
	assert.Equal(t, racr.UsePath{
		Segment: "foo",
		Tree: racr.UsePath{
			Segment: "bar",
			Tree:    racr.UseIdent{Name: "Baz"},
		},
	}, tree)
}

func TestParseUseIdent(t *testing.T) {
	use, err := ParseUse([]byte("use Foo;"))
	require.NoError(t, err)
	assert.Equal(t, racr.Use{Tree: racr.UseIdent{Name: "Foo"}}, use)
}

func TestParseUseChain(t *testing.T) {
	use, err := ParseUse([]byte("use foo::bar::Baz;"))
	require.NoError(t, err)
	assert.Equal(t, racr.Use{Tree: racr.UsePath{
		Segment: "foo",
		Tree: racr.UsePath{
			Segment: "bar",
			Tree:    racr.UseIdent{Name: "Baz"},
		},
	}}, use)
}

func TestParseUseCrate(t *testing.T) {
	use, err := ParseUse([]byte("use crate::bar::Baz;"))
	require.NoError(t, err)
	assert.Equal(t, racr.Use{Tree: racr.UsePath{
		Segment: "crate",
		Tree: racr.UsePath{
			Segment: "bar",
			Tree:    racr.UseIdent{Name: "Baz"},
		},
	}}, use)
}

func TestParseUseErrors(t *testing.T) {
	tests := []string{
		"use Foo",        // missing semicolon
		"use foo::;",     // missing trailing identifier
		"use ;",          // missing tree entirely
		"use crate;",     // crate cannot be the leaf
		"use a::{b, c};", // grouping is not supported
	}
	for _, input := range tests {
		_, err := ParseUse([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseModuleTerminal(t *testing.T) {
	mod, err := ParseModule([]byte("mod foo;"))
	require.NoError(t, err)
	assert.Equal(t, "foo", mod.Ident)
	assert.Nil(t, mod.Content)
}

func TestParseModuleEmptyBody(t *testing.T) {
	mod, err := ParseModule([]byte("mod foo {}"))
	require.NoError(t, err)
	assert.Equal(t, "foo", mod.Ident)
	require.NotNil(t, mod.Content)
	assert.Empty(t, mod.Content)
}

func TestParseModuleNested(t *testing.T) {
	mod, err := ParseModule([]byte("mod foo {mod bar {mod baz;}}"))
	require.NoError(t, err)
	assert.Equal(t, racr.Module{
		Ident: "foo",
		Content: []racr.Item{
			racr.Module{
				Ident: "bar",
				Content: []racr.Item{
					racr.Module{Ident: "baz"},
				},
			},
		},
	}, mod)
}

func TestParseModuleDiscardsAttribute(t *testing.T) {
	// A doc attribute before mod is valid syntax but Module has no
	// description field to bind it to.
	mod, err := ParseModule([]byte(`#[doc = "ignored"] mod foo;`))
	require.NoError(t, err)
	assert.Equal(t, racr.Module{Ident: "foo"}, mod)
}

func TestParseModuleErrors(t *testing.T) {
	tests := []string{
		"mod foo",         // neither ; nor body
		"mod foo {",       // unbalanced brace
		"mod;",            // missing ident
		"mod foo { mod }", // bad nested item
		"mod crate;",      // keyword is not a module ident
	}
	for _, input := range tests {
		_, err := ParseModule([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseRegisterDefinition(t *testing.T) {
	src := `
#[doc = "Some description"]
WriteOnly register[32] Foo = 0 {
   bar[0..7],
   ReadOnly baz[8],
   #[doc = "Some description"]
   bax[9..31],
}`
	reg, err := ParseRegisterDefinition([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, racr.RegisterDefinition{
		Access:      racr.WriteOnly,
		Ident:       "Foo",
		Description: "Some description",
		Size:        32,
		ResetValue:  resetValue(0),
		Fields: []racr.FieldInstance{
			{Ident: "bar", BitStart: 0, BitEnd: 7},
			{Ident: "baz", BitStart: 8, BitEnd: 8, Access: racr.ReadOnly},
			{Ident: "bax", Description: "Some description", BitStart: 9, BitEnd: 31},
		},
	}, reg)
}

func TestParseRegisterWithoutReset(t *testing.T) {
	reg, err := ParseRegisterDefinition([]byte(`ReadWrite register[8] Cr { enable[0] }`))
	require.NoError(t, err)
	assert.Equal(t, racr.ReadWrite, reg.Access)
	assert.Equal(t, uint(8), reg.Size)
	assert.Nil(t, reg.ResetValue)
	assert.Empty(t, reg.Description)
	require.Len(t, reg.Fields, 1)
	assert.Equal(t, racr.FieldInstance{Ident: "enable", BitStart: 0, BitEnd: 0}, reg.Fields[0])
}

func TestParseRegisterHexReset(t *testing.T) {
	reg, err := ParseRegisterDefinition([]byte(`ReadOnly register[0x20] Sr = 0x00 { ready[0] }`))
	require.NoError(t, err)
	assert.Equal(t, uint(32), reg.Size)
	require.NotNil(t, reg.ResetValue)
	assert.Equal(t, uint64(0), *reg.ResetValue)
}

func TestParseRegisterSingleBitField(t *testing.T) {
	reg, err := ParseRegisterDefinition([]byte(`ReadWrite register[16] R { baz[8] }`))
	require.NoError(t, err)
	require.Len(t, reg.Fields, 1)
	assert.Equal(t, uint(8), reg.Fields[0].BitStart)
	assert.Equal(t, uint(8), reg.Fields[0].BitEnd)
	assert.Equal(t, racr.AccessUnspecified, reg.Fields[0].Access)
}

func TestParseRegisterTrailingCommaOptional(t *testing.T) {
	with, err := ParseRegisterDefinition([]byte(`ReadWrite register[8] R { a[0], b[1], }`))
	require.NoError(t, err)
	without, err := ParseRegisterDefinition([]byte(`ReadWrite register[8] R { a[0], b[1] }`))
	require.NoError(t, err)
	assert.Equal(t, with, without)
	assert.Len(t, with.Fields, 2)
}

func TestParseRegisterFieldOrderIsSourceOrder(t *testing.T) {
	reg, err := ParseRegisterDefinition([]byte(`ReadWrite register[32] R { high[24..31], low[0..7], mid[8..23] }`))
	require.NoError(t, err)
	require.Len(t, reg.Fields, 3)
	assert.Equal(t, "high", reg.Fields[0].Ident)
	assert.Equal(t, "low", reg.Fields[1].Ident)
	assert.Equal(t, "mid", reg.Fields[2].Ident)
}

func TestParseRegisterErrors(t *testing.T) {
	tests := []string{
		`register[32] Foo { a[0] }`,             // access keyword is mandatory
		`ReadWrite register[big] Foo { a[0] }`,  // non-numeric size
		`ReadWrite register[32] Foo { }`,        // a register needs fields
		`ReadWrite register[32] Foo { a[] }`,    // missing bit index
		`ReadWrite register[32] Foo { a[0..] }`, // missing range end
		`ReadWrite register[32] Foo { a[0]`,     // unbalanced brace
		`ReadWrite register 32 Foo { a[0] }`,    // size needs brackets
		`ReadWrite register[32] Foo = { a[0] }`, // = without a number
	}
	for _, input := range tests {
		_, err := ParseRegisterDefinition([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParsePeripheralDefinition(t *testing.T) {
	src := `
#[doc = "Some description"]
peripheral Foo {
   bar: bar::Bar @ 0x00,
   bax: [bax::Bax; 2] @ 0x04,
   (baz1: baz::Baz1 | baz2: baz::Baz2 | baz3: baz::Baz3) @ 0x10,
}`
	per, err := ParsePeripheralDefinition([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, racr.PeripheralDefinition{
		Ident:       "Foo",
		Description: "Some description",
		Registers: []racr.RegisterSlot{
			racr.SingleSlot{
				Instance: racr.RegisterInstance{
					Ident: "bar",
					Type:  racr.SingleType{Path: racr.Path{Segments: []string{"bar", "Bar"}}},
				},
				Offset: 0x0,
			},
			racr.SingleSlot{
				Instance: racr.RegisterInstance{
					Ident: "bax",
					Type:  racr.ArrayType{Path: racr.Path{Segments: []string{"bax", "Bax"}}, Size: 2},
				},
				Offset: 0x4,
			},
			racr.OverloadedSlot{
				Alternatives: []racr.RegisterInstance{
					{Ident: "baz1", Type: racr.SingleType{Path: racr.Path{Segments: []string{"baz", "Baz1"}}}},
					{Ident: "baz2", Type: racr.SingleType{Path: racr.Path{Segments: []string{"baz", "Baz2"}}}},
					{Ident: "baz3", Type: racr.SingleType{Path: racr.Path{Segments: []string{"baz", "Baz3"}}}},
				},
				Offset: 0x10,
			},
		},
	}, per)
}

func TestParsePeripheralOverloadedSlot(t *testing.T) {
	src := `peripheral P { (a: x::A | b: x::B) @ 0x10 }`
	per, err := ParsePeripheralDefinition([]byte(src))
	require.NoError(t, err)
	require.Len(t, per.Registers, 1)

	slot, ok := per.Registers[0].(racr.OverloadedSlot)
	require.True(t, ok)
	assert.Len(t, slot.Alternatives, 2)
	assert.Equal(t, uint64(0x10), slot.Offset)
	assert.Equal(t, uint64(0x10), slot.SlotOffset())
}

func TestParsePeripheralOverloadedNeedsTwoAlternatives(t *testing.T) {
	_, err := ParsePeripheralDefinition([]byte(`peripheral P { (a: x::A) @ 0x10 }`))
	require.Error(t, err)
	assert.IsType(t, &SyntaxError{}, err)
}

func TestParsePeripheralArraySlot(t *testing.T) {
	per, err := ParsePeripheralDefinition([]byte(`peripheral P { bax: [bax::Bax; 2] @ 0x04 }`))
	require.NoError(t, err)
	require.Len(t, per.Registers, 1)

	slot, ok := per.Registers[0].(racr.SingleSlot)
	require.True(t, ok)
	ty, ok := slot.Instance.Type.(racr.ArrayType)
	require.True(t, ok)
	assert.Equal(t, racr.Path{Segments: []string{"bax", "Bax"}}, ty.Path)
	assert.Equal(t, uint64(2), ty.Size)
}

func TestParsePeripheralSlotLookup(t *testing.T) {
	src := `peripheral P {
    cr: regs::Cr @ 0x00,
    (sr1: regs::Sr1 | sr2: regs::Sr2) @ 0x04,
}`
	per, err := ParsePeripheralDefinition([]byte(src))
	require.NoError(t, err)

	require.NotNil(t, per.Slot("cr"))
	require.NotNil(t, per.Slot("sr2"))
	assert.Equal(t, uint64(0x04), per.Slot("sr2").SlotOffset())
	assert.Nil(t, per.Slot("missing"))
}

func TestParsePeripheralErrors(t *testing.T) {
	tests := []string{
		`peripheral P { }`,                    // a peripheral needs slots
		`peripheral P { a: x::A }`,            // missing @ offset
		`peripheral P { a: x::A @ }`,          // missing offset value
		`peripheral P { a x::A @ 0x0 }`,       // missing colon
		`peripheral P { (a: x::A | ) @ 0x0 }`, // dangling pipe
		`peripheral P { a: [x::A; ] @ 0x0 }`,  // array missing size
		`peripheral P { a: [x::A 2] @ 0x0 }`,  // array missing semicolon
	}
	for _, input := range tests {
		_, err := ParsePeripheralDefinition([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseDeviceDefinition(t *testing.T) {
	src := `
#[doc = "Some description"]
device Foo {
   bar: bar::Bar @ 0x00,
   baz: baz::Baz @ 0x04,
   bax: bax::Bax @ 0x0c,
}`
	dev, err := ParseDeviceDefinition([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, racr.DeviceDefinition{
		Ident:       "Foo",
		Description: "Some description",
		Peripherals: []racr.PeripheralInstance{
			{Ident: "bar", Path: racr.Path{Segments: []string{"bar", "Bar"}}, Address: 0x0},
			{Ident: "baz", Path: racr.Path{Segments: []string{"baz", "Baz"}}, Address: 0x4},
			{Ident: "bax", Path: racr.Path{Segments: []string{"bax", "Bax"}}, Address: 0xc},
		},
	}, dev)
}

func TestParseDevicePeripheralLookup(t *testing.T) {
	dev, err := ParseDeviceDefinition([]byte(`device D { uart0: uart::Uart @ 0x4000_0000 }`))
	if err != nil {
		// Underscore digit grouping is not part of the grammar.
		dev, err = ParseDeviceDefinition([]byte(`device D { uart0: uart::Uart @ 0x40000000 }`))
	}
	require.NoError(t, err)
	p := dev.Peripheral("uart0")
	require.NotNil(t, p)
	assert.Equal(t, uint64(0x40000000), p.Address)
	assert.Nil(t, dev.Peripheral("uart1"))
}

func TestParseDeviceErrors(t *testing.T) {
	tests := []string{
		`device D { }`,              // a device needs peripherals
		`device D { a: x::A 0x0 }`,  // missing @
		`device { a: x::A @ 0x0 }`,  // missing ident
		`device D  a: x::A @ 0x0 }`, // missing opening brace
	}
	for _, input := range tests {
		_, err := ParseDeviceDefinition([]byte(input))
		require.Error(t, err, "input: %s", input)
		assert.IsType(t, &SyntaxError{}, err, "input: %s", input)
	}
}

func TestParseItemDispatch(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"mod foo;", racr.Module{}},
		{"use Foo;", racr.Use{}},
		{"ReadWrite register[8] R { a[0] }", racr.RegisterDefinition{}},
		{"peripheral P { a: x::A @ 0 }", racr.PeripheralDefinition{}},
		{"device D { a: x::A @ 0 }", racr.DeviceDefinition{}},
	}
	for _, tt := range tests {
		item, err := ParseItem([]byte(tt.input))
		require.NoError(t, err, "input: %s", tt.input)
		assert.IsType(t, tt.want, item, "input: %s", tt.input)
	}
}

func TestParseItemAttrBeforeUse(t *testing.T) {
	_, err := ParseItem([]byte(`#[doc = "nope"] use Foo;`))
	require.Error(t, err)
	assert.IsType(t, &SyntaxError{}, err)
}

func TestParseItemUnknownKeyword(t *testing.T) {
	_, err := ParseItem([]byte("widget W {}"))
	require.Error(t, err)
	assert.IsType(t, &SyntaxError{}, err)
}

func TestParseContent(t *testing.T) {
	src := `
use Foo;
use crate::bar::Baz;

mod module {
    peripheral Peripheral {
        foo: Foo @ 0x00,
        nar: Baz @ 0x10,
    }
}
`
	items, err := ParseContent([]byte(src))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.IsType(t, racr.Use{}, items[0])
	assert.IsType(t, racr.Use{}, items[1])

	mod, ok := items[2].(racr.Module)
	require.True(t, ok)
	assert.Equal(t, "module", mod.Ident)
	require.Len(t, mod.Content, 1)

	per, ok := mod.Content[0].(racr.PeripheralDefinition)
	require.True(t, ok)
	assert.Equal(t, "Peripheral", per.Ident)
	assert.Len(t, per.Registers, 2)
}

func TestParseContentEmpty(t *testing.T) {
	items, err := ParseContent([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = ParseContent([]byte("  // just a comment\n"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseContentPreservesOrder(t *testing.T) {
	src := `
device D { a: x::A @ 0 }
use Foo;
ReadWrite register[8] R { a[0] }
mod m;
peripheral P { a: x::A @ 0 }
`
	items, err := ParseContent([]byte(src))
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.IsType(t, racr.DeviceDefinition{}, items[0])
	assert.IsType(t, racr.Use{}, items[1])
	assert.IsType(t, racr.RegisterDefinition{}, items[2])
	assert.IsType(t, racr.Module{}, items[3])
	assert.IsType(t, racr.PeripheralDefinition{}, items[4])
}

func TestParseContentStopsAtFirstError(t *testing.T) {
	src := `
use Foo;
use Bar
mod m;
`
	_, err := ParseContent([]byte(src))
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 4, syntaxErr.Pos.Line) // points at 'mod', where ';' was expected
}

func TestParseContentNoPartialTree(t *testing.T) {
	items, err := ParseContent([]byte("use Foo; mod {"))
	require.Error(t, err)
	assert.Nil(t, items)
}

func TestParseDeeplyNestedModules(t *testing.T) {
	// Within the depth limit, deep nesting parses fine.
	depth := 200
	src := strings.Repeat("mod m {", depth) + "mod leaf;" + strings.Repeat("}", depth)
	mod, err := ParseModule([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "m", mod.Ident)
}

func TestParseTooDeeplyNestedModules(t *testing.T) {
	depth := maxNestingDepth + 10
	src := strings.Repeat("mod m {", depth) + "mod leaf;" + strings.Repeat("}", depth)
	_, err := ParseModule([]byte(src))
	require.Error(t, err)
	assert.IsType(t, &DepthError{}, err)
}

func TestParseTooDeepUseChain(t *testing.T) {
	src := "use " + strings.Repeat("a::", maxNestingDepth+10) + "Leaf;"
	_, err := ParseUse([]byte(src))
	require.Error(t, err)
	assert.IsType(t, &DepthError{}, err)
}

func TestSyntaxErrorCarriesPosition(t *testing.T) {
	_, err := ParseUse([]byte("use Foo"))
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "';'", syntaxErr.Expected)
	assert.Equal(t, 1, syntaxErr.Pos.Line)
	assert.Equal(t, 8, syntaxErr.Pos.Column)
	assert.Contains(t, syntaxErr.Error(), "expected ';'")
}

func TestLexErrorSurfacesThroughParse(t *testing.T) {
	_, err := ParseContent([]byte(`use Foo; $`))
	require.Error(t, err)
	assert.IsType(t, &LexError{}, err)
}
