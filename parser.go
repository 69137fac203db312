package racrparser

import (
	"fmt"
	"strconv"

	"github.com/bitkis/racr-parser/racr"
)

// maxNestingDepth bounds recursion through nested modules and use chains so
// that hostile input fails with a DepthError instead of exhausting the call
// stack.
const maxNestingDepth = 256

// ParseContent parses a whole source file: any interleaving of use
// statements, modules, and register/peripheral/device definitions, in
// source order. Returns a *SyntaxError, *LexError, or *DepthError on
// failure.
func ParseContent(src []byte) ([]racr.Item, error) {
	p := newParser(src)
	items := []racr.Item{}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenEOF {
			return items, nil
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

// ParseItem parses exactly one item.
func ParseItem(src []byte) (racr.Item, error) {
	p := newParser(src)
	item, err := p.parseItem()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return item, nil
}

// ParseAccess parses exactly one access keyword.
func ParseAccess(src []byte) (racr.Access, error) {
	p := newParser(src)
	access, err := p.parseAccess()
	if err != nil {
		return racr.AccessUnspecified, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.AccessUnspecified, err
	}
	return access, nil
}

// ParsePath parses a path such as foo::bar::baz.
func ParsePath(src []byte) (racr.Path, error) {
	p := newParser(src)
	path, err := p.parsePath()
	if err != nil {
		return racr.Path{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.Path{}, err
	}
	return path, nil
}

// ParseUseTree parses the target of a use statement, without the "use"
// keyword or terminating semicolon.
func ParseUseTree(src []byte) (racr.UseTree, error) {
	p := newParser(src)
	tree, err := p.parseUseTree()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return tree, nil
}

// ParseUse parses a whole use statement.
func ParseUse(src []byte) (racr.Use, error) {
	p := newParser(src)
	use, err := p.parseUse()
	if err != nil {
		return racr.Use{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.Use{}, err
	}
	return use, nil
}

// ParseModule parses a module declaration, either terminal (mod foo;) or
// with an inline body.
func ParseModule(src []byte) (racr.Module, error) {
	p := newParser(src)
	if _, _, err := p.parseOptionalAttr(); err != nil {
		return racr.Module{}, err
	}
	mod, err := p.parseModuleDecl()
	if err != nil {
		return racr.Module{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.Module{}, err
	}
	return mod, nil
}

// ParseRegisterDefinition parses a register definition, including any
// leading doc attribute.
func ParseRegisterDefinition(src []byte) (racr.RegisterDefinition, error) {
	p := newParser(src)
	desc, _, err := p.parseOptionalAttr()
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	reg, err := p.parseRegisterDecl(desc)
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.RegisterDefinition{}, err
	}
	return reg, nil
}

// ParsePeripheralDefinition parses a peripheral definition, including any
// leading doc attribute.
func ParsePeripheralDefinition(src []byte) (racr.PeripheralDefinition, error) {
	p := newParser(src)
	desc, _, err := p.parseOptionalAttr()
	if err != nil {
		return racr.PeripheralDefinition{}, err
	}
	per, err := p.parsePeripheralDecl(desc)
	if err != nil {
		return racr.PeripheralDefinition{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.PeripheralDefinition{}, err
	}
	return per, nil
}

// ParseDeviceDefinition parses a device definition, including any leading
// doc attribute.
func ParseDeviceDefinition(src []byte) (racr.DeviceDefinition, error) {
	p := newParser(src)
	desc, _, err := p.parseOptionalAttr()
	if err != nil {
		return racr.DeviceDefinition{}, err
	}
	dev, err := p.parseDeviceDecl(desc)
	if err != nil {
		return racr.DeviceDefinition{}, err
	}
	if err := p.expectEOF(); err != nil {
		return racr.DeviceDefinition{}, err
	}
	return dev, nil
}

type parser struct {
	lex   *Lexer
	depth int
}

func newParser(src []byte) *parser {
	return &parser{lex: NewLexer(src)}
}

func (p *parser) peek() (Token, error) {
	return p.lex.Peek()
}

func (p *parser) next() (Token, error) {
	return p.lex.Next()
}

func got(tok Token) string {
	return fmt.Sprintf("%s (%q)", tok.Kind, tok.Literal)
}

func syntaxError(tok Token, expected string) error {
	return &SyntaxError{
		ParseError: ParseError{Pos: tok.Pos},
		Expected:   expected,
		Got:        got(tok),
	}
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok, err := p.next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != kind {
		return Token{}, syntaxError(tok, kind.String())
	}
	return tok, nil
}

func (p *parser) expectEOF() error {
	_, err := p.expect(TokenEOF)
	return err
}

// enter guards a recursive production against unbounded nesting.
func (p *parser) enter(pos Position) error {
	p.depth++
	if p.depth > maxNestingDepth {
		return &DepthError{ParseError{
			Message: fmt.Sprintf("nesting deeper than %d levels", maxNestingDepth),
			Pos:     pos,
		}}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// parseInt converts an integer token. The lexer guarantees the literal is
// well-formed decimal or 0x hex, so the only conversion failure is overflow.
func (p *parser) parseInt() (uint64, error) {
	tok, err := p.expect(TokenInteger)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(tok.Literal, 0, 64)
	if err != nil {
		return 0, &LexError{ParseError{
			Message: fmt.Sprintf("integer %q out of range", tok.Literal),
			Pos:     tok.Pos,
			Cause:   err,
		}}
	}
	return n, nil
}

// parseOptionalAttr parses a leading #[doc = "..."] attribute if one is
// present. Returns the doc string and whether an attribute was consumed.
func (p *parser) parseOptionalAttr() (string, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return "", false, err
	}
	if tok.Kind != TokenHash {
		return "", false, nil
	}
	_, _ = p.next() // consume #

	if _, err := p.expect(TokenLBracket); err != nil {
		return "", false, err
	}
	key, err := p.next()
	if err != nil {
		return "", false, err
	}
	if key.Kind != TokenIdentifier || key.Literal != "doc" {
		return "", false, syntaxError(key, "'doc'")
	}
	if _, err := p.expect(TokenEquals); err != nil {
		return "", false, err
	}
	str, err := p.expect(TokenString)
	if err != nil {
		return "", false, err
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return "", false, err
	}
	return str.Literal, true, nil
}

func isAccessToken(kind TokenKind) bool {
	return kind == TokenReadOnly || kind == TokenWriteOnly || kind == TokenReadWrite
}

func (p *parser) parseAccess() (racr.Access, error) {
	tok, err := p.next()
	if err != nil {
		return racr.AccessUnspecified, err
	}
	switch tok.Kind {
	case TokenReadOnly:
		return racr.ReadOnly, nil
	case TokenWriteOnly:
		return racr.WriteOnly, nil
	case TokenReadWrite:
		return racr.ReadWrite, nil
	default:
		return racr.AccessUnspecified, syntaxError(tok, "'ReadOnly', 'WriteOnly', or 'ReadWrite'")
	}
}

// parsePathSegment accepts an identifier or the crate keyword, the two
// spellings allowed as path segments.
func (p *parser) parsePathSegment() (Token, error) {
	tok, err := p.next()
	if err != nil {
		return Token{}, err
	}
	if tok.Kind != TokenIdentifier && tok.Kind != TokenCrate {
		return Token{}, syntaxError(tok, "identifier")
	}
	return tok, nil
}

func (p *parser) parsePath() (racr.Path, error) {
	first, err := p.parsePathSegment()
	if err != nil {
		return racr.Path{}, err
	}
	segments := []string{first.Literal}

	for {
		tok, err := p.peek()
		if err != nil {
			return racr.Path{}, err
		}
		if tok.Kind != TokenPathSep {
			break
		}
		_, _ = p.next() // consume ::

		seg, err := p.parsePathSegment()
		if err != nil {
			return racr.Path{}, err
		}
		segments = append(segments, seg.Literal)
	}

	return racr.Path{Segments: segments}, nil
}

// parseUseTree parses one identifier-or-crate segment at a time, recursing
// after each "::". The chain terminates in a bare identifier; grouped
// multi-imports (use a::{b, c}) are not part of the grammar.
func (p *parser) parseUseTree() (racr.UseTree, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenIdentifier && tok.Kind != TokenCrate {
		return nil, syntaxError(tok, "identifier")
	}

	sep, err := p.peek()
	if err != nil {
		return nil, err
	}
	if sep.Kind != TokenPathSep {
		if tok.Kind == TokenCrate {
			return nil, syntaxError(sep, "'::'")
		}
		return racr.UseIdent{Name: tok.Literal}, nil
	}
	_, _ = p.next() // consume ::

	if err := p.enter(sep.Pos); err != nil {
		return nil, err
	}
	sub, err := p.parseUseTree()
	p.leave()
	if err != nil {
		return nil, err
	}
	return racr.UsePath{Segment: tok.Literal, Tree: sub}, nil
}

func (p *parser) parseUse() (racr.Use, error) {
	if _, err := p.expect(TokenUse); err != nil {
		return racr.Use{}, err
	}
	tree, err := p.parseUseTree()
	if err != nil {
		return racr.Use{}, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return racr.Use{}, err
	}
	return racr.Use{Tree: tree}, nil
}

// parseItem parses one content-scope item. A leading doc attribute binds to
// the definition that follows it; modules accept one syntactically but have
// nowhere to store it, and use statements do not accept one at all.
func (p *parser) parseItem() (racr.Item, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	if err := p.enter(start.Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	desc, hasAttr, err := p.parseOptionalAttr()
	if err != nil {
		return nil, err
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Kind == TokenMod:
		return p.parseModuleDecl()
	case tok.Kind == TokenUse:
		if hasAttr {
			return nil, syntaxError(tok, "'mod', an access keyword, 'peripheral', or 'device' after an attribute")
		}
		return p.parseUse()
	case tok.Kind == TokenPeripheral:
		return p.parsePeripheralDecl(desc)
	case tok.Kind == TokenDevice:
		return p.parseDeviceDecl(desc)
	case isAccessToken(tok.Kind):
		return p.parseRegisterDecl(desc)
	default:
		return nil, syntaxError(tok, "'mod', 'use', an access keyword, 'peripheral', or 'device'")
	}
}

func (p *parser) parseModuleDecl() (racr.Module, error) {
	if _, err := p.expect(TokenMod); err != nil {
		return racr.Module{}, err
	}
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.Module{}, err
	}

	tok, err := p.next()
	if err != nil {
		return racr.Module{}, err
	}
	switch tok.Kind {
	case TokenSemicolon:
		// Out-of-line module: content lives elsewhere.
		return racr.Module{Ident: ident.Literal}, nil

	case TokenLBrace:
		items := []racr.Item{}
		for {
			tok, err := p.peek()
			if err != nil {
				return racr.Module{}, err
			}
			if tok.Kind == TokenRBrace || tok.Kind == TokenEOF {
				break
			}
			item, err := p.parseItem()
			if err != nil {
				return racr.Module{}, err
			}
			items = append(items, item)
		}
		if _, err := p.expect(TokenRBrace); err != nil {
			return racr.Module{}, err
		}
		return racr.Module{Ident: ident.Literal, Content: items}, nil

	default:
		return racr.Module{}, syntaxError(tok, "';' or '{'")
	}
}

func (p *parser) parseRegisterDecl(desc string) (racr.RegisterDefinition, error) {
	access, err := p.parseAccess()
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	if _, err := p.expect(TokenRegister); err != nil {
		return racr.RegisterDefinition{}, err
	}
	if _, err := p.expect(TokenLBracket); err != nil {
		return racr.RegisterDefinition{}, err
	}
	size, err := p.parseInt()
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return racr.RegisterDefinition{}, err
	}
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.RegisterDefinition{}, err
	}

	var resetValue *uint64
	tok, err := p.peek()
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	if tok.Kind == TokenEquals {
		_, _ = p.next() // consume =
		value, err := p.parseInt()
		if err != nil {
			return racr.RegisterDefinition{}, err
		}
		resetValue = &value
	}

	if _, err := p.expect(TokenLBrace); err != nil {
		return racr.RegisterDefinition{}, err
	}
	fields, err := parseCommaList(p, (*parser).parseField)
	if err != nil {
		return racr.RegisterDefinition{}, err
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return racr.RegisterDefinition{}, err
	}

	return racr.RegisterDefinition{
		Access:      access,
		Ident:       ident.Literal,
		Description: desc,
		Size:        uint(size),
		ResetValue:  resetValue,
		Fields:      fields,
	}, nil
}

func (p *parser) parseField() (racr.FieldInstance, error) {
	desc, _, err := p.parseOptionalAttr()
	if err != nil {
		return racr.FieldInstance{}, err
	}

	access := racr.AccessUnspecified
	tok, err := p.peek()
	if err != nil {
		return racr.FieldInstance{}, err
	}
	if isAccessToken(tok.Kind) {
		access, err = p.parseAccess()
		if err != nil {
			return racr.FieldInstance{}, err
		}
	}

	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.FieldInstance{}, err
	}
	if _, err := p.expect(TokenLBracket); err != nil {
		return racr.FieldInstance{}, err
	}
	start, err := p.parseInt()
	if err != nil {
		return racr.FieldInstance{}, err
	}

	// Single index means a one-bit field.
	end := start
	tok, err = p.peek()
	if err != nil {
		return racr.FieldInstance{}, err
	}
	if tok.Kind == TokenDotDot {
		_, _ = p.next() // consume ..
		end, err = p.parseInt()
		if err != nil {
			return racr.FieldInstance{}, err
		}
	}

	if _, err := p.expect(TokenRBracket); err != nil {
		return racr.FieldInstance{}, err
	}

	return racr.FieldInstance{
		Ident:       ident.Literal,
		Description: desc,
		BitStart:    uint(start),
		BitEnd:      uint(end),
		Access:      access,
	}, nil
}

func (p *parser) parsePeripheralDecl(desc string) (racr.PeripheralDefinition, error) {
	if _, err := p.expect(TokenPeripheral); err != nil {
		return racr.PeripheralDefinition{}, err
	}
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.PeripheralDefinition{}, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return racr.PeripheralDefinition{}, err
	}
	slots, err := parseCommaList(p, (*parser).parseSlot)
	if err != nil {
		return racr.PeripheralDefinition{}, err
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return racr.PeripheralDefinition{}, err
	}

	return racr.PeripheralDefinition{
		Ident:       ident.Literal,
		Description: desc,
		Registers:   slots,
	}, nil
}

// parseSlot parses one register map entry. A '(' opens an overloaded slot;
// anything else is a single slot.
func (p *parser) parseSlot() (racr.RegisterSlot, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokenLParen {
		return p.parseOverloadedSlot()
	}

	instance, err := p.parseSingleInstance()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAt); err != nil {
		return nil, err
	}
	offset, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	return racr.SingleSlot{Instance: instance, Offset: offset}, nil
}

// parseSingleInstance parses ident ":" Type, where Type is a path or the
// [path; size] array shorthand.
func (p *parser) parseSingleInstance() (racr.RegisterInstance, error) {
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.RegisterInstance{}, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return racr.RegisterInstance{}, err
	}

	tok, err := p.peek()
	if err != nil {
		return racr.RegisterInstance{}, err
	}
	if tok.Kind == TokenLBracket {
		_, _ = p.next() // consume [
		path, err := p.parsePath()
		if err != nil {
			return racr.RegisterInstance{}, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return racr.RegisterInstance{}, err
		}
		size, err := p.parseInt()
		if err != nil {
			return racr.RegisterInstance{}, err
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return racr.RegisterInstance{}, err
		}
		return racr.RegisterInstance{
			Ident: ident.Literal,
			Type:  racr.ArrayType{Path: path, Size: size},
		}, nil
	}

	path, err := p.parsePath()
	if err != nil {
		return racr.RegisterInstance{}, err
	}
	return racr.RegisterInstance{
		Ident: ident.Literal,
		Type:  racr.SingleType{Path: path},
	}, nil
}

// parseOverloadedSlot parses "(" ident ":" Path ("|" ident ":" Path)+ ")"
// "@" offset. At least two alternatives are required; the offset is shared
// by all of them.
func (p *parser) parseOverloadedSlot() (racr.RegisterSlot, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	first, err := p.parseAlternative()
	if err != nil {
		return nil, err
	}
	alternatives := []racr.RegisterInstance{first}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenPipe {
			break
		}
		_, _ = p.next() // consume |

		alt, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, alt)
	}

	if len(alternatives) < 2 {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		return nil, syntaxError(tok, "'|'")
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAt); err != nil {
		return nil, err
	}
	offset, err := p.parseInt()
	if err != nil {
		return nil, err
	}

	return racr.OverloadedSlot{Alternatives: alternatives, Offset: offset}, nil
}

// parseAlternative parses one ident ":" Path alternative of an overloaded
// slot. Alternatives never use the array shorthand.
func (p *parser) parseAlternative() (racr.RegisterInstance, error) {
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.RegisterInstance{}, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return racr.RegisterInstance{}, err
	}
	path, err := p.parsePath()
	if err != nil {
		return racr.RegisterInstance{}, err
	}
	return racr.RegisterInstance{
		Ident: ident.Literal,
		Type:  racr.SingleType{Path: path},
	}, nil
}

func (p *parser) parseDeviceDecl(desc string) (racr.DeviceDefinition, error) {
	if _, err := p.expect(TokenDevice); err != nil {
		return racr.DeviceDefinition{}, err
	}
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.DeviceDefinition{}, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return racr.DeviceDefinition{}, err
	}
	peripherals, err := parseCommaList(p, (*parser).parsePeripheralInstance)
	if err != nil {
		return racr.DeviceDefinition{}, err
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return racr.DeviceDefinition{}, err
	}

	return racr.DeviceDefinition{
		Ident:       ident.Literal,
		Description: desc,
		Peripherals: peripherals,
	}, nil
}

func (p *parser) parsePeripheralInstance() (racr.PeripheralInstance, error) {
	ident, err := p.expect(TokenIdentifier)
	if err != nil {
		return racr.PeripheralInstance{}, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return racr.PeripheralInstance{}, err
	}
	path, err := p.parsePath()
	if err != nil {
		return racr.PeripheralInstance{}, err
	}
	if _, err := p.expect(TokenAt); err != nil {
		return racr.PeripheralInstance{}, err
	}
	address, err := p.parseInt()
	if err != nil {
		return racr.PeripheralInstance{}, err
	}
	return racr.PeripheralInstance{
		Ident:   ident.Literal,
		Path:    path,
		Address: address,
	}, nil
}

// parseCommaList parses element ("," element)* ","? up to (but not
// consuming) the closing brace. Definition bodies require at least one
// element; a trailing comma before the brace is allowed.
func parseCommaList[T any](p *parser, parse func(*parser) (T, error)) ([]T, error) {
	first, err := parse(p)
	if err != nil {
		return nil, err
	}
	elems := []T{first}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenComma {
			break
		}
		_, _ = p.next() // consume comma

		tok, err = p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenRBrace {
			break // trailing comma
		}
		elem, err := parse(p)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}
