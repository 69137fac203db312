// Package racrparser implements a parser for the racr register description
// language.
//
// racr describes memory-mapped hardware: register bit-field layouts,
// peripheral register maps, and device peripheral maps, organized into
// modules and stitched together with use statements. The parser turns
// source text into the AST values defined in the racr subpackage; it does
// no file loading, no name resolution, and no semantic checking (for those
// see racr.Validate).
//
// The parser is structured as a hand-rolled recursive-descent parser with
// three layers:
//
//   - Lexer: converts raw bytes into a token stream, stripping comments and
//     whitespace.
//   - Parser: consumes tokens according to the grammar and builds the AST.
//   - AST types: the output data structures in package racr.
//
// Every grammar root is independently callable, so fragments parse without
// a surrounding file:
//
//	items, err := racrparser.ParseContent(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg, err := racrparser.ParseRegisterDefinition([]byte(
//	    `ReadWrite register[32] Cr { enable[0], prescaler[1..7] }`))
//
// Numeric literals are decimal or 0x hex anywhere a size, bit index,
// offset, address, or reset value appears. A parse either fully succeeds or
// fails on the first error with a *LexError, *SyntaxError, or *DepthError
// carrying the source position.
package racrparser
