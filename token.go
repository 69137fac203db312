package racrparser

// TokenKind identifies the type of a lexical token.
type TokenKind int

const (
	TokenEOF        TokenKind = iota
	TokenIdentifier           // [A-Za-z_][A-Za-z0-9_]*
	TokenString               // "..." inside a doc attribute
	TokenInteger              // decimal or 0x hex, literal kept verbatim

	TokenPathSep   // ::
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenDotDot    // ..
	TokenAt        // @
	TokenEquals    // =
	TokenSemicolon // ;
	TokenComma     // ,
	TokenColon     // :
	TokenPipe      // |
	TokenHash      // #

	// Keywords (identifier text checked against keyword map)
	TokenMod        // mod
	TokenUse        // use
	TokenRegister   // register
	TokenPeripheral // peripheral
	TokenDevice     // device
	TokenCrate      // crate
	TokenReadOnly   // ReadOnly
	TokenWriteOnly  // WriteOnly
	TokenReadWrite  // ReadWrite
)

var tokenNames = map[TokenKind]string{
	TokenEOF:        "EOF",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenInteger:    "integer",
	TokenPathSep:    "'::'",
	TokenLBrace:     "'{'",
	TokenRBrace:     "'}'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenLBracket:   "'['",
	TokenRBracket:   "']'",
	TokenDotDot:     "'..'",
	TokenAt:         "'@'",
	TokenEquals:     "'='",
	TokenSemicolon:  "';'",
	TokenComma:      "','",
	TokenColon:      "':'",
	TokenPipe:       "'|'",
	TokenHash:       "'#'",
	TokenMod:        "'mod'",
	TokenUse:        "'use'",
	TokenRegister:   "'register'",
	TokenPeripheral: "'peripheral'",
	TokenDevice:     "'device'",
	TokenCrate:      "'crate'",
	TokenReadOnly:   "'ReadOnly'",
	TokenWriteOnly:  "'WriteOnly'",
	TokenReadWrite:  "'ReadWrite'",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "unknown"
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Kind    TokenKind
	Literal string // text content (decoded for strings, raw for others)
	Pos     Position
}

// keywords maps reserved identifier spellings to their token kinds.
var keywords = map[string]TokenKind{
	"mod":        TokenMod,
	"use":        TokenUse,
	"register":   TokenRegister,
	"peripheral": TokenPeripheral,
	"device":     TokenDevice,
	"crate":      TokenCrate,
	"ReadOnly":   TokenReadOnly,
	"WriteOnly":  TokenWriteOnly,
	"ReadWrite":  TokenReadWrite,
}
