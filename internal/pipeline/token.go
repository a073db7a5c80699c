package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Token delimiters use Unicode Private Use Area characters.
// TeX treats them as plain text and pandoc copies them to the HTML output
// unchanged, so a token id survives the external parser as a literal run.
const (
	TokenStart = "\uE000" // U+E000: Private Use Area start
	TokenEnd   = "\uE001" // U+E001: Private Use Area end
)

// tokenPattern matches ids produced by CounterIDs.
var tokenPattern = regexp.MustCompile(TokenStart + `[A-Z]+[0-9]+` + TokenEnd)

// Kind identifies what a token stands in for.
type Kind string

// Token kinds.
const (
	KindTitle   Kind = "maketitle"
	KindImage   Kind = "img"
	KindCaption Kind = "cap"
	KindTable   Kind = "table"
)

// TitlePayload carries the captured \title, \author and \date arguments.
type TitlePayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Date   string `json:"date"`
}

// ImagePayload carries an \includegraphics path and its raw option string.
type ImagePayload struct {
	Path string `json:"path"`
	Opts string `json:"opts"`
}

// TablePayload carries an unparsed tabular body and its column specifier.
type TablePayload struct {
	Raw     string `json:"raw"`
	ColSpec string `json:"colSpec"`
}

// Token is a construct lifted out of the source before external parsing.
// Payload is a TitlePayload, ImagePayload, TablePayload, or a string for
// captions.
type Token struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"type"`
	Payload any    `json:"payload"`
}

// TokenTable maps token ids to tokens for a single render pass.
type TokenTable map[string]Token

// Tables returns the table tokens in id order. Used for debug output.
func (t TokenTable) Tables() []Token {
	var out []Token
	for _, tok := range t {
		if tok.Kind == KindTable {
			out = append(out, tok)
		}
	}
	sort.Slice(out, func(i, j int) bool { return tokenOrder(out[i].ID) < tokenOrder(out[j].ID) })
	return out
}

func tokenOrder(id string) int {
	digits := strings.TrimFunc(strings.TrimSuffix(strings.TrimPrefix(id, TokenStart), TokenEnd), func(r rune) bool {
		return r < '0' || r > '9'
	})
	n, _ := strconv.Atoi(digits)
	return n
}

// IDGenerator mints token ids. Ids must be unique within a render pass and
// must not contain characters TeX or the external parser would interpret.
type IDGenerator interface {
	NewID(kind Kind) string
}

// CounterIDs generates ids of the form U+E000 KIND N U+E001.
// Not safe for concurrent use; create one per render pass.
type CounterIDs struct {
	n int
}

// NewID returns the next id for kind.
func (c *CounterIDs) NewID(kind Kind) string {
	c.n++
	return TokenStart + strings.ToUpper(string(kind)) + strconv.Itoa(c.n) + TokenEnd
}

// tokenizer binds a generator to the table it fills.
type tokenizer struct {
	ids    IDGenerator
	tokens TokenTable
}

func (t *tokenizer) emit(kind Kind, payload any) string {
	id := t.ids.NewID(kind)
	t.tokens[id] = Token{ID: id, Kind: kind, Payload: payload}
	return id
}
