package synthesizequery

import (
	"fmt"
	"strings"
	"unicode"

	"chat-assistant/internal/models"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenPunct
)

type token struct {
	kind  tokenKind
	value string
}

// tokenize splits a statement into identifiers and punctuation. String
// literals, numbers and comments are dropped.
func tokenize(query string) []token {
	var tokens []token
	runes := []rune(query)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'':
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			i++
		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			tokens = append(tokens, token{kind: tokenIdent, value: string(runes[i+1 : min(j, len(runes))])})
			i = j + 1
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tokens = append(tokens, token{kind: tokenIdent, value: string(runes[i:j])})
			i = j
		case unicode.IsDigit(r):
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
		default:
			tokens = append(tokens, token{kind: tokenPunct, value: string(r)})
			i++
		}
	}

	return tokens
}

// checkIdentifiers is a best-effort reference check, not a parser. Tables
// named after FROM or JOIN must be the schema table or a CTE, and qualified
// column references must name a schema field.
func checkIdentifiers(query string, schema models.SchemaDescriptor) error {
	tokens := tokenize(query)

	known := map[string]bool{strings.ToLower(schema.Table()): true}
	for i, tok := range tokens {
		if tok.kind != tokenIdent {
			continue
		}
		// "name AS (" introduces a common table expression
		if i+2 < len(tokens) && strings.EqualFold(tokens[i+1].value, "as") && tokens[i+2].value == "(" {
			known[strings.ToLower(tok.value)] = true
		}
	}

	aliases := make(map[string]bool)
	for i, tok := range tokens {
		word := strings.ToLower(tok.value)
		if tok.kind != tokenIdent || (word != "from" && word != "join") {
			continue
		}
		if i+1 >= len(tokens) || tokens[i+1].kind != tokenIdent {
			continue
		}
		name := tokens[i+1].value
		// EXTRACT(field FROM column) names a column, not a table
		if !known[strings.ToLower(name)] && !schema.HasField(name) {
			return fmt.Errorf("unknown table %q", name)
		}
		if alias := aliasAfter(tokens, i+2); alias != "" {
			aliases[alias] = true
		}
	}

	for i := 0; i+2 < len(tokens); i++ {
		if tokens[i].kind != tokenIdent || tokens[i+1].value != "." || tokens[i+2].kind != tokenIdent {
			continue
		}
		qualifier := strings.ToLower(tokens[i].value)
		if (known[qualifier] || aliases[qualifier]) && !schema.HasField(tokens[i+2].value) {
			return fmt.Errorf("unknown field %q", tokens[i+2].value)
		}
	}

	return nil
}

func aliasAfter(tokens []token, i int) string {
	if i < len(tokens) && strings.EqualFold(tokens[i].value, "as") {
		i++
	}
	if i >= len(tokens) || tokens[i].kind != tokenIdent {
		return ""
	}
	word := strings.ToLower(tokens[i].value)
	if clauseWords[word] {
		return ""
	}
	return word
}

var clauseWords = map[string]bool{
	"where": true, "group": true, "order": true, "limit": true, "offset": true,
	"having": true, "join": true, "inner": true, "left": true, "right": true,
	"full": true, "cross": true, "on": true, "union": true, "fetch": true,
	"window": true, "natural": true, "using": true,
}
