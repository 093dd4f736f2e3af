package domain

import "strings"

// SearchKind selects which space of an archive a search scans.
type SearchKind string

// Search kinds.
const (
	SearchMessages SearchKind = "message"
	SearchContacts SearchKind = "contact"
	SearchChats    SearchKind = "chat"
	SearchTables   SearchKind = "table"
)

// Query is a parsed search query. Terms are implicitly AND'ed; a bare
// OR joins adjacent terms into a group of alternatives; double quotes
// keep phrases together; chat: and from: prefixes scope the search.
// Malformed scoped filters degrade to literal text tokens rather than
// failing the query.
type Query struct {
	// Groups is an AND of OR-groups: every group must match, a group
	// matches when any of its alternatives does. Terms are lowercased.
	Groups [][]string

	// Chats holds chat: scope filters, lowercased.
	Chats []string

	// Authors holds from: scope filters, lowercased.
	Authors []string

	// Raw is the original query text.
	Raw string
}

// ParseQuery parses the informal boolean search syntax. It never
// fails: anything it cannot interpret is kept as a literal term.
func ParseQuery(text string) Query {
	q := Query{Raw: text}

	tokens := tokenize(text)
	var pending []string // current OR group under construction
	orNext := false      // previous token was a bare OR

	flush := func() {
		if len(pending) > 0 {
			q.Groups = append(q.Groups, pending)
			pending = nil
		}
	}

	for _, tok := range tokens {
		if tok.raw == "OR" && !tok.quoted {
			if len(pending) == 0 {
				// Stray OR with nothing to join: literal term.
				pending = append(pending, "or")
				continue
			}
			orNext = true
			continue
		}

		if !tok.quoted {
			if val, ok := scopedValue(tok.raw, "chat:"); ok {
				q.Chats = append(q.Chats, strings.ToLower(val))
				continue
			}
			if val, ok := scopedValue(tok.raw, "from:"); ok {
				q.Authors = append(q.Authors, strings.ToLower(val))
				continue
			}
		}

		term := strings.ToLower(tok.raw)
		if orNext {
			pending = append(pending, term)
			orNext = false
			continue
		}
		flush()
		pending = append(pending, term)
	}
	flush()

	return q
}

// scopedValue extracts the value of a scoped filter token. An empty
// value is malformed and the token stays literal.
func scopedValue(tok, prefix string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(tok), prefix) {
		return "", false
	}
	val := tok[len(prefix):]
	if val == "" {
		return "", false
	}
	return val, true
}

// Empty reports whether the query has no terms and no scope filters.
func (q Query) Empty() bool {
	return len(q.Groups) == 0 && len(q.Chats) == 0 && len(q.Authors) == 0
}

// MatchText reports whether every AND group matches the text as a
// case-insensitive substring.
func (q Query) MatchText(text string) bool {
	if len(q.Groups) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, group := range q.Groups {
		matched := false
		for _, alt := range group {
			if strings.Contains(lower, alt) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchChat reports whether the chat falls within the chat: scope.
// An unscoped query matches every chat.
func (q Query) MatchChat(c Chat) bool {
	if len(q.Chats) == 0 {
		return true
	}
	title := strings.ToLower(c.Title)
	identity := strings.ToLower(c.Identity)
	for _, want := range q.Chats {
		if strings.Contains(title, want) || strings.Contains(identity, want) {
			return true
		}
	}
	return false
}

// MatchAuthor reports whether the author falls within the from: scope.
// An unscoped query matches every author.
func (q Query) MatchAuthor(handle, displayName string) bool {
	if len(q.Authors) == 0 {
		return true
	}
	handle = strings.ToLower(handle)
	displayName = strings.ToLower(displayName)
	for _, want := range q.Authors {
		if strings.Contains(handle, want) || strings.Contains(displayName, want) {
			return true
		}
	}
	return false
}

// token is one whitespace- or quote-delimited unit of the query text.
type token struct {
	raw    string
	quoted bool
}

// tokenize splits query text on whitespace, keeping double-quoted
// phrases together. An unterminated quote runs to the end of the text.
func tokenize(text string) []token {
	var tokens []token
	var current strings.Builder
	inQuote := false
	wasQuoted := false

	emit := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{raw: current.String(), quoted: wasQuoted})
			current.Reset()
		}
		wasQuoted = false
	}

	for _, r := range text {
		switch {
		case r == '"':
			if inQuote {
				inQuote = false
				emit()
			} else {
				emit()
				inQuote = true
				wasQuoted = true
			}
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			emit()
		default:
			current.WriteRune(r)
		}
	}
	emit()

	return tokens
}
