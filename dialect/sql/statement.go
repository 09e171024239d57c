package sql

import "strings"

// StatementKind is the normalized leading keyword of a SQL statement.
// It is used to route a statement either to the query execution path
// (returning rows) or to the exec path (returning an affected-row count).
type StatementKind string

// Recognized statement kinds.
const (
	KindSelect StatementKind = "SELECT"
	KindInsert StatementKind = "INSERT"
	KindUpdate StatementKind = "UPDATE"
	KindDelete StatementKind = "DELETE"
	KindMerge  StatementKind = "MERGE"

	// KindUnknown is reported for statements whose leading keyword is not
	// part of the recognized vocabulary, including blank input. Callers
	// must treat it as "no recognized statement type" and fall back to a
	// default path rather than failing.
	KindUnknown StatementKind = ""
)

// Query reports whether statements of this kind return rows.
func (k StatementKind) Query() bool { return k == KindSelect }

// Mutation reports whether statements of this kind mutate data and
// report an affected-row count.
func (k StatementKind) Mutation() bool {
	switch k {
	case KindInsert, KindUpdate, KindDelete, KindMerge:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k StatementKind) String() string {
	if k == KindUnknown {
		return "UNKNOWN"
	}
	return string(k)
}

// LeadingKeyword classifies a SQL statement by its leading keyword,
// normalized to upper case. Statements prefixed with WITH [RECURSIVE]
// common-table-expressions are classified by the verb that follows the
// CTE definitions, not by anything inside their bodies. Leading
// whitespace, "--" and MySQL-style "#" line comments, and "/* */" block
// comments are skipped. A statement whose leading word is not part of
// the recognized vocabulary yields KindUnknown.
//
// Classification is advisory: malformed input never causes an error.
// Unterminated comments and literals consume to the end of the input,
// and stray closing parentheses are tolerated. The authoritative syntax
// error, if any, is raised by the database when the statement executes.
func LeadingKeyword(query string) StatementKind {
	switch w := strings.ToUpper(LeadingWord(query)); w {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
		return StatementKind(w)
	default:
		return KindUnknown
	}
}

// LeadingWord returns the first semantically significant verb of a SQL
// statement with its original casing, or the empty string if the input
// is blank or consists only of whitespace and comments. Unlike
// LeadingKeyword, an unrecognized leading word is returned as-is. For
// WITH-prefixed statements, only a recognized verb qualifies, since the
// scanner needs the keyword vocabulary to tell the top-level verb apart
// from CTE names and column lists.
func LeadingWord(query string) string {
	i := skipSpaceAndComments(query, 0)
	if i == len(query) {
		return ""
	}
	word, next := readWord(query, i)
	if !strings.EqualFold(word, "WITH") {
		return word
	}
	// WITH [RECURSIVE] name [(col, ...)] AS (...) [, ...] <verb> ...
	i = skipSpaceAndComments(query, next)
	if word, next = readWord(query, i); strings.EqualFold(word, "RECURSIVE") {
		i = next
	}
	return keywordAfterCTE(query, i)
}

// keywordAfterCTE scans past one or more comma-separated CTE definitions
// and returns the first recognized statement keyword found at parenthesis
// depth zero. Keywords inside a CTE body and the contents of quoted
// literals are skipped. The depth counter is floored at zero, so extra
// closing parentheses are tolerated rather than treated as errors.
func keywordAfterCTE(query string, i int) string {
	depth := 0
	for {
		i = skipSpaceAndComments(query, i)
		if i == len(query) {
			return ""
		}
		switch c := query[i]; {
		case c == '\'' || c == '"':
			i = skipQuoted(query, i+1, c)
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isLetter(c):
			word, next := readWord(query, i)
			if depth == 0 && isStatementWord(word) {
				return word
			}
			i = next
		default:
			i++
		}
	}
}

func isStatementWord(word string) bool {
	for _, k := range [...]string{"SELECT", "INSERT", "UPDATE", "DELETE", "MERGE"} {
		if strings.EqualFold(word, k) {
			return true
		}
	}
	return false
}

// skipSpaceAndComments returns the first offset at or after i that is
// neither whitespace nor part of a comment. Line comments ("--" and
// MySQL-style "#") run to the next newline. Block comments do not nest;
// the first "*/" terminates, and an unterminated block comment consumes
// the rest of the input. The returned offset is never smaller than i.
func skipSpaceAndComments(s string, i int) int {
	for i < len(s) {
		switch c := s[i]; {
		case isSpace(c):
			i++
		case c == '#':
			i = skipLine(s, i+1)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			i = skipLine(s, i+2)
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			if end := strings.Index(s[i+2:], "*/"); end != -1 {
				i += end + 4
			} else {
				i = len(s)
			}
		default:
			return i
		}
	}
	return len(s)
}

// skipLine advances past the rest of a line comment, consuming the
// terminating newline if present.
func skipLine(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}

// skipQuoted advances past a quoted literal. i points one past the
// opening quote q. A doubled quote character is the SQL escape for the
// quote itself, not a terminator. An unterminated literal consumes the
// rest of the input.
func skipQuoted(s string, i int, q byte) int {
	for i < len(s) {
		if s[i] != q {
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

// readWord reads the maximal run of letters starting at i. It returns
// the word with its original casing and the offset one past it. The word
// is empty if the character at i is not a letter; digits and punctuation
// are word boundaries, not word content.
func readWord(s string, i int) (string, int) {
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	return s[i:j], j
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
