package postgres

import "strings"

// SplitStatements splits a SQL script into individual statements. Unlike a
// naive split on ';' it tracks single quotes, double quotes, dollar-quoted
// strings (including tagged ones like $body$ ... $body$), and both comment
// styles, so semicolons inside function bodies and literals survive.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder

		inSingle    bool
		inDouble    bool
		inLineCmt   bool
		inBlockCmt  bool
		dollarTag   string // non-empty while inside a dollar-quoted string
	)

	i := 0
	for i < len(script) {
		c := script[i]

		switch {
		case inLineCmt:
			current.WriteByte(c)
			if c == '\n' {
				inLineCmt = false
			}
			i++
			continue

		case inBlockCmt:
			if c == '*' && i+1 < len(script) && script[i+1] == '/' {
				current.WriteString("*/")
				inBlockCmt = false
				i += 2
				continue
			}
			current.WriteByte(c)
			i++
			continue

		case inSingle:
			current.WriteByte(c)
			if c == '\'' {
				// '' escapes a quote inside the literal.
				if i+1 < len(script) && script[i+1] == '\'' {
					current.WriteByte('\'')
					i += 2
					continue
				}
				inSingle = false
			}
			i++
			continue

		case inDouble:
			current.WriteByte(c)
			if c == '"' {
				inDouble = false
			}
			i++
			continue

		case dollarTag != "":
			if c == '$' && strings.HasPrefix(script[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag)
				dollarTag = ""
				continue
			}
			current.WriteByte(c)
			i++
			continue
		}

		switch c {
		case '-':
			if i+1 < len(script) && script[i+1] == '-' {
				inLineCmt = true
			}
			current.WriteByte(c)
			i++

		case '/':
			if i+1 < len(script) && script[i+1] == '*' {
				inBlockCmt = true
			}
			current.WriteByte(c)
			i++

		case '\'':
			inSingle = true
			current.WriteByte(c)
			i++

		case '"':
			inDouble = true
			current.WriteByte(c)
			i++

		case '$':
			if tag := readDollarTag(script[i:]); tag != "" {
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag)
				continue
			}
			current.WriteByte(c)
			i++

		case ';':
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			i++

		default:
			current.WriteByte(c)
			i++
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

// readDollarTag returns the dollar-quote opener at the start of s ("$$" or
// "$tag$"), or "" when s does not start one.
func readDollarTag(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return ""
	}
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1]
		}
		if !isTagChar(c) {
			return ""
		}
	}
	return ""
}

func isTagChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
