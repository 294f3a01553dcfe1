package executequery

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	writeKeywords   = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate)\b`)
	leadingKeyword  = regexp.MustCompile(`^[\s(]*([A-Za-z]+)`)
	lineComment     = regexp.MustCompile(`--[^\n]*`)
	blockComment    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	allowedLeadings = map[string]bool{"select": true, "with": true}

	// INTO never belongs in a read: SELECT ... INTO creates a table.
	intoClause = regexp.MustCompile(`(?i)\binto\b`)

	// Server functions with side effects on settings, sessions or files.
	blockedFunctions = regexp.MustCompile(`(?i)\b(set_config|pg_terminate_backend|pg_cancel_backend|pg_reload_conf|pg_rotate_logfile|pg_sleep\w*|pg_read_file|pg_read_binary_file|pg_ls_dir|pg_advisory_\w+|lo_import|lo_export|lo_unlink|dblink\w*|nextval|setval)\s*\(`)
)

// checkReadOnly is the gate every synthesized query passes before storage
// sees it. It returns the reason for a rejection.
func checkReadOnly(query string) error {
	if m := writeKeywords.FindString(query); m != "" {
		return fmt.Errorf("write keyword %q", strings.ToUpper(m))
	}

	stripped := stripLiterals(query)
	stripped = blockComment.ReplaceAllString(stripped, " ")
	stripped = lineComment.ReplaceAllString(stripped, " ")

	m := leadingKeyword.FindStringSubmatch(stripped)
	if m == nil || !allowedLeadings[strings.ToLower(m[1])] {
		return fmt.Errorf("statement must start with SELECT or WITH")
	}

	if intoClause.MatchString(stripped) {
		return fmt.Errorf("SELECT ... INTO")
	}
	if m := blockedFunctions.FindStringSubmatch(stripped); m != nil {
		return fmt.Errorf("function %s is not allowed", strings.ToLower(m[1]))
	}

	body := strings.TrimRight(strings.TrimSpace(stripped), "; \t\n")
	if strings.Contains(body, ";") {
		return fmt.Errorf("multiple statements")
	}

	return nil
}

// stripLiterals blanks out single-quoted string contents so punctuation in
// values is not mistaken for structure.
func stripLiterals(query string) string {
	var b strings.Builder
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			if inLiteral && i+1 < len(query) && query[i+1] == '\'' {
				i++
				continue
			}
			inLiteral = !inLiteral
			b.WriteByte(c)
			continue
		}
		if inLiteral {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
