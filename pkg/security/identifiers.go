// Package security implements identifier sanitization, SSRF guarding,
// rate limiting and app access checks performed before any block side
// effect executes.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/appforge/flowcore/pkg/runfail"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Words that collide with SQL keywords frequently enough to matter for
// user-authored schemas. Reserved names get suffixed instead of
// rejected so canvas authors are not exposed to SQL details.
var reservedWords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"table": true, "index": true, "where": true, "from": true,
	"join": true, "group": true, "order": true, "limit": true,
	"offset": true, "user": true, "column": true, "primary": true,
	"key": true, "constraint": true, "default": true, "references": true,
	"create": true, "drop": true, "alter": true, "grant": true,
	"union": true, "all": true, "and": true, "or": true, "not": true,
	"null": true, "true": true, "false": true, "case": true, "when": true,
}

// ValidateTableName checks a table identifier and returns the safe form.
// Reserved words get a "_table" suffix.
func ValidateTableName(name string) (string, error) {
	return validateIdentifier(name, "_table")
}

// ValidateColumnName checks a column identifier and returns the safe
// form. Reserved words get a "_field" suffix.
func ValidateColumnName(name string) (string, error) {
	return validateIdentifier(name, "_field")
}

func validateIdentifier(name, reservedSuffix string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", runfail.New(runfail.CodeValidation, "identifier cannot be empty")
	}

	if len(trimmed) > 63 {
		return "", runfail.New(runfail.CodeValidation, fmt.Sprintf("identifier %q exceeds 63 characters", trimmed))
	}

	if !identifierRe.MatchString(trimmed) {
		return "", runfail.New(runfail.CodeValidation, fmt.Sprintf("identifier %q contains invalid characters", trimmed))
	}

	if reservedWords[strings.ToLower(trimmed)] {
		return trimmed + reservedSuffix, nil
	}

	return trimmed, nil
}

// SanitizeBaseName lowercases and strips a canvas-supplied table base
// name down to a valid identifier. Used when materializing tables so
// the physical name app_{appID}_{base} is always safe.
func SanitizeBaseName(name string) (string, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, " ", "_")
	lowered = strings.ReplaceAll(lowered, "-", "_")

	var b strings.Builder

	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || (cleaned[0] >= '0' && cleaned[0] <= '9') {
		cleaned = "t_" + cleaned
	}

	return ValidateTableName(cleaned)
}
