// Package sqlutil provides SQL building helpers shared across isaload.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
// It escapes any existing backticks by doubling them.
// Example: "sensors" -> "`sensors`"
// Example: "my`table" -> "`my``table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex matches valid MySQL identifier characters.
// MySQL permits more ($, unicode), but unit and column names in the
// dataset registry are restricted to alphanumerics and underscores.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid identifier for registry
// and SQL purposes. Every name that ends up interpolated into a statement
// must pass this check.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a MySQL identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this when identifiers might come from untrusted sources.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

// Placeholders returns a comma-joined list of n "?" placeholders for use
// inside an IN (...) clause. Returns an empty string for n <= 0.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// CountQuery builds a COUNT(*) query for a single relation.
func CountQuery(table string) string {
	return "SELECT COUNT(*) FROM " + QuoteIdentifier(table)
}

// AntiJoinCountQuery builds the left-anti-join cardinality query for a
// child/parent key relationship: the number of child rows whose foreign
// key is set but matches no parent key. Empty strings count as unset
// because the upstream CSV generators emit "" for absent optional
// references.
func AntiJoinCountQuery(child, fkColumn, parent, parentKey string) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(QuoteIdentifier(child))
	b.WriteString(" c LEFT JOIN ")
	b.WriteString(QuoteIdentifier(parent))
	b.WriteString(" p ON c.")
	b.WriteString(QuoteIdentifier(fkColumn))
	b.WriteString(" = p.")
	b.WriteString(QuoteIdentifier(parentKey))
	b.WriteString(" WHERE c.")
	b.WriteString(QuoteIdentifier(fkColumn))
	b.WriteString(" IS NOT NULL AND c.")
	b.WriteString(QuoteIdentifier(fkColumn))
	b.WriteString(" <> '' AND p.")
	b.WriteString(QuoteIdentifier(parentKey))
	b.WriteString(" IS NULL")
	return b.String()
}
