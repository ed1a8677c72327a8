package expr

import (
	"strings"

	"github.com/sqlframe/sqlframe/internal/config"
)

// QuoteIdent renders a column or relation identifier double-quoted. An
// embedded double quote would break the generated SQL, so it is replaced by
// an underscore and a warning is emitted.
func QuoteIdent(name string) string {
	clean := CleanIdent(name)
	if strings.Contains(clean, `"`) {
		rewritten := strings.ReplaceAll(clean, `"`, "_")
		config.Warnf("column name %q contains a double quote, rewritten to %q", clean, rewritten)
		clean = rewritten
	}
	return `"` + clean + `"`
}

// CleanIdent strips one level of surrounding double quotes, if present, so
// quoting is idempotent across repeated calls.
func CleanIdent(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name[1 : len(name)-1]
	}
	return name
}

// SameIdent compares two identifiers ignoring quoting and case.
func SameIdent(a, b string) bool {
	return strings.EqualFold(CleanIdent(a), CleanIdent(b))
}
