// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Sensitive data redaction for DSN and connection strings.

package safety

import (
	"net/url"
	"strings"
)

func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if u.User != nil {
		if _, hasPwd := u.User.Password(); hasPwd {
			u.User = url.UserPassword(u.User.Username(), "***")
			// URL.String percent-encodes '*' in userinfo; restore the literal mask.
			return strings.Replace(u.String(), ":%2A%2A%2A@", ":***@", 1)
		}
	}
	return u.String()
}

// QuoteIdent performs a minimal identifier quoting for SQL identifiers.
// For safety, it doubles internal quotes.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
