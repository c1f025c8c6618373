package pgsource

import "fmt"

// Query is a SQL statement embeddable verbatim inside the COPY and
// count-derivation wrappers this source builds. It does not distinguish
// user-supplied text from library-derived text at the type level — both
// are plain strings that must already be valid standalone SQL. Raw below
// marks user-supplied text; the COPY and count wrappers return plain
// strings rather than Query values.
type Query string

// Raw wraps a user-supplied SQL string as-is.
func Raw(sql string) Query { return Query(sql) }

// wrapCopyBinary returns the query that streams sql's result as PostgreSQL
// binary COPY data.
func wrapCopyBinary(sql Query) string {
	return fmt.Sprintf("COPY (%s) TO STDOUT WITH BINARY", sql)
}

// wrapCopyCSV returns the query that streams sql's result as headerless CSV.
func wrapCopyCSV(sql Query) string {
	return fmt.Sprintf("COPY (%s) TO STDOUT WITH CSV", sql)
}

func (q Query) String() string { return string(q) }
