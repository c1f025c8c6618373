package pgsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dataxfer/pgsource/internal/oidcache"
)

// resolveHstoreOID looks up the hstore extension's catalog OID for pool,
// resolving it at most once since it never changes for the lifetime of a
// pool. Returns 0, nil if the extension isn't installed.
func resolveHstoreOID(ctx context.Context, pool *pgxpool.Pool, cache *oidcache.Cache) (uint32, error) {
	return cache.Resolve(func() (uint32, error) {
		var oid uint32
		err := pool.QueryRow(ctx, "SELECT oid FROM pg_type WHERE typname = 'hstore'").Scan(&oid)
		if err != nil {
			// Extension not installed is not an error for databases that
			// never use hstore; callers that actually hit an hstore column
			// without the extension will fail later with TypeConversionError.
			return 0, nil
		}
		return oid, nil
	})
}

// parseHstoreText decodes PostgreSQL's hstore text representation, e.g.
// `"a"=>"1", "b"=>NULL`, into a map of key to optional value. Only the
// cursor protocol calls this: hstore columns reach it as plain text
// because no binary/CSV codec is registered for the extension type. The
// binary and CSV parsers instead fail Unimplemented before ever calling
// this.
func parseHstoreText(s string) (map[string]*string, error) {
	out := map[string]*string{}
	r := []rune(s)
	i, n := 0, len(r)

	skipSpace := func() {
		for i < n && (r[i] == ' ' || r[i] == ',') {
			i++
		}
	}
	readQuoted := func() (string, error) {
		if i >= n || r[i] != '"' {
			return "", fmt.Errorf("hstore: expected quote at offset %d", i)
		}
		i++
		var b strings.Builder
		for i < n {
			switch r[i] {
			case '\\':
				if i+1 < n {
					b.WriteRune(r[i+1])
					i += 2
					continue
				}
				return "", fmt.Errorf("hstore: dangling escape")
			case '"':
				i++
				return b.String(), nil
			default:
				b.WriteRune(r[i])
				i++
			}
		}
		return "", fmt.Errorf("hstore: unterminated quoted string")
	}

	for {
		skipSpace()
		if i >= n {
			break
		}
		key, err := readQuoted()
		if err != nil {
			return nil, err
		}
		skipSpace()
		if i+1 >= n || r[i] != '=' || r[i+1] != '>' {
			return nil, fmt.Errorf("hstore: expected => after key %q", key)
		}
		i += 2
		skipSpace()
		if strings.HasPrefix(string(r[i:]), "NULL") {
			out[key] = nil
			i += 4
			continue
		}
		val, err := readQuoted()
		if err != nil {
			return nil, err
		}
		v := val
		out[key] = &v
	}
	return out, nil
}
