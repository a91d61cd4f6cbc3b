package store

import "strings"

// Open picks a backend: Postgres when a DSN is set, otherwise SQLite when a
// path is set, otherwise in-memory. Returns the store and a label for logs.
func Open(postgresDSN, sqlitePath string) (Store, string, error) {
	if dsn := strings.TrimSpace(postgresDSN); dsn != "" {
		s, err := OpenPostgres(dsn)
		if err != nil {
			return nil, "", err
		}
		return s, "postgres", nil
	}
	if path := strings.TrimSpace(sqlitePath); path != "" {
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	}
	return NewMemory(), "memory", nil
}
