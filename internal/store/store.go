// Package store provides SQLite-backed persistence for the image library:
// the image/tag relation, tag types, compound-tag definitions, and execution
// of compiled set-algebra queries.
package store

import (
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	sqlite3 "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

func init() {
	// Compiled metatag queries rely on the REGEXP operator, which SQLite
	// only provides when the application registers the regexp() function.
	sqlite3.MustRegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
}

// regexpCache memoizes compiled patterns; a query reuses the same pattern
// for every row it scans.
var regexpCache sync.Map // string -> *regexp.Regexp

// regexpFunc implements regexp(pattern, text) with search semantics; the
// compiler anchors its patterns explicitly.
func regexpFunc(_ *sqlite3.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("regexp: pattern is not text")
	}
	text, ok := args[1].(string)
	if !ok {
		// NULL paths never match.
		return int64(0), nil
	}

	var re *regexp.Regexp
	if cached, ok := regexpCache.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("regexp: %w", err)
		}
		regexpCache.Store(pattern, compiled)
		re = compiled
	}

	if re.MatchString(text) {
		return int64(1), nil
	}
	return int64(0), nil
}

// Store provides SQLite-backed persistence for the image library.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a store at the given path, configures WAL mode and pragmas,
// and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses an RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// encodeHash encodes a fingerprint as an 8-byte big-endian blob, or NULL for
// an absent fingerprint.
func encodeHash(hash *uint64) any {
	if hash == nil {
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, *hash)
	return buf
}

// decodeHash decodes a nullable 8-byte blob back to a fingerprint.
func decodeHash(blob []byte) (*uint64, error) {
	if blob == nil {
		return nil, nil
	}
	if len(blob) != 8 {
		return nil, fmt.Errorf("fingerprint blob has %d bytes, want 8", len(blob))
	}
	h := binary.BigEndian.Uint64(blob)
	return &h, nil
}

// nullInt64 converts an optional int64 to its sql representation.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// int64Ptr converts a sql nullable back to an optional int64.
func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
