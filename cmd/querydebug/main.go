// Package main provides a debugging tool that shows every stage of the query
// pipeline for a given query string: expansion, the normalized expression,
// and the generated SQL.
//
// Usage:
//
//	DB_PATH=~/pictures/library.db go run ./cmd/querydebug 'beach -mountain'
//
// Without DB_PATH the query compiles against an empty set of compound-tag
// definitions.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/pictoria/pictoria-server/internal/query"
	"github.com/pictoria/pictoria-server/internal/store"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <query>\n", os.Args[0])
		os.Exit(2)
	}
	raw := os.Args[1]

	defs := map[string]string{}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		s, err := store.Open(dbPath, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer s.Close()

		defs, err = s.CompoundTagDefinitions(context.Background())
		if err != nil {
			log.Fatalf("Failed to load compound tags: %v", err)
		}
	}

	fmt.Printf("query:      %s\n", raw)

	expanded, err := query.Expand(raw, defs, 0)
	if err != nil {
		log.Fatalf("Expansion failed: %v", err)
	}
	fmt.Printf("expanded:   %s\n", expanded)

	expr, err := query.Parse(expanded)
	if err != nil {
		log.Fatalf("Parse failed: %v", err)
	}
	fmt.Printf("parsed:     %s\n", expr)

	normalized := query.Normalize(expr)
	fmt.Printf("normalized: %s\n", normalized)

	compiled, err := query.Compile(normalized, query.DefaultRegistry())
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	if compiled.Empty {
		fmt.Println("sql:        (unsatisfiable, no SQL generated)")
		return
	}
	fmt.Printf("sql:\n%s\n", compiled.SQL)
	fmt.Printf("args:       %v\n", compiled.Args)
}
