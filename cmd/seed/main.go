// Package main provides a bulk import tool that walks a directory tree and
// catalogues every image file it finds.
//
// Usage:
//
//	DB_PATH=~/pictures/library.db go run ./cmd/seed ~/pictures
//	DB_PATH=~/pictures/library.db go run ./cmd/seed -tags beach,summer ~/pictures/2025
//	DB_PATH=~/pictures/library.db go run ./cmd/seed -force ~/pictures  # skip duplicate gates
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/service"
	"github.com/pictoria/pictoria-server/internal/store"
)

var (
	tagList = flag.String("tags", "", "Comma-separated tag labels applied to every imported image")
	force   = flag.Bool("force", false, "Import even when the duplicate gates would reject a file")
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-tags a,b] [-force] <directory>\n", os.Args[0])
		os.Exit(2)
	}
	root := flag.Arg(0)

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(root, "library.db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := store.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	library := service.NewLibraryService(s, logger, 0)

	var tags []domain.Tag
	if *tagList != "" {
		for _, label := range strings.Split(*tagList, ",") {
			tags = append(tags, domain.Tag{Label: strings.TrimSpace(label)})
		}
	}

	ctx := context.Background()
	var imported, skipped, failed int

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		img, err := library.Ingest(ctx, path, tags, *force)
		switch {
		case err == nil:
			imported++
			fmt.Printf("imported %s (id %d)\n", path, img.ID)
		case errors.Is(err, errors.ErrDuplicate) || errors.Is(err, errors.ErrAlreadyExists):
			skipped++
			fmt.Printf("skipped  %s: %v\n", path, err)
		default:
			failed++
			fmt.Fprintf(os.Stderr, "failed   %s: %v\n", path, err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Walk failed: %v", err)
	}

	fmt.Printf("\n%d imported, %d skipped, %d failed\n", imported, skipped, failed)
}
