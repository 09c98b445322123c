// Command docparse parses a single document and prints the extracted
// content, structure and metadata as JSON.
//
// Usage:
//
//	go run ./cmd/docparse --file resume.pdf
//	go run ./cmd/docparse --file notes.txt --pretty
//	go run ./cmd/docparse --file report.docx --cache --reuse
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/brunobiangulo/docparse"
)

func main() {
	var (
		file    = flag.String("file", "", "path to the document to parse")
		format  = flag.String("format", "", "file type token override (default: file extension)")
		cache   = flag.Bool("cache", false, "enable the SQLite parse-result cache")
		reuse   = flag.Bool("reuse", false, "return cached results for unchanged content")
		pretty  = flag.Bool("pretty", false, "indent the JSON output")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: docparse --file <path> [--format pdf|docx|txt|xlsx]")
		os.Exit(2)
	}

	cfg := docparse.DefaultConfig()
	cfg.EnableCache = *cache
	cfg.ReuseCached = *reuse

	svc, err := docparse.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx := context.Background()

	var result any
	if *format != "" {
		content, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		result, err = svc.Parse(ctx, *format, content)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	} else {
		parsed, err := svc.ParseFile(ctx, *file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		result = parsed
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
