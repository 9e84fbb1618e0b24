// Package cmd provides the ragd command-line entry points.
//
// Commands:
//   - serve: HTTP API server with SSE streaming answers
//   - version: build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/openshelf/ragd/internal/log"
)

// Execute is the main entry point for the ragd binary.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		return runServe()
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("ragd - retrieval-augmented question answering over a textbook corpus")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ragd serve [addr] Start the HTTP API server (default: 127.0.0.1:8000)")
	fmt.Println("  ragd --version    Show version information")
	fmt.Println("  ragd --help       Show this help")
	fmt.Println()
	fmt.Println("Configuration is environment-sourced; see internal/config for the")
	fmt.Println("recognized variables (DATABASE_URL, OLLAMA_URL, EMBEDDING_MODEL, ...).")
}
