// fitflow-mcp exposes the recovery scorer as MCP tools.
//
// Usage:
//
//	fitflow-mcp serve      # stdio transport
//	fitflow-mcp version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"fitflow-backend/internal/bootstrap"
	"fitflow-backend/internal/mcptools"
	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/shared/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("fitflow-mcp v%s\n", mcptools.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// stdout carries the protocol
	telemetry.SetOutput(os.Stderr)

	rulesFile := os.Getenv("RULES_FILE")
	provider, err := bootstrap.BuildScorers(rulesFile)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if rulesFile != "" {
		go func() {
			if err := recovery.Watch(ctx, rulesFile, provider); err != nil {
				telemetry.Warn("mcp.rules_watch_failed", map[string]any{"path": rulesFile, "error": err.Error()})
			}
		}()
	}

	return server.ServeStdio(mcptools.NewServer(provider))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `fitflow-mcp v%s - recovery scoring over MCP

Usage:
  fitflow-mcp <command>

Commands:
  serve     Start the MCP server on stdio
  version   Print the version
  help      Show this help

Environment:
  RULES_FILE   YAML file overriding score weights and thresholds (reloaded on change)
`, mcptools.Version)
}
