package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-notes/pkg/simplenotes/admin"
	"github.com/tendant/simple-notes/pkg/simplenotes/config"
)

const usage = `Simple Notes Admin CLI

A small admin tool that reads the notes database directly.

USAGE:
  admin <command> [options]

COMMANDS:
  stats     Count libraries, pages, public nodes, versions and tags for a user

ENVIRONMENT VARIABLES:
  DATABASE_URL      "memory" or a PostgreSQL connection string (default: memory)
  DB_SCHEMA         PostgreSQL schema name (default: notes)

  Configuration can be loaded from a .env file in the current directory.

EXAMPLES:
  admin stats --user=user-1
  admin stats --user=user-1 --json

OPTIONS:
  --user=<id>       User whose data is counted (required)
  --json            Output as JSON
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	userID, useJSON := parseFlags(os.Args[2:])

	switch command {
	case "stats":
		if userID == "" {
			fmt.Println("--user is required")
			os.Exit(1)
		}
		handleStats(userID, useJSON)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func parseFlags(args []string) (userID string, useJSON bool) {
	for _, arg := range args {
		switch {
		case arg == "--json":
			useJSON = true
		case strings.HasPrefix(arg, "--user="):
			userID = strings.TrimPrefix(arg, "--user=")
		}
	}
	return userID, useJSON
}

func handleStats(userID string, useJSON bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(config.WithEnv(), config.WithLogLevel("warn"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	rt, err := cfg.BuildService(ctx)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer rt.Close()

	resp, err := admin.New(rt.Store).GetStatistics(ctx, admin.StatisticsRequest{UserID: userID})
	if err != nil {
		log.Fatalf("Failed to get statistics: %v", err)
	}

	if useJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			log.Fatalf("Failed to encode JSON: %v", err)
		}
		return
	}

	fmt.Printf("Statistics for %s (generated %s)\n\n", resp.UserID, resp.GeneratedAt.Format(time.RFC3339))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tCOUNT")
	fmt.Fprintf(w, "Libraries\t%d\n", resp.Statistics.Libraries)
	fmt.Fprintf(w, "Pages\t%d\n", resp.Statistics.Pages)
	fmt.Fprintf(w, "Public nodes\t%d\n", resp.Statistics.PublicNodes)
	fmt.Fprintf(w, "Versions\t%d\n", resp.Statistics.Versions)
	fmt.Fprintf(w, "Tags\t%d\n", resp.Statistics.Tags)
	w.Flush()
}
