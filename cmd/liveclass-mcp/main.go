// Command liveclass-mcp serves the live class MCP tools over stdio,
// reading from a remote liveclass server through its REST API.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	baseURL := flag.String("url", envOr("LIVECLASS_URL", "http://localhost:8080"), "liveclass server base URL")
	token := flag.String("token", os.Getenv("LIVECLASS_TOKEN"), "bearer token identifying the user")
	apiKey := flag.String("api-key", os.Getenv("LIVECLASS_API_KEY"), "service API key, used when no token is set")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *token == "" && *apiKey == "" {
		log.Error("a token or api key is required")
		os.Exit(1)
	}

	client := mcp.NewHTTPClient(*baseURL, *token, *apiKey)
	s := mcp.New(client, Version, log)

	log.Info("liveclass-mcp serving on stdio", "url", *baseURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("serve MCP", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
