package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CampusChat/internal/chatbot"
	"CampusChat/internal/config"
)

func main() {
	configPath := flag.String("config", "campuschat.toml", "Path to TOML config file")
	mode := flag.String("mode", "", "Run mode (serve|chat)")
	addr := flag.String("addr", "", "Listen address for serve mode")
	url := flag.String("url", "", "Chat server base URL for chat mode")
	transport := flag.String("transport", "", "Chat mode transport (http|ws)")
	timeout := flag.Duration("timeout", -1, "Chat mode request timeout (0 waits indefinitely)")
	dbPath := flag.String("db", "", "SQLite conversation log path (serve mode)")
	knowledge := flag.String("knowledge", "", "TOML file overriding the campus knowledge base")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *url != "" {
		cfg.Client.URL = *url
	}
	if *transport != "" {
		cfg.Client.Transport = *transport
	}
	if *timeout >= 0 {
		cfg.Client.Timeout = *timeout
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *knowledge != "" {
		cfg.Server.KnowledgeFile = *knowledge
	}
	if *debug {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}

	bot, err := chatbot.NewChatBot(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize chatbot: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
