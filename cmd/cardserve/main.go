// Copyright 2025 The CardServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the card search suggestion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

CardServe offers typeahead suggestions for card search boxes: card names, set
codes, card types and the static search vocabularies (rarity, color,
condition, finish and the "is:" keywords). Catalog data comes from Scryfall
and is cached on disk, refreshed once it is older than the configured age.

# Usage

Start the IPC server with default settings:

	cardserve

Run in CLI mode for interactive testing, with debug logging:

	cardserve -c -d

Serve from the cached catalog only, never touching the network:

	cardserve -offline

# Configuration

Runtime configuration lives in config.toml inside the user config dir and is
created with defaults when missing:

	[cache]
	max_age_minutes = 1440
	refresh_on_start = false

	[suggest]
	min_match_length = 3
	max_results = 50

	[scryfall]
	base_url = "https://api.scryfall.com"
	requests_per_second = 10

The catalog cache is stored as cache.json next to the config file unless
cache.path or -cache says otherwise.

# IPC Protocol

The server speaks MessagePack over stdin/stdout, see package server:

	{"id": "r1", "a": "suggest", "p": "t", "q": "cre"}
	{"id": "r2", "a": "input", "f": "search", "v": "t:cre"}
	{"id": "r3", "a": "key", "f": "search", "k": "ArrowDown"}

# Command Line Flags

	-config string
	    Config file (default <config dir>/config.toml)
	-cache string
	    Catalog cache file (default from config)
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-offline
	    Never fetch from Scryfall, serve the cached catalog only
	-refresh
	    Refresh the catalog before serving
	-limit int
	    Number of suggestions to print in CLI mode
	-minlen int
	    Characters typed before suggestions show
	-prefix string
	    Pin the CLI field to a category (t, s, r, c, cond, f, is)
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bastiangx/cardserve/internal/cli"
	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/bastiangx/cardserve/pkg/config"
	"github.com/bastiangx/cardserve/pkg/scryfall"
	"github.com/bastiangx/cardserve/pkg/server"
	"github.com/bastiangx/cardserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

const (
	Version = "0.3.0-beta"
	AppName = "cardserve"
	gh      = "https://github.com/bastiangx/cardserve"
)

// sigHandler cancels ctx on the first signal and exits on the second.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(0)
	}()
}

// main wires config, cache, upstream client and engine, then hands over to
// the server or the CLI.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)

	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configFile := flag.String("config", "", "Config file (default <config dir>/config.toml)")
	cacheFile := flag.String("cache", "", "Catalog cache file (default from config)")
	offline := flag.Bool("offline", false, "Never fetch from Scryfall, serve the cached catalog only")
	forceRefresh := flag.Bool("refresh", false, "Refresh the catalog before serving")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to print in CLI mode")
	minLen := flag.Int("minlen", 0, "Characters typed before suggestions show (default from config)")
	prefix := flag.String("prefix", "", "Pin the CLI field to a category (t, s, r, c, cond, f, is)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	configPath, err := pathResolver.ResolvePath(*configFile, config.FileName)
	if err != nil {
		log.Fatalf("Failed to determine config path: (%v)", err)
	}
	log.Debugf("Using config file: (%s)", configPath)

	appConfig, err := config.InitConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cachePath := *cacheFile
	if cachePath == "" {
		cachePath = appConfig.Cache.Path
	}
	if cachePath == "" {
		cachePath = filepath.Join(filepath.Dir(configPath), catalog.DefaultFileName)
	}
	cachePath = utils.GetAbsolutePath(cachePath)
	log.Debugf("Using catalog cache: (%s)", cachePath)

	cache := catalog.NewCache(catalog.NewFileStore(cachePath))
	cache.Load()

	var fetcher catalog.Fetcher
	if *offline {
		log.Debug("offline mode, catalog will not be refreshed")
	} else {
		fetcher = scryfall.New(appConfig.Scryfall.BaseURL,
			scryfall.WithTimeout(appConfig.Scryfall.Timeout()),
			scryfall.WithRateLimit(appConfig.Scryfall.RequestsPerSecond),
			scryfall.WithUserAgent(userAgent(appConfig.Scryfall.UserAgent)))
	}
	provider := catalog.NewProvider(cache, fetcher, appConfig.Cache.MaxAge())

	if fetcher != nil && (*forceRefresh || appConfig.Cache.RefreshOnStart) {
		log.Debug("refreshing catalog")
		if _, err := provider.Refresh(ctx); err != nil {
			log.Warnf("Catalog refresh failed, using cached data: %v", err)
		}
	}

	engine := suggest.NewEngine(provider, suggest.WithMaxResults(appConfig.Suggest.MaxResults))

	minMatch := appConfig.Suggest.MinMatchLength
	if *minLen > 0 {
		minMatch = *minLen
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "minLen", minMatch, "limit", *limit, "prefix", *prefix)

		inputHandler := cli.NewInputHandler(engine, provider, minMatch, *limit, *prefix)
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		log.Warn("stdin is a terminal: the server expects msgpack input, use -c for the interactive CLI")
	}

	appConfig.Suggest.MinMatchLength = minMatch
	log.Debug("spawning IPC")
	srv := server.NewServer(engine, provider, appConfig, configPath)

	showStartupInfo(cachePath, provider.Info())

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func userAgent(configured string) string {
	if configured == "" || configured == AppName {
		return AppName + "/" + Version
	}
	return configured
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ CardServe ] Card search suggestions, cached and fast!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cachePath string, info catalog.Info) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("cache: ( %s )", cachePath)
	log.Info("catalog", "names", info.Names, "sets", info.Sets, "types", info.Types, "stale", info.Stale)
	log.Info("status: ready")

	log.SetLevel(currentLevel)
}
