package main

import (
	_ "embed"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"csvgen/pkg/log"
	"csvgen/pkg/manifest"
	"csvgen/pkg/server"
)

const (
	storageDirPerm = 0750
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	storageDir := flag.String("storage", "build/data", "Storage directory path")
	port := flag.String("port", "8080", "Server port")
	manifestPath := flag.String("manifest", "", "SQLite manifest path (default <storage>/manifest.db)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}

	if err := os.MkdirAll(*storageDir, storageDirPerm); err != nil {
		log.Fatal().Err(err).Str("storage_dir", *storageDir).Msg("Failed to create storage directory")
	}

	if *manifestPath == "" {
		*manifestPath = filepath.Join(*storageDir, "manifest.db")
	}

	store, err := manifest.NewStore(*manifestPath)
	if err != nil {
		log.Fatal().Err(err).Str("manifest", *manifestPath).Msg("Failed to open manifest")
	}

	gen := server.NewGenServer(*storageDir, strings.TrimSpace(Version), store)

	if err := gen.Start(":" + *port); err != nil {
		_ = store.Close()
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close manifest")
	}

	os.Exit(0)
}
