// Command seedcatalog imports tracks from a TOML seed file into the catalog.
//
//	seedcatalog [seed.toml]
//
// Without an argument the file named by catalog.seed_file in config.toml is
// used. Tracks with an id replace any stored track with the same id.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/config"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, log.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel()))

	path := cfg.GetCatalogConfig().SeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		logger.Fatal("no seed file: pass a path or set catalog.seed_file")
	}

	tracks, err := catalog.LoadSeed(path)
	if err != nil {
		logger.Fatal("read seed", "err", err)
	}
	logger.Info("seed loaded", "path", path, "tracks", len(tracks))

	dbPath, err := cfg.DBPath()
	if err != nil {
		logger.Fatal("resolve database path", "err", err)
	}
	store, err := docstore.Open(dbPath, docstore.WithLogger(logging.Component(logger, "docstore")))
	if err != nil {
		logger.Fatal("open store", "path", dbPath, "err", err)
	}
	defer store.Close()

	n, err := catalog.New(store).Seed(context.Background(), tracks)
	if err != nil {
		store.Close()
		logger.Fatal("import tracks", "written", n, "err", err)
	}
	logger.Info("catalog seeded", "written", n, "db", dbPath)
}
