package main

import (
	"flag"
	"fmt"
	"log"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile          = flag.String("config", "", "Path to YAML configuration file (optional)")
	dataDir             = flag.String("data-dir", ".", "Directory tree containing decoded partition files")
	overwrite           = flag.Bool("overwrite", false, "Overwrite existing .geojson result files")
	workers             = flag.Int("workers", 0, "Concurrent partition workers (0 = use config value)")
	noProgress          = flag.Bool("no-progress", false, "Disable the progress bar")
	downloadStreetNames = flag.Bool("download-street-names", false, "Download referenced street-names partitions after conversion")
	downloadDir         = flag.String("download-dir", "decoded", "Destination directory for downloaded street-names partitions")
	catalogURL          = flag.String("catalog-url", "", "Catalog base URL for the street-names download (overrides config)")
)

func main() {
	flag.Parse()
	fmt.Printf("anchorgeo version: %s\n", Version)

	app := NewApp()
	if err := app.ApplyOptions(AppOptions{
		ConfigFile:          *configFile,
		DataDir:             *dataDir,
		Overwrite:           *overwrite,
		Workers:             *workers,
		Progress:            !*noProgress,
		DownloadStreetNames: *downloadStreetNames,
		DownloadDir:         *downloadDir,
		CatalogURL:          *catalogURL,
	}); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if err := app.RunConvert(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
