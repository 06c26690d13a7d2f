package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hmctools/anchorgeo/anchor"
)

// AppOptions carries the CLI flag values into the App.
type AppOptions struct {
	ConfigFile          string
	DataDir             string
	Overwrite           bool
	Workers             int
	Progress            bool
	DownloadStreetNames bool
	DownloadDir         string
	CatalogURL          string
}

// App encapsulates the application state and dependencies
type App struct {
	Config *anchor.Config
	Source anchor.PartitionSource

	DataDir             string
	Overwrite           bool
	Workers             int
	Progress            bool
	DownloadStreetNames bool
	DownloadDir         string
	CatalogURL          string
}

// NewApp creates a new App instance reading partitions from the filesystem.
func NewApp() *App {
	return &App{
		Source: anchor.FileSource{},
		Config: anchor.DefaultConfig(),
	}
}

// ApplyOptions applies CLI options to the App instance, loading the config
// file when one is named. Flags override config values.
func (a *App) ApplyOptions(opts AppOptions) error {
	if opts.ConfigFile != "" {
		config, err := anchor.LoadConfig(opts.ConfigFile)
		if err != nil {
			return err
		}
		a.Config = config
	}

	a.DataDir = opts.DataDir
	a.Overwrite = opts.Overwrite || a.Config.Overwrite
	a.Workers = opts.Workers
	if a.Workers == 0 {
		a.Workers = a.Config.Workers
	}
	a.Progress = opts.Progress
	a.DownloadStreetNames = opts.DownloadStreetNames
	a.DownloadDir = opts.DownloadDir
	a.CatalogURL = opts.CatalogURL
	if a.CatalogURL == "" {
		a.CatalogURL = a.Config.Catalog.BaseURL
	}

	if a.DownloadStreetNames && a.CatalogURL == "" {
		return fmt.Errorf("street-names download requested but no catalog URL configured")
	}

	return nil
}

// RunConvert processes the data directory tree and, when requested,
// downloads the referenced street-names partitions afterwards.
func (a *App) RunConvert() error {
	opts := anchor.Options{
		Overwrite:            a.Overwrite,
		Layers:               a.Config.Layers,
		GeometrySegmentsFile: a.Config.Geometry.SegmentsFile,
		GeometryNodesFile:    a.Config.Geometry.NodesFile,
		Workers:              a.Workers,
		Progress:             a.Progress,
	}

	tree, err := anchor.ProcessTree(a.Source, a.DataDir, opts)
	if err != nil {
		return err
	}

	var segments, nodes, skipped int
	for _, res := range tree.Results {
		segments += res.SegmentFeatures
		nodes += res.NodeFeatures
		if res.SegmentsPath != "" && !res.SegmentsWritten {
			skipped++
		}
		if res.NodesPath != "" && !res.NodesWritten {
			skipped++
		}
	}
	log.Printf("Processed %d partitions (%d failed): %d segment features, %d node features, %d outputs skipped",
		len(tree.Results), tree.Failed, segments, nodes, skipped)

	if !a.DownloadStreetNames {
		return nil
	}
	if len(tree.StreetSectionRefs) == 0 {
		log.Println("No street-section references collected, nothing to download")
		return nil
	}

	return a.downloadStreetNames(tree)
}

func (a *App) downloadStreetNames(tree *anchor.TreeResult) error {
	timeout := time.Duration(a.Config.Catalog.TimeoutSeconds) * time.Second
	dl, err := anchor.NewDownloader(a.CatalogURL, a.Config.Catalog.Layer,
		anchor.WithTimeout(timeout))
	if err != nil {
		return err
	}

	log.Printf("Downloading %d street-names partitions (version %d) into %s",
		len(tree.StreetSectionRefs), tree.MaxVersion, a.DownloadDir)
	return dl.FetchAll(context.Background(), tree.StreetSectionRefs, tree.MaxVersion, a.DownloadDir)
}
