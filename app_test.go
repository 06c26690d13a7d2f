package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hmctools/anchorgeo/anchor"
)

func TestApplyOptions_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := anchor.DefaultConfig()
	config.Workers = 2
	config.Overwrite = true
	if err := anchor.SaveConfig(configPath, config); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	app := NewApp()
	err := app.ApplyOptions(AppOptions{
		ConfigFile: configPath,
		DataDir:    dir,
		Workers:    6,
	})
	if err != nil {
		t.Fatalf("ApplyOptions() error: %v", err)
	}

	if app.Workers != 6 {
		t.Errorf("Workers = %d, want the flag value 6", app.Workers)
	}
	if !app.Overwrite {
		t.Error("Overwrite should be taken from the config when the flag is unset")
	}
}

func TestApplyOptions_DownloadNeedsCatalogURL(t *testing.T) {
	app := NewApp()
	err := app.ApplyOptions(AppOptions{
		DataDir:             t.TempDir(),
		DownloadStreetNames: true,
	})
	if err == nil {
		t.Fatal("expected error when downloading without a catalog URL")
	}
}

func TestRunConvert(t *testing.T) {
	dir := t.TempDir()
	partition := filepath.Join(dir, "road-attributes_1_v1.json")
	if err := os.WriteFile(partition, []byte(`{
		"partitionName": "1",
		"nodeAnchor": [{"nodeRef": {"partitionName": "1", "identifier": "n"}}]
	}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, anchor.DefaultGeometryNodesFile), []byte(`{
		"type": "FeatureCollection",
		"features": [{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1,2]}, "properties": {"identifier": "n"}}]
	}`), 0644); err != nil {
		t.Fatal(err)
	}

	app := NewApp()
	if err := app.ApplyOptions(AppOptions{DataDir: dir}); err != nil {
		t.Fatalf("ApplyOptions() error: %v", err)
	}
	if err := app.RunConvert(); err != nil {
		t.Fatalf("RunConvert() error: %v", err)
	}

	if _, err := os.Stat(partition + anchor.NodesSuffix); err != nil {
		t.Errorf("expected node output next to the partition file: %v", err)
	}
}
