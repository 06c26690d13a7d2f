package anchor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
)

// Output file suffixes, appended to the partition file name.
const (
	SegmentsSuffix = "_segments.geojson"
	NodesSuffix    = "_nodes.geojson"
)

// BuildSegmentCollection assembles the segment FeatureCollection from the
// anchors of p and their resolved geometries. geoms must be parallel to
// p.SegmentAnchors; anchors with a nil geometry were dropped by the resolver
// and produce no feature. Anchor order is preserved.
func BuildSegmentCollection(p *Partition, geoms []*Geometry) *FeatureCollection {
	fc := NewFeatureCollection()
	for i, a := range p.SegmentAnchors {
		if i >= len(geoms) || geoms[i] == nil {
			continue
		}
		fc.AddFeature(NewFeature(geoms[i], a.Properties))
	}
	return fc
}

// BuildNodeCollection assembles the node FeatureCollection, mirroring
// BuildSegmentCollection for p.NodeAnchors.
func BuildNodeCollection(p *Partition, geoms []*Geometry) *FeatureCollection {
	fc := NewFeatureCollection()
	for i, a := range p.NodeAnchors {
		if i >= len(geoms) || geoms[i] == nil {
			continue
		}
		fc.AddFeature(NewFeature(geoms[i], a.Properties))
	}
	return fc
}

// WriteCollection writes fc to path as indented GeoJSON. If the file already
// exists and overwrite is false, nothing is written and the first return
// value is false, making directory reprocessing cheap to re-run.
//
// The collection is fully marshaled before the file is touched, so a
// marshaling failure never leaves a truncated artifact behind. Map keys
// marshal in sorted order, which keeps repeated runs byte-identical.
func WriteCollection(path string, fc *FeatureCollection, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			log.Printf("%s --> existing already, skipping", path)
			return false, nil
		}
	}

	data, err := json.MarshalIndent(fc, "", "    ")
	if err != nil {
		return false, fmt.Errorf("marshaling feature collection: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}

	log.Printf("Wrote %s (%d features, %s)", path, len(fc.Features), humanize.Bytes(uint64(len(data))))
	return true, nil
}
