package anchor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"
)

// GeometryIndex resolves base geometries for segment and node references.
// Absence of an identifier is a normal outcome, not an error. Lookups must
// be safe for concurrent readers; partitions processed in parallel share one
// index.
type GeometryIndex interface {
	SegmentGeometry(identifier string) (orb.LineString, bool)
	NodeGeometry(identifier string) (orb.Point, bool)
}

// FeatureGeometryIndex is an immutable GeometryIndex built from GeoJSON
// feature collections whose features carry an "identifier" property. Being
// built once and never mutated, it is safe for concurrent reads.
type FeatureGeometryIndex struct {
	segments map[string]orb.LineString
	nodes    map[string]orb.Point
}

// NewFeatureGeometryIndex indexes the LineString features of segments and
// the Point features of nodes by their identifier property. Either
// collection may be nil. Features without an identifier or with a geometry
// of the wrong type are skipped.
func NewFeatureGeometryIndex(segments, nodes *FeatureCollection) *FeatureGeometryIndex {
	idx := &FeatureGeometryIndex{
		segments: make(map[string]orb.LineString),
		nodes:    make(map[string]orb.Point),
	}

	if segments != nil {
		for _, f := range segments.Features {
			id, ok := featureIdentifier(f)
			if !ok {
				continue
			}
			if ls, ok := f.Geometry.LineString(); ok {
				idx.segments[id] = ls
			}
		}
	}
	if nodes != nil {
		for _, f := range nodes.Features {
			id, ok := featureIdentifier(f)
			if !ok {
				continue
			}
			if p, ok := f.Geometry.Point(); ok {
				idx.nodes[id] = p
			}
		}
	}

	return idx
}

// SegmentGeometry implements GeometryIndex.
func (idx *FeatureGeometryIndex) SegmentGeometry(identifier string) (orb.LineString, bool) {
	ls, ok := idx.segments[identifier]
	return ls, ok
}

// NodeGeometry implements GeometryIndex.
func (idx *FeatureGeometryIndex) NodeGeometry(identifier string) (orb.Point, bool) {
	p, ok := idx.nodes[identifier]
	return p, ok
}

// SegmentCount returns the number of indexed segment geometries.
func (idx *FeatureGeometryIndex) SegmentCount() int { return len(idx.segments) }

// NodeCount returns the number of indexed node geometries.
func (idx *FeatureGeometryIndex) NodeCount() int { return len(idx.nodes) }

// LoadGeometryIndex builds a FeatureGeometryIndex from the two GeoJSON files
// of a partition directory. A missing file leaves that side of the index
// empty with a logged warning, since a directory may legitimately carry only
// one of the layers; a file that exists but cannot be parsed is an error.
func LoadGeometryIndex(segmentsPath, nodesPath string) (*FeatureGeometryIndex, error) {
	segments, err := loadFeatureCollection(segmentsPath)
	if err != nil {
		return nil, fmt.Errorf("loading segment geometries: %w", err)
	}
	nodes, err := loadFeatureCollection(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("loading node geometries: %w", err)
	}
	return NewFeatureGeometryIndex(segments, nodes), nil
}

func loadFeatureCollection(path string) (*FeatureCollection, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: geometry file %s not found, lookups against it will miss", path)
			return nil, nil
		}
		return nil, err
	}
	return ParseFeatureCollectionJSON(data)
}

// featureIdentifier extracts the identifier property as a string. Numeric
// identifiers are rendered in their JSON form.
func featureIdentifier(f *Feature) (string, bool) {
	if f == nil || f.Properties == nil {
		return "", false
	}
	switch v := f.Properties["identifier"].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		data, _ := json.Marshal(v)
		return string(data), true
	}
	return "", false
}
