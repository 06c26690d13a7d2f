package anchor

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryLineString GeometryType = "LineString"
)

// Geometry represents a GeoJSON geometry object
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`
}

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

// NewFeature creates a Feature with the given geometry and properties
func NewFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}
}

// PointGeometry converts an orb.Point to a GeoJSON Point geometry.
func PointGeometry(p orb.Point) *Geometry {
	coordsJSON, _ := json.Marshal([2]float64{p[0], p[1]})
	return &Geometry{
		Type:        GeometryPoint,
		Coordinates: coordsJSON,
	}
}

// LineStringGeometry converts an orb.LineString to a GeoJSON LineString
// geometry.
func LineStringGeometry(ls orb.LineString) *Geometry {
	coords := make([][2]float64, len(ls))
	for i, p := range ls {
		coords[i] = [2]float64{p[0], p[1]}
	}
	coordsJSON, _ := json.Marshal(coords)
	return &Geometry{
		Type:        GeometryLineString,
		Coordinates: coordsJSON,
	}
}

// LineString converts a Geometry of type LineString to an orb.LineString.
// Returns nil, false if the geometry is nil, not a LineString, or has
// invalid coordinates.
func (g *Geometry) LineString() (orb.LineString, bool) {
	if g == nil || g.Type != GeometryLineString {
		return nil, false
	}
	var coords [][2]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, false
	}
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c[0], c[1]}
	}
	return ls, true
}

// Point converts a Geometry of type Point to an orb.Point.
func (g *Geometry) Point() (orb.Point, bool) {
	if g == nil || g.Type != GeometryPoint {
		return orb.Point{}, false
	}
	var coords [2]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return orb.Point{}, false
	}
	return orb.Point{coords[0], coords[1]}, true
}

// ParseFeatureCollectionJSON parses a GeoJSON FeatureCollection.
func ParseFeatureCollectionJSON(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}
