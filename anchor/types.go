package anchor

// Ref identifies an entity by the partition that owns it and its identifier
// within that partition. The identifier scheme matches the one used by the
// topology geometry layer, so refs can be looked up in a GeometryIndex.
type Ref struct {
	PartitionName string `json:"partitionName"`
	Identifier    string `json:"identifier"`
}

// OrientedSegmentRef is a reference to a physical road segment plus the
// direction in which the anchor traverses it.
type OrientedSegmentRef struct {
	SegmentRef Ref    `json:"segmentRef"`
	Direction  string `json:"direction,omitempty"`
}

// Record is one decoded attribute record from a partition collection.
// Numeric values are json.Number so round-tripping through the emitter
// preserves the source formatting.
type Record map[string]interface{}

// Properties maps an attribute collection name to the record(s) attached to
// an anchor from that collection. A single record is stored bare; when more
// than one record from the same collection targets the anchor, the value is
// promoted to an ordered []Record in arrival order.
type Properties map[string]interface{}

// Attach adds rec under name, promoting to a list on collision.
func (p Properties) Attach(name string, rec Record) {
	switch existing := p[name].(type) {
	case nil:
		p[name] = rec
	case Record:
		p[name] = []Record{existing, rec}
	case []Record:
		p[name] = append(existing, rec)
	}
}

// SegmentAnchor references a continuous stretch of road composed of one or
// more oriented segments, optionally trimmed by fractional offsets along the
// composed reference line.
type SegmentAnchor struct {
	OrientedSegmentRefs     []OrientedSegmentRef `json:"orientedSegmentRef"`
	FirstSegmentStartOffset *float64             `json:"firstSegmentStartOffset,omitempty"`
	LastSegmentEndOffset    *float64             `json:"lastSegmentEndOffset,omitempty"`

	// Properties is built by MergeAttributes; it is never part of the
	// decoded partition JSON.
	Properties Properties `json:"-"`
}

// StartOffset returns the start offset, defaulting to 0.0 when absent.
func (a *SegmentAnchor) StartOffset() float64 {
	if a.FirstSegmentStartOffset != nil {
		return *a.FirstSegmentStartOffset
	}
	return 0.0
}

// EndOffset returns the end offset, defaulting to 1.0 when absent.
func (a *SegmentAnchor) EndOffset() float64 {
	if a.LastSegmentEndOffset != nil {
		return *a.LastSegmentEndOffset
	}
	return 1.0
}

// NodeAnchor references a single topology node.
type NodeAnchor struct {
	NodeRef Ref `json:"nodeRef"`

	Properties Properties `json:"-"`
}

// Partition is one decoded tile of the road-network data model. Anchors are
// identified by their position in the anchor slices; those positions are
// stable for the whole resolution pass and every cross-reference keys on
// them.
type Partition struct {
	PartitionName string
	TileID        int64

	SegmentAnchors []*SegmentAnchor
	NodeAnchors    []*NodeAnchor

	// Collections holds every other top-level array-of-records in the
	// decoded JSON, keyed by its field name. CollectionOrder preserves the
	// original key order so attribute merging is deterministic.
	Collections     map[string][]Record
	CollectionOrder []string
}

// RefSet is a set of partition names, used to accumulate street-section
// references for the supplemental street-names download.
type RefSet map[string]struct{}

// NewRefSet returns an empty RefSet.
func NewRefSet() RefSet { return make(RefSet) }

// Add inserts name into the set. Empty names are ignored.
func (s RefSet) Add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

// Merge adds all entries of other into s.
func (s RefSet) Merge(other RefSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

// Contains reports whether name is in the set.
func (s RefSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Translationless config types live here next to the data model, matching
// how the rest of the package consumes them.

// GeometryConfig names the GeoJSON files a partition directory is expected
// to contain for base geometry lookups.
type GeometryConfig struct {
	SegmentsFile string `yaml:"segmentsFile,omitempty" json:"segmentsFile,omitempty"`
	NodesFile    string `yaml:"nodesFile,omitempty" json:"nodesFile,omitempty"`
}

// CatalogConfig holds settings for the supplemental street-names download.
type CatalogConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	Layer          string `yaml:"layer,omitempty" json:"layer,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"`
}

// Config is the full configuration file.
type Config struct {
	Layers    []string       `yaml:"layers,omitempty" json:"layers,omitempty"`
	Workers   int            `yaml:"workers,omitempty" json:"workers,omitempty"`
	Overwrite bool           `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
	Geometry  GeometryConfig `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	Catalog   CatalogConfig  `yaml:"catalog,omitempty" json:"catalog,omitempty"`
}
