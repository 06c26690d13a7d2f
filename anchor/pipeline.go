package anchor

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/destel/rill"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// PartitionSource supplies decoded partition records. Implementations
// report failure as a PartitionUnavailableError.
type PartitionSource interface {
	DecodedPartition(path string) (*Partition, error)
}

// Options controls a processing run.
type Options struct {
	// Overwrite regenerates output files that already exist.
	Overwrite bool

	// Layers restricts the directory walk to files matching
	// ^<layer>_.*\.json$. Empty means DefaultLayers.
	Layers []string

	// GeometrySegmentsFile / GeometryNodesFile are the per-directory
	// GeoJSON file names the geometry index is loaded from.
	GeometrySegmentsFile string
	GeometryNodesFile    string

	// Workers bounds concurrent partition processing in ProcessTree.
	Workers int

	// Progress draws a progress bar across partition files.
	Progress bool
}

func (o Options) withDefaults() Options {
	if len(o.Layers) == 0 {
		o.Layers = DefaultLayers
	}
	if o.GeometrySegmentsFile == "" {
		o.GeometrySegmentsFile = DefaultGeometrySegmentsFile
	}
	if o.GeometryNodesFile == "" {
		o.GeometryNodesFile = DefaultGeometryNodesFile
	}
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Result summarizes the processing of one partition file.
type Result struct {
	Path          string
	PartitionName string
	TileID        int64
	Version       int

	SegmentsPath    string
	NodesPath       string
	SegmentsWritten bool
	NodesWritten    bool

	SegmentFeatures int
	NodeFeatures    int

	DroppedSegmentAnchors int
	DroppedNodeAnchors    int

	// StreetSectionRefs are the street-section partition names this
	// partition references, returned as a value so callers can merge
	// across concurrent runs.
	StreetSectionRefs RefSet
}

// ProcessPartition runs the full pipeline for one partition file: attribute
// merging, geometry resolution, cross-reference resolution, and emission of
// the two feature collections next to the source file. Fatal conditions
// (unavailable partition, malformed index, invalid offsets) abort this
// partition and are returned; no output is written for an aborted partition.
func ProcessPartition(src PartitionSource, geoms GeometryIndex, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	p, err := src.DecodedPartition(path)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:          path,
		PartitionName: p.PartitionName,
		TileID:        p.TileID,
	}
	if v, ok := LayerVersion(filepath.Base(path)); ok {
		res.Version = v
	}

	refs, err := MergeAttributes(p)
	if err != nil {
		return nil, err
	}
	res.StreetSectionRefs = refs

	segGeoms, err := ResolveSegmentGeometries(p, geoms)
	if err != nil {
		return nil, err
	}
	nodeGeoms := ResolveNodeGeometries(p, geoms)

	for _, g := range segGeoms {
		if g == nil {
			res.DroppedSegmentAnchors++
		}
	}
	for _, g := range nodeGeoms {
		if g == nil {
			res.DroppedNodeAnchors++
		}
	}

	ResolveCrossReferences(p)

	if segments := BuildSegmentCollection(p, segGeoms); len(segments.Features) > 0 {
		res.SegmentsPath = path + SegmentsSuffix
		res.SegmentFeatures = len(segments.Features)
		written, err := WriteCollection(res.SegmentsPath, segments, opts.Overwrite)
		if err != nil {
			return nil, err
		}
		res.SegmentsWritten = written
	}

	if nodes := BuildNodeCollection(p, nodeGeoms); len(nodes.Features) > 0 {
		res.NodesPath = path + NodesSuffix
		res.NodeFeatures = len(nodes.Features)
		written, err := WriteCollection(res.NodesPath, nodes, opts.Overwrite)
		if err != nil {
			return nil, err
		}
		res.NodesWritten = written
	}

	return res, nil
}

// TreeResult aggregates a directory-tree run.
type TreeResult struct {
	Results []*Result
	Failed  int

	// StreetSectionRefs is the union over all processed partitions.
	StreetSectionRefs RefSet

	// MaxVersion is the highest layer version seen in matched file names,
	// used for the supplemental street-names download.
	MaxVersion int
}

// layerVersionRe matches the version marker in decoded partition file names,
// e.g. road-attributes_23618402_v775.json.
var layerVersionRe = regexp.MustCompile(`v(\d+)`)

// LayerVersion extracts the layer version from a partition file name.
func LayerVersion(name string) (int, bool) {
	m := layerVersionRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	var v int
	if _, err := fmt.Sscanf(m[1], "%d", &v); err != nil {
		return 0, false
	}
	return v, true
}

// FindPartitionFiles walks root and returns every file matching one of the
// layer patterns, in walk order.
func FindPartitionFiles(root string, layers []string) ([]string, error) {
	patterns := make([]*regexp.Regexp, len(layers))
	for i, layer := range layers {
		patterns[i] = regexp.MustCompile(`^` + regexp.QuoteMeta(layer) + `_.*\.json$`)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, re := range patterns {
			if re.MatchString(name) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}

// ProcessTree processes every matching partition file under root with a
// bounded worker pool. Partitions are independent, so no ordering is
// guaranteed; the geometry index for each directory is loaded once up front
// and shared read-only between workers.
//
// Per-partition fatal errors are logged and counted, not propagated: one
// corrupt tile must not sink the rest of the tree.
func ProcessTree(src PartitionSource, root string, opts Options) (*TreeResult, error) {
	opts = opts.withDefaults()

	paths, err := FindPartitionFiles(root, opts.Layers)
	if err != nil {
		return nil, err
	}

	tree := &TreeResult{StreetSectionRefs: NewRefSet()}
	if len(paths) == 0 {
		return tree, nil
	}

	indexes, err := loadDirIndexes(paths, opts)
	if err != nil {
		return nil, err
	}

	var bar *pb.ProgressBar
	if opts.Progress {
		bar = pb.StartNew(len(paths))
	}

	var mu sync.Mutex
	err = rill.ForEach(rill.FromSlice(paths, nil), opts.Workers, func(path string) error {
		res, perr := ProcessPartition(src, indexes[filepath.Dir(path)], path, opts)

		mu.Lock()
		defer mu.Unlock()
		if bar != nil {
			bar.Increment()
		}
		if perr != nil {
			log.Printf("Error processing %s: %v", path, perr)
			tree.Failed++
			return nil
		}
		tree.Results = append(tree.Results, res)
		tree.StreetSectionRefs.Merge(res.StreetSectionRefs)
		if res.Version > tree.MaxVersion {
			tree.MaxVersion = res.Version
		}
		return nil
	})

	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// loadDirIndexes builds the geometry index for every directory that holds a
// matched partition file.
func loadDirIndexes(paths []string, opts Options) (map[string]*FeatureGeometryIndex, error) {
	indexes := make(map[string]*FeatureGeometryIndex)
	for _, path := range paths {
		dir := filepath.Dir(path)
		if _, ok := indexes[dir]; ok {
			continue
		}
		idx, err := LoadGeometryIndex(
			filepath.Join(dir, opts.GeometrySegmentsFile),
			filepath.Join(dir, opts.GeometryNodesFile),
		)
		if err != nil {
			return nil, fmt.Errorf("directory %s: %w", dir, err)
		}
		indexes[dir] = idx
	}
	return indexes, nil
}
