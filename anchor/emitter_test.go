package anchor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitterPartition(t *testing.T) *Partition {
	t.Helper()
	p := mustPartition(t, `{
		"partitionName": "p",
		"segmentAnchor": [
			{"orientedSegmentRef": []},
			{"orientedSegmentRef": []},
			{"orientedSegmentRef": []}
		],
		"nodeAnchor": [{"nodeRef": {"partitionName": "p", "identifier": "n0"}}]
	}`)
	p.SegmentAnchors[0].Properties["a"] = Record{"v": "first"}
	p.SegmentAnchors[2].Properties["a"] = Record{"v": "third"}
	return p
}

func TestBuildSegmentCollection_SkipsDroppedAnchors(t *testing.T) {
	p := emitterPartition(t)
	geoms := []*Geometry{
		LineStringGeometry(orb.LineString{{0, 0}, {1, 0}}),
		nil, // dropped by the resolver
		LineStringGeometry(orb.LineString{{2, 0}, {3, 0}}),
	}

	fc := BuildSegmentCollection(p, geoms)

	require.Len(t, fc.Features, 2)
	assert.Equal(t, "first", fc.Features[0].Properties["a"].(Record)["v"], "anchor order must be preserved")
	assert.Equal(t, "third", fc.Features[1].Properties["a"].(Record)["v"])
}

func TestBuildNodeCollection(t *testing.T) {
	p := emitterPartition(t)
	fc := BuildNodeCollection(p, []*Geometry{PointGeometry(orb.Point{5, 5})})

	require.Len(t, fc.Features, 1)
	assert.Equal(t, GeometryPoint, fc.Features[0].Geometry.Type)
}

func TestWriteCollection_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out_segments.geojson")

	fc := NewFeatureCollection()
	fc.AddFeature(NewFeature(PointGeometry(orb.Point{1, 2}), map[string]interface{}{"k": "v"}))

	written, err := WriteCollection(path, fc, false)
	require.NoError(t, err)
	assert.True(t, written, "first write should happen")

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Second run: skipped, file untouched.
	written, err = WriteCollection(path, fc, false)
	require.NoError(t, err)
	assert.False(t, written, "second write should be skipped")

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "skipped run must leave the file byte-identical")
}

func TestWriteCollection_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out_nodes.geojson")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	fc := NewFeatureCollection()
	written, err := WriteCollection(path, fc, true)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))
}

func TestWriteCollection_Deterministic(t *testing.T) {
	dir := t.TempDir()

	build := func() *FeatureCollection {
		p := emitterPartition(t)
		p.SegmentAnchors[0].Properties["zzz"] = Record{"later": "key"}
		geoms := []*Geometry{LineStringGeometry(orb.LineString{{0, 0}, {1, 0}}), nil, nil}
		return BuildSegmentCollection(p, geoms)
	}

	pathA := filepath.Join(dir, "a.geojson")
	pathB := filepath.Join(dir, "b.geojson")
	_, err := WriteCollection(pathA, build(), false)
	require.NoError(t, err)
	_, err = WriteCollection(pathB, build(), false)
	require.NoError(t, err)

	a, _ := os.ReadFile(pathA)
	b, _ := os.ReadFile(pathB)
	assert.Equal(t, a, b, "two builds of the same partition must serialize identically")
}
