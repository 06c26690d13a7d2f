package anchor

import (
	"log"

	"github.com/paulmach/orb"
)

// ResolveSegmentGeometries derives the drawable geometry for every segment
// anchor of p. The result slice is parallel to p.SegmentAnchors; a nil entry
// marks an anchor that was dropped because none of its segment references
// resolved in the index.
//
// Geometry is sliced from the first oriented segment reference whose
// identifier resolves; later references still contribute attributes but not
// geometry. A composed reference line over all refs would change every
// emitted geometry, so multi-segment concatenation is not done here.
// TODO: confirm with the data owners whether composed-anchor geometry over
// all oriented refs is wanted before changing this.
//
// Offsets outside [0,1] abort with an InvalidOffsetRangeError. Equal offsets
// produce a Point at the interpolated location instead of a zero-length
// LineString.
func ResolveSegmentGeometries(p *Partition, idx GeometryIndex) ([]*Geometry, error) {
	geoms := make([]*Geometry, len(p.SegmentAnchors))

	for i, a := range p.SegmentAnchors {
		var base orb.LineString
		found := false
		for _, ref := range a.OrientedSegmentRefs {
			if ls, ok := idx.SegmentGeometry(ref.SegmentRef.Identifier); ok {
				base = ls
				found = true
				break
			}
		}
		if !found {
			log.Printf("Warning: partition %s: segment anchor %d: no segment reference resolved, dropping",
				p.PartitionName, i)
			continue
		}

		start := a.StartOffset()
		end := a.EndOffset()
		if start < 0 || start > 1 || end < 0 || end > 1 {
			return nil, &InvalidOffsetRangeError{
				Partition:   p.PartitionName,
				AnchorIndex: i,
				Start:       start,
				End:         end,
			}
		}

		length := LineLength(base)
		startDist := length * start
		endDist := length * end

		if startDist == endDist {
			geoms[i] = PointGeometry(PointAt(base, startDist))
		} else {
			geoms[i] = LineStringGeometry(Substring(base, startDist, endDist))
		}
	}

	return geoms, nil
}

// ResolveNodeGeometries looks up the point geometry for every node anchor of
// p. The result slice is parallel to p.NodeAnchors; a nil entry marks a node
// anchor whose reference was not found in the index.
func ResolveNodeGeometries(p *Partition, idx GeometryIndex) []*Geometry {
	geoms := make([]*Geometry, len(p.NodeAnchors))

	for i, a := range p.NodeAnchors {
		pt, ok := idx.NodeGeometry(a.NodeRef.Identifier)
		if !ok {
			log.Printf("Warning: partition %s: node anchor %d: node %s not found, dropping",
				p.PartitionName, i, a.NodeRef.Identifier)
			continue
		}
		geoms[i] = PointGeometry(pt)
	}

	return geoms
}
