package anchor

// Cross-reference resolution. After attribute merging, property records may
// still embed anchor indices pointing at the peer anchor collection
// (segment records referencing nodes and vice versa). This pass replaces
// those references with snapshots of the peer anchors' property maps.
//
// Resolution is one level deep: snapshots are copies taken before any
// resolved keys are added to them, so they never contain the peer's own
// resolved arrays and the pass trivially terminates.

const (
	resolvedNodeAnchorsKey    = "resolvedNodeAnchors"
	resolvedSegmentAnchorsKey = "resolvedSegmentAnchors"
)

// ResolveCrossReferences walks both anchor collections of p and, for every
// property record embedding a peer anchor index, stores the matching peer
// property snapshots on that record under resolvedNodeAnchors (on segment
// anchors) or resolvedSegmentAnchors (on node anchors).
//
// Unlike attribute merging, indices with no match are silently omitted:
// cross-references describe optional relationships, not structural
// attachment.
func ResolveCrossReferences(p *Partition) {
	segmentSnapshots := make([]Properties, len(p.SegmentAnchors))
	for i, a := range p.SegmentAnchors {
		segmentSnapshots[i] = snapshotProperties(a.Properties)
	}
	nodeSnapshots := make([]Properties, len(p.NodeAnchors))
	for i, a := range p.NodeAnchors {
		nodeSnapshots[i] = snapshotProperties(a.Properties)
	}

	for _, a := range p.SegmentAnchors {
		resolveInto(a.Properties, NodeAnchorIndex.Field(), resolvedNodeAnchorsKey, nodeSnapshots)
	}
	for _, a := range p.NodeAnchors {
		resolveInto(a.Properties, SegmentAnchorIndex.Field(), resolvedSegmentAnchorsKey, segmentSnapshots)
	}
}

// resolveInto annotates every record in props that carries indexField with
// the peer snapshots the indices name.
func resolveInto(props Properties, indexField, resolvedKey string, peers []Properties) {
	for _, value := range props {
		switch rec := value.(type) {
		case Record:
			resolveRecord(rec, indexField, resolvedKey, peers)
		case []Record:
			for _, r := range rec {
				resolveRecord(r, indexField, resolvedKey, peers)
			}
		}
	}
}

func resolveRecord(rec Record, indexField, resolvedKey string, peers []Properties) {
	value, ok := rec[indexField]
	if !ok {
		return
	}
	indices, err := normalizeIndices(value)
	if err != nil {
		// A reference that cannot be read is treated like one that does
		// not match: the relationship is optional.
		return
	}

	resolved := make([]Properties, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(peers) {
			continue
		}
		resolved = append(resolved, peers[i])
	}
	rec[resolvedKey] = resolved
}

// snapshotProperties deep-copies a property map so later mutation of the
// anchors cannot leak into stored snapshots.
func snapshotProperties(props Properties) Properties {
	snapshot := make(Properties, len(props))
	for name, value := range props {
		switch v := value.(type) {
		case Record:
			snapshot[name] = cloneRecord(v)
		case []Record:
			records := make([]Record, len(v))
			for i, r := range v {
				records[i] = cloneRecord(r)
			}
			snapshot[name] = records
		default:
			snapshot[name] = v
		}
	}
	return snapshot
}
