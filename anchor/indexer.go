package anchor

import (
	"encoding/json"
	"fmt"
)

// IndexKind tags which anchor-index field an attribute collection carries.
type IndexKind int

const (
	// NoIndex marks a collection that does not describe per-anchor
	// attributes and is skipped by the indexer.
	NoIndex IndexKind = iota
	SegmentAnchorIndex
	NodeAnchorIndex
	OriginSegmentAnchorIndex
	OriginatingSegmentAnchorIndex
)

// Field returns the JSON field name for the index kind.
func (k IndexKind) Field() string {
	switch k {
	case SegmentAnchorIndex:
		return "segmentAnchorIndex"
	case NodeAnchorIndex:
		return "nodeAnchorIndex"
	case OriginSegmentAnchorIndex:
		return "originSegmentAnchorIndex"
	case OriginatingSegmentAnchorIndex:
		return "originatingSegmentAnchorIndex"
	}
	return ""
}

func (k IndexKind) String() string {
	if k == NoIndex {
		return "noIndex"
	}
	return k.Field()
}

// TargetsNodes reports whether the kind attaches records to node anchors.
// All other kinds attach to segment anchors.
func (k IndexKind) TargetsNodes() bool { return k == NodeAnchorIndex }

// probeOrder is the priority in which index fields are checked when a
// collection is not covered by the declared schema.
var probeOrder = []IndexKind{
	SegmentAnchorIndex,
	OriginSegmentAnchorIndex,
	OriginatingSegmentAnchorIndex,
	NodeAnchorIndex,
}

// collectionIndexSchema pins the index kind for collection names whose
// layout is known up front, so the decision does not depend on the shape of
// the first record. Collections absent from the table are probed once.
var collectionIndexSchema = map[string]IndexKind{
	"streetSection": SegmentAnchorIndex,
}

// IndexKindFor decides, once per collection, which index field the
// collection uses. The declared schema wins; otherwise the first record is
// probed for the known field names. Presence of the field is what counts,
// not its value, so an index of 0 in the first record is handled correctly.
func IndexKindFor(name string, coll []Record) IndexKind {
	if kind, ok := collectionIndexSchema[name]; ok {
		return kind
	}
	if len(coll) == 0 {
		return NoIndex
	}
	first := coll[0]
	for _, kind := range probeOrder {
		if _, ok := first[kind.Field()]; ok {
			return kind
		}
	}
	return NoIndex
}

// MergeAttributes scans every attribute collection of p and attaches each
// record to the anchors its index field names, with the index field removed.
// Records with a list-valued index fan out to every listed anchor; records
// that are empty after index removal are skipped. An index outside the
// bounds of the target anchor collection aborts the merge with a
// MalformedIndexReferenceError.
//
// The returned RefSet holds the partition names referenced by streetSection
// records, for the supplemental street-names download.
func MergeAttributes(p *Partition) (RefSet, error) {
	refs := NewRefSet()

	for _, name := range p.CollectionOrder {
		coll := p.Collections[name]
		kind := IndexKindFor(name, coll)

		if name == "streetSection" {
			collectStreetSectionRefs(coll, refs)
		}
		if kind == NoIndex {
			continue
		}

		for _, rec := range coll {
			value, ok := rec[kind.Field()]
			if !ok {
				continue
			}

			indices, err := normalizeIndices(value)
			if err != nil {
				return nil, fmt.Errorf("partition %s: collection %q: %w", p.PartitionName, name, err)
			}

			residual := make(Record, len(rec)-1)
			for k, v := range rec {
				if k != kind.Field() {
					residual[k] = v
				}
			}
			if len(residual) == 0 {
				continue
			}

			for _, i := range indices {
				if kind.TargetsNodes() {
					if i < 0 || i >= len(p.NodeAnchors) {
						return nil, &MalformedIndexReferenceError{
							Partition:  p.PartitionName,
							Collection: name,
							Kind:       kind,
							Index:      i,
							Count:      len(p.NodeAnchors),
						}
					}
					p.NodeAnchors[i].Properties.Attach(name, cloneRecord(residual))
				} else {
					if i < 0 || i >= len(p.SegmentAnchors) {
						return nil, &MalformedIndexReferenceError{
							Partition:  p.PartitionName,
							Collection: name,
							Kind:       kind,
							Index:      i,
							Count:      len(p.SegmentAnchors),
						}
					}
					p.SegmentAnchors[i].Properties.Attach(name, cloneRecord(residual))
				}
			}
		}
	}

	return refs, nil
}

// collectStreetSectionRefs pulls the partitionName out of every nested
// streetSectionRef, independent of whether the record attaches to an anchor.
func collectStreetSectionRefs(coll []Record, refs RefSet) {
	for _, rec := range coll {
		nested, ok := rec["streetSectionRef"].(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := nested["partitionName"].(string); ok {
			refs.Add(name)
		}
	}
}

// normalizeIndices turns a scalar or list index value into a slice of ints.
func normalizeIndices(value interface{}) ([]int, error) {
	switch v := value.(type) {
	case []interface{}:
		indices := make([]int, 0, len(v))
		for _, elem := range v {
			i, err := toIndex(elem)
			if err != nil {
				return nil, err
			}
			indices = append(indices, i)
		}
		return indices, nil
	default:
		i, err := toIndex(v)
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	}
}

func toIndex(value interface{}) (int, error) {
	switch v := value.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer index %q", v.String())
		}
		return int(i), nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("unsupported index value of type %T", value)
}

// cloneRecord returns a shallow copy of rec. Each target anchor gets its own
// copy so the cross-reference pass can annotate one without touching the
// others.
func cloneRecord(rec Record) Record {
	clone := make(Record, len(rec))
	for k, v := range rec {
		clone[k] = v
	}
	return clone
}
