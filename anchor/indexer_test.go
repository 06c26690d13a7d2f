package anchor

import (
	"encoding/json"
	"errors"
	"testing"
)

// partitionWith parses a partition with three segment anchors, two node
// anchors, and the given extra collections spliced in.
func partitionWith(t *testing.T, collections string) *Partition {
	t.Helper()
	body := `{
		"partitionName": "23618402",
		"tileId": 23618402,
		"segmentAnchor": [
			{"orientedSegmentRef": [{"segmentRef": {"partitionName": "23618402", "identifier": "s0"}}]},
			{"orientedSegmentRef": [{"segmentRef": {"partitionName": "23618402", "identifier": "s1"}}]},
			{"orientedSegmentRef": [{"segmentRef": {"partitionName": "23618402", "identifier": "s2"}}]}
		],
		"nodeAnchor": [
			{"nodeRef": {"partitionName": "23618402", "identifier": "n0"}},
			{"nodeRef": {"partitionName": "23618402", "identifier": "n1"}}
		]`
	if collections != "" {
		body += "," + collections
	}
	return mustPartition(t, body+"}")
}

func TestMergeAttributes_ScalarIndex(t *testing.T) {
	p := partitionWith(t, `"speedLimit": [{"segmentAnchorIndex": 1, "value": 50, "unit": "kph"}]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}

	rec, ok := p.SegmentAnchors[1].Properties["speedLimit"].(Record)
	if !ok {
		t.Fatalf("anchor 1 speedLimit = %T, want Record", p.SegmentAnchors[1].Properties["speedLimit"])
	}
	if _, present := rec["segmentAnchorIndex"]; present {
		t.Error("index field should be removed from the residual record")
	}
	if rec["value"] != json.Number("50") || rec["unit"] != "kph" {
		t.Errorf("residual record = %v, want value=50 unit=kph", rec)
	}

	// Nowhere else.
	for _, i := range []int{0, 2} {
		if len(p.SegmentAnchors[i].Properties) != 0 {
			t.Errorf("anchor %d should have no properties, got %v", i, p.SegmentAnchors[i].Properties)
		}
	}
}

func TestMergeAttributes_FanOut(t *testing.T) {
	p := partitionWith(t, `"functionalClass": [{"segmentAnchorIndex": [0, 2], "class": 3}]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}

	for _, i := range []int{0, 2} {
		rec, ok := p.SegmentAnchors[i].Properties["functionalClass"].(Record)
		if !ok {
			t.Fatalf("anchor %d functionalClass missing", i)
		}
		if rec["class"] != json.Number("3") {
			t.Errorf("anchor %d class = %v, want 3", i, rec["class"])
		}
	}
	if len(p.SegmentAnchors[1].Properties) != 0 {
		t.Error("anchor 1 should be untouched by fan-out to [0, 2]")
	}

	// Fan-out copies must be independent.
	rec0 := p.SegmentAnchors[0].Properties["functionalClass"].(Record)
	rec2 := p.SegmentAnchors[2].Properties["functionalClass"].(Record)
	rec0["mutated"] = true
	if _, leaked := rec2["mutated"]; leaked {
		t.Error("fan-out targets share the same record")
	}
}

func TestMergeAttributes_NodeIndex(t *testing.T) {
	p := partitionWith(t, `"intersectionCategory": [{"nodeAnchorIndex": 0, "category": "roundabout"}]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}

	rec, ok := p.NodeAnchors[0].Properties["intersectionCategory"].(Record)
	if !ok {
		t.Fatal("node anchor 0 should carry intersectionCategory")
	}
	if rec["category"] != "roundabout" {
		t.Errorf("category = %v, want roundabout", rec["category"])
	}
	for _, a := range p.SegmentAnchors {
		if len(a.Properties) != 0 {
			t.Error("segment anchors must not receive node-indexed records")
		}
	}
}

func TestMergeAttributes_OriginVariants(t *testing.T) {
	p := partitionWith(t, `
		"signText": [{"originSegmentAnchorIndex": 0, "text": "EXIT 12"}],
		"junctionView": [{"originatingSegmentAnchorIndex": 2, "imageId": "jv-9"}]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}
	if _, ok := p.SegmentAnchors[0].Properties["signText"]; !ok {
		t.Error("originSegmentAnchorIndex should target segment anchors")
	}
	if _, ok := p.SegmentAnchors[2].Properties["junctionView"]; !ok {
		t.Error("originatingSegmentAnchorIndex should target segment anchors")
	}
}

func TestMergeAttributes_EmptyResidualSkipped(t *testing.T) {
	p := partitionWith(t, `"marker": [{"segmentAnchorIndex": 0}]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}
	if len(p.SegmentAnchors[0].Properties) != 0 {
		t.Errorf("empty residual must not be attached, got %v", p.SegmentAnchors[0].Properties)
	}
}

func TestMergeAttributes_OutOfRangeIsFatal(t *testing.T) {
	p := partitionWith(t, `"speedLimit": [{"segmentAnchorIndex": 99, "value": 50}]`)

	_, err := MergeAttributes(p)
	if err == nil {
		t.Fatal("expected MalformedIndexReferenceError for out-of-range index")
	}
	var malformed *MalformedIndexReferenceError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedIndexReferenceError, got %T: %v", err, err)
	}
	if malformed.Index != 99 || malformed.Count != 3 {
		t.Errorf("error = %+v, want Index=99 Count=3", malformed)
	}
	if malformed.Partition != "23618402" || malformed.Collection != "speedLimit" {
		t.Errorf("error should carry partition and collection identity, got %+v", malformed)
	}
}

func TestMergeAttributes_OutOfRangeNodeIndex(t *testing.T) {
	p := partitionWith(t, `"intersectionCategory": [{"nodeAnchorIndex": 2, "category": "x"}]`)

	var malformed *MalformedIndexReferenceError
	if _, err := MergeAttributes(p); !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedIndexReferenceError, got %v", err)
	}
	if malformed.Kind != NodeAnchorIndex || malformed.Count != 2 {
		t.Errorf("error = %+v, want Kind=nodeAnchorIndex Count=2", malformed)
	}
}

func TestMergeAttributes_CollisionPromotesToList(t *testing.T) {
	p := partitionWith(t, `"laneCount": [
		{"segmentAnchorIndex": 1, "count": 2},
		{"segmentAnchorIndex": 1, "count": 4}
	]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}

	records, ok := p.SegmentAnchors[1].Properties["laneCount"].([]Record)
	if !ok {
		t.Fatalf("colliding records should promote to []Record, got %T",
			p.SegmentAnchors[1].Properties["laneCount"])
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["count"] != json.Number("2") || records[1]["count"] != json.Number("4") {
		t.Errorf("records out of arrival order: %v", records)
	}
}

func TestMergeAttributes_StreetSectionRefs(t *testing.T) {
	p := partitionWith(t, `"streetSection": [
		{"segmentAnchorIndex": 0, "streetSectionRef": {"partitionName": "20252820-20291912", "identifier": "ss-1"}},
		{"segmentAnchorIndex": 1, "streetSectionRef": {"partitionName": "20252820-20291913", "identifier": "ss-2"}},
		{"segmentAnchorIndex": 2, "name": "no ref here"}
	]`)

	refs, err := MergeAttributes(p)
	if err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 street-section refs, got %v", refs)
	}
	if !refs.Contains("20252820-20291912") || !refs.Contains("20252820-20291913") {
		t.Errorf("unexpected ref set: %v", refs)
	}
}

func TestMergeAttributes_RecordWithoutIndexSkipped(t *testing.T) {
	// First record decides the kind; a later record lacking the field is
	// skipped rather than crashing or attaching anywhere.
	p := partitionWith(t, `"speedLimit": [
		{"segmentAnchorIndex": 0, "value": 30},
		{"value": 120}
	]`)

	if _, err := MergeAttributes(p); err != nil {
		t.Fatalf("MergeAttributes() error: %v", err)
	}
	if _, ok := p.SegmentAnchors[0].Properties["speedLimit"]; !ok {
		t.Error("first record should attach")
	}
}

func TestIndexKindFor_ProbesFirstRecord(t *testing.T) {
	tests := []struct {
		name string
		coll []Record
		want IndexKind
	}{
		{"segment", []Record{{"segmentAnchorIndex": json.Number("1")}}, SegmentAnchorIndex},
		{"node", []Record{{"nodeAnchorIndex": json.Number("1")}}, NodeAnchorIndex},
		{"origin", []Record{{"originSegmentAnchorIndex": json.Number("1")}}, OriginSegmentAnchorIndex},
		{"originating", []Record{{"originatingSegmentAnchorIndex": json.Number("1")}}, OriginatingSegmentAnchorIndex},
		{"none", []Record{{"value": json.Number("1")}}, NoIndex},
		{"empty", nil, NoIndex},
		// Presence of the field decides, not its value.
		{"zero", []Record{{"nodeAnchorIndex": json.Number("0")}}, NodeAnchorIndex},
	}

	for _, tt := range tests {
		if got := IndexKindFor(tt.name, tt.coll); got != tt.want {
			t.Errorf("IndexKindFor(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIndexKindFor_SchemaWins(t *testing.T) {
	// streetSection is pinned by the declared schema even if the first
	// record carries no index field at all.
	coll := []Record{{"streetSectionRef": map[string]interface{}{"partitionName": "p"}}}
	if got := IndexKindFor("streetSection", coll); got != SegmentAnchorIndex {
		t.Errorf("IndexKindFor(streetSection) = %v, want segmentAnchorIndex", got)
	}
}

func TestRefSet_Merge(t *testing.T) {
	a := NewRefSet()
	a.Add("one")
	a.Add("")
	b := NewRefSet()
	b.Add("one")
	b.Add("two")

	a.Merge(b)
	if len(a) != 2 {
		t.Errorf("merged set = %v, want {one, two}", a)
	}
}
