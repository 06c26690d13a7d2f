package anchor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ParsePartitionFile reads and parses a decoded partition JSON file.
func ParsePartitionFile(path string) (*Partition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParsePartitionJSON(data)
}

// ParsePartitionJSON parses decoded partition JSON. The top-level object is
// walked token by token so the original key order of the attribute
// collections is preserved; map-based decoding would randomize it and make
// attribute merging nondeterministic.
func ParsePartitionJSON(data []byte) (*Partition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing JSON: partition is not an object")
	}

	p := &Partition{
		Collections: make(map[string][]Record),
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing JSON: unexpected token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing JSON: field %q: %w", key, err)
		}

		switch key {
		case "partitionName":
			if err := json.Unmarshal(raw, &p.PartitionName); err != nil {
				return nil, fmt.Errorf("parsing partitionName: %w", err)
			}
		case "tileId":
			// Scalar in road-attribute layers; index layers carry a list
			// here, which this converter does not use.
			var n json.Number
			if err := json.Unmarshal(raw, &n); err == nil {
				if v, err := n.Int64(); err == nil {
					p.TileID = v
				}
			}
		case "segmentAnchor":
			if err := json.Unmarshal(raw, &p.SegmentAnchors); err != nil {
				return nil, fmt.Errorf("parsing segmentAnchor: %w", err)
			}
		case "nodeAnchor":
			if err := json.Unmarshal(raw, &p.NodeAnchors); err != nil {
				return nil, fmt.Errorf("parsing nodeAnchor: %w", err)
			}
		default:
			coll, ok := decodeRecords(raw)
			if !ok || len(coll) == 0 {
				// Not an array of records; nothing to attach from it.
				continue
			}
			p.Collections[key] = coll
			p.CollectionOrder = append(p.CollectionOrder, key)
		}
	}

	for _, a := range p.SegmentAnchors {
		a.Properties = make(Properties)
	}
	for _, a := range p.NodeAnchors {
		a.Properties = make(Properties)
	}

	return p, nil
}

// decodeRecords decodes raw as an array of JSON objects. Numbers are kept as
// json.Number so identifiers survive without float rounding and the emitted
// output reproduces the source formatting.
func decodeRecords(raw json.RawMessage) ([]Record, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var coll []Record
	if err := dec.Decode(&coll); err != nil {
		return nil, false
	}
	for _, rec := range coll {
		if rec == nil {
			return nil, false
		}
	}
	return coll, true
}

// FileSource is a PartitionSource that reads decoded partition JSON from the
// local filesystem.
type FileSource struct{}

// DecodedPartition implements PartitionSource. Any failure, whether reading
// or decoding, is reported as a PartitionUnavailableError.
func (FileSource) DecodedPartition(path string) (*Partition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PartitionUnavailableError{Path: path, Err: err}
	}
	p, err := ParsePartitionJSON(data)
	if err != nil {
		return nil, &PartitionUnavailableError{Path: path, Err: err}
	}
	return p, nil
}
