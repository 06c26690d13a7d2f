package anchor

import "fmt"

// MalformedIndexReferenceError reports an attribute record whose anchor index
// points outside the bounds of its target anchor collection. This is fatal
// for the partition: a bad structural index means the data model assumptions
// do not hold, and dropping it silently would hide corruption.
type MalformedIndexReferenceError struct {
	Partition  string
	Collection string
	Kind       IndexKind
	Index      int
	Count      int
}

func (e *MalformedIndexReferenceError) Error() string {
	return fmt.Sprintf("partition %s: collection %q: %s %d out of range (have %d anchors)",
		e.Partition, e.Collection, e.Kind, e.Index, e.Count)
}

// InvalidOffsetRangeError reports a segment anchor whose start or end offset
// lies outside [0,1]. Fatal for the partition.
type InvalidOffsetRangeError struct {
	Partition   string
	AnchorIndex int
	Start       float64
	End         float64
}

func (e *InvalidOffsetRangeError) Error() string {
	return fmt.Sprintf("partition %s: segment anchor %d: offsets (%g, %g) outside [0,1]",
		e.Partition, e.AnchorIndex, e.Start, e.End)
}

// PartitionUnavailableError reports that the partition source could not
// supply decoded content for a path.
type PartitionUnavailableError struct {
	Path string
	Err  error
}

func (e *PartitionUnavailableError) Error() string {
	return fmt.Sprintf("partition unavailable: %s: %v", e.Path, e.Err)
}

func (e *PartitionUnavailableError) Unwrap() error { return e.Err }
