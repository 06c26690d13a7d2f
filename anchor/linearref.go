package anchor

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Linear referencing over orb line strings. All distances are planar arc
// lengths in the native coordinate units of the geometry; no projection or
// geodetic correction is applied.

// LineLength returns the planar arc length of ls.
func LineLength(ls orb.LineString) float64 {
	return planar.Length(ls)
}

// PointAt returns the point dist along ls, measured from its first vertex.
// Distances below 0 clamp to the start, distances beyond the line length
// clamp to the end.
func PointAt(ls orb.LineString, dist float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if dist <= 0 || len(ls) == 1 {
		return ls[0]
	}

	acc := 0.0
	for i := 0; i < len(ls)-1; i++ {
		seg := planar.Distance(ls[i], ls[i+1])
		if acc+seg >= dist {
			if seg == 0 {
				return ls[i+1]
			}
			t := (dist - acc) / seg
			return orb.Point{
				ls[i][0] + t*(ls[i+1][0]-ls[i][0]),
				ls[i][1] + t*(ls[i+1][1]-ls[i][1]),
			}
		}
		acc += seg
	}
	return ls[len(ls)-1]
}

// Substring returns the part of ls between startDist and endDist along its
// arc length: interpolated start and end points plus every original vertex
// strictly between the two distances, in original vertex order. When
// startDist exceeds endDist the slice over [endDist, startDist] is returned
// reversed.
//
// The caller is expected to handle startDist == endDist separately; the
// degenerate result is a point, not a line.
func Substring(ls orb.LineString, startDist, endDist float64) orb.LineString {
	if len(ls) < 2 {
		return ls.Clone()
	}
	if startDist > endDist {
		out := Substring(ls, endDist, startDist)
		reverseLine(out)
		return out
	}

	out := orb.LineString{PointAt(ls, startDist)}

	acc := 0.0
	for i := 0; i < len(ls)-1; i++ {
		acc += planar.Distance(ls[i], ls[i+1])
		if acc >= endDist {
			break
		}
		if acc > startDist {
			out = append(out, ls[i+1])
		}
	}

	out = append(out, PointAt(ls, endDist))
	return out
}

func reverseLine(ls orb.LineString) {
	for i, j := 0, len(ls)-1; i < j; i, j = i+1, j-1 {
		ls[i], ls[j] = ls[j], ls[i]
	}
}
