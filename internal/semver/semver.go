// Package semver implements the permissive version grammar used for bundle
// versions: one or two optional numeric groups followed by a number or "*"
// (e.g. "1", "1.0", "1.0.3", "1.0.*").
package semver

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var versionRe = regexp.MustCompile(`^(\d+\.)?(\d+\.)?(\*|\d+)$`)

const (
	// wildcard segments sort above any concrete number
	wildcardValue = uint64(math.MaxUint64)
	// numbers too large for uint64 clamp just below the wildcard
	maxSegment = wildcardValue - 1
)

// IsValid reports whether s matches the accepted version grammar.
func IsValid(s string) bool {
	return versionRe.MatchString(s)
}

// IsWildcard reports whether s contains a "*" segment. Wildcards are legal
// on the wire but are rejected as stored bundle versions.
func IsWildcard(s string) bool {
	return strings.Contains(s, "*")
}

// Compare orders two versions numerically, left to right by dot segment.
// Missing segments count as zero, "*" counts as maximal. Returns -1, 0 or 1.
// Both inputs must already be valid.
func Compare(a, b string) int {
	as := segments(a)
	bs := segments(b)
	for i := 0; i < 3; i++ {
		switch {
		case as[i] < bs[i]:
			return -1
		case as[i] > bs[i]:
			return 1
		}
	}
	return 0
}

// LessThan reports whether a orders strictly before b.
func LessThan(a, b string) bool {
	return Compare(a, b) < 0
}

// SortKey returns a fixed-width string that sorts byte-wise in the same
// order Compare defines, so stores can index and order by it.
func SortKey(s string) string {
	seg := segments(s)
	return fmt.Sprintf("%020d.%020d.%020d", seg[0], seg[1], seg[2])
}

func segments(s string) [3]uint64 {
	var out [3]uint64
	for i, part := range strings.Split(s, ".") {
		if i > 2 {
			break
		}
		if part == "*" {
			out[i] = wildcardValue
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			// the grammar only admits digits here, so the sole
			// failure mode is overflow: saturate instead of
			// collapsing the segment to zero
			out[i] = maxSegment
			continue
		}
		out[i] = n
	}
	return out
}
