package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// NextSequentialID scans an ID column for values carrying the given prefix
// and returns the next identifier in the sequence. The numeric suffix is
// zero-padded to a fixed minimum width of three digits; suffixes that already
// exceed three digits keep their full width. Values without the prefix are
// ignored and a suffix that does not parse as a base-10 integer counts as 0.
//
// The generator is not safe against concurrent appenders: two callers reading
// the same column before either appends will compute the same identifier.
// This is inherent to the append-row model; callers must serialize the
// scan-then-append sequence with a per-sheet lock.
func NextSequentialID(column []string, prefix string) string {
	max := 0
	for _, value := range column {
		if !strings.HasPrefix(value, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(value, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			n = 0
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}
