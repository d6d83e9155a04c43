package simulation

import (
	"fmt"
	"strings"
)

// Float returns a pointer to v, for optional config fields.
func Float(v float64) *float64 {
	return &v
}

// FormatRunDebug returns a compact debug string for a run, showing at most
// limit trajectory points.
func FormatRunDebug(r Run, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run: changes=%d final=%.3f totalTime=%.3f\n", len(r.Health)-1, r.Final(), r.TotalTime)
	for k, h := range r.Health {
		if k >= limit {
			fmt.Fprintf(&b, "  ... %d more\n", len(r.Health)-limit)
			break
		}
		fmt.Fprintf(&b, "  [%d] health=%.4f time=%.4f\n", k, h, r.Time[k])
	}
	return b.String()
}
