// Package chart turns simulation statistics into line-chart datasets: an
// average line per series plus a p10-p90 band drawn as two filled lines.
package chart

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nvandessel/phsim/internal/simulation"
)

// Visibility controls which datasets start visible.
type Visibility string

const (
	VisibilityAll          Visibility = "all"
	VisibilityAveragesOnly Visibility = "averages-only"
)

// ParseVisibility validates s. The empty string means VisibilityAll.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case "", VisibilityAll:
		return VisibilityAll, nil
	case VisibilityAveragesOnly:
		return VisibilityAveragesOnly, nil
	}
	return "", fmt.Errorf("invalid visibility %q (valid: %s, %s)", s, VisibilityAll, VisibilityAveragesOnly)
}

const (
	bandAlpha = 0.15
	tension   = 0.25
)

// Point is one (change index, health) sample.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Fill is a dataset fill mode.
type Fill string

const (
	FillNone Fill = ""
	// FillNext fills down to the following dataset.
	FillNext Fill = "+1"
)

// MarshalJSON encodes FillNone as false.
func (f Fill) MarshalJSON() ([]byte, error) {
	if f == FillNone {
		return []byte("false"), nil
	}
	return json.Marshal(string(f))
}

// UnmarshalJSON accepts false or a string.
func (f *Fill) UnmarshalJSON(data []byte) error {
	if string(data) == "false" {
		*f = FillNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid fill: %w", err)
	}
	*f = Fill(s)
	return nil
}

// Dataset is one line on the chart.
type Dataset struct {
	Label           string  `json:"label"`
	Data            []Point `json:"data"`
	BorderColor     string  `json:"borderColor"`
	BackgroundColor string  `json:"backgroundColor"`
	Fill            Fill    `json:"fill"`
	Tension         float64 `json:"tension"`
	PointRadius     int     `json:"pointRadius"`
	Hidden          bool    `json:"hidden"`
}

// Series is one agent's summarized result.
type Series struct {
	Label string
	Color string
	Stats simulation.Stats
}

// Build returns three datasets per series in p90, p10, average order. The
// p90 line fills down to p10 to draw the band.
func Build(series []Series, vis Visibility) []Dataset {
	hideBands := vis == VisibilityAveragesOnly
	out := make([]Dataset, 0, 3*len(series))
	for _, s := range series {
		out = append(out,
			Dataset{
				Label:           s.Label + " (p90)",
				Data:            points(s.Stats.P90Trajectory),
				BorderColor:     "transparent",
				BackgroundColor: HexToRGBA(s.Color, bandAlpha),
				Fill:            FillNext,
				Tension:         tension,
				Hidden:          hideBands,
			},
			Dataset{
				Label:           s.Label + " (p10)",
				Data:            points(s.Stats.P10Trajectory),
				BorderColor:     "transparent",
				BackgroundColor: "transparent",
				Fill:            FillNone,
				Tension:         tension,
				Hidden:          hideBands,
			},
			Dataset{
				Label:           s.Label,
				Data:            points(s.Stats.AverageTrajectory),
				BorderColor:     s.Color,
				BackgroundColor: s.Color,
				Fill:            FillNone,
				Tension:         tension,
			},
		)
	}
	return out
}

func points(values []float64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{X: i, Y: v}
	}
	return out
}

// HexToRGBA converts "#rrggbb" to an rgba() string. Anything else is returned
// unchanged.
func HexToRGBA(hex string, alpha float64) string {
	if len(hex) != 7 || hex[0] != '#' {
		return hex
	}
	var rgb [3]uint64
	for i := range rgb {
		v, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return hex
		}
		rgb[i] = v
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgb[0], rgb[1], rgb[2], strconv.FormatFloat(alpha, 'f', -1, 64))
}
