package chart

// ScenarioColors maps builtin scenario keys to line colors.
var ScenarioColors = map[string]string{
	"ai-vibe":           "#f87171",
	"ai-guardrails":     "#fbbf24",
	"junior-engineer":   "#fb923c",
	"senior-engineers":  "#34d399",
	"ai-handoff":        "#60a5fa",
	"ai-junior-handoff": "#818cf8",
}

var palette = []string{
	"#60a5fa", "#f87171", "#34d399", "#fbbf24",
	"#a78bfa", "#fb923c", "#f472b6", "#2dd4bf",
}

// ColorFor returns the scenario's color, or a palette color chosen by index.
func ColorFor(key string, index int) string {
	if c, ok := ScenarioColors[key]; ok {
		return c
	}
	return palette[index%len(palette)]
}
