// Package style holds the chart framing constants. Defaults can be overridden
// from a TOML, YAML or JSON file at start-up; a Theme is a value and is never
// mutated after loading.
package style

import (
	"fmt"
	"regexp"
	"strings"

	"riskdash/internal/config"
)

// Theme fields carry tags for all three override formats.
type Theme struct {
	Width          int     `json:"width" yaml:"width" toml:"width"`
	Height         int     `json:"height" yaml:"height" toml:"height"`
	MonthlyHeight  int     `json:"monthly_height" yaml:"monthly_height" toml:"monthly_height"`
	Background     string  `json:"background" yaml:"background" toml:"background"`
	Class0Color    string  `json:"class0_color" yaml:"class0_color" toml:"class0_color"`
	Class1Color    string  `json:"class1_color" yaml:"class1_color" toml:"class1_color"`
	PctColor       string  `json:"pct_color" yaml:"pct_color" toml:"pct_color"`
	BarColor       string  `json:"bar_color" yaml:"bar_color" toml:"bar_color"`
	OverlayColor   string  `json:"overlay_color" yaml:"overlay_color" toml:"overlay_color"`
	AgeColor       string  `json:"age_color" yaml:"age_color" toml:"age_color"`
	BarWidth       int     `json:"bar_width" yaml:"bar_width" toml:"bar_width"`
	LineWidth      float64 `json:"line_width" yaml:"line_width" toml:"line_width"`
	DotSize        float64 `json:"dot_size" yaml:"dot_size" toml:"dot_size"`
	MonthlyTitle   string  `json:"monthly_title" yaml:"monthly_title" toml:"monthly_title"`
	RiskTitle      string  `json:"risk_title" yaml:"risk_title" toml:"risk_title"`
	AgeTitle       string  `json:"age_title" yaml:"age_title" toml:"age_title"`
	CountAxisLabel string  `json:"count_axis_label" yaml:"count_axis_label" toml:"count_axis_label"`
	PctAxisLabel   string  `json:"pct_axis_label" yaml:"pct_axis_label" toml:"pct_axis_label"`
}

// Default returns the built-in theme.
func Default() Theme {
	return Theme{
		Width:          800,
		Height:         400,
		MonthlyHeight:  500,
		Background:     "#fafafa",
		Class0Color:    "#718dbf",
		Class1Color:    "#e84d60",
		PctColor:       "#2ca02c",
		BarColor:       "#2ca02c",
		OverlayColor:   "#d62728",
		AgeColor:       "#718dbf",
		BarWidth:       24,
		LineWidth:      3,
		DotSize:        5,
		MonthlyTitle:   "Total amount per month and monthly average per quarter",
		RiskTitle:      "Risk Client Counts and Percentage by Month",
		AgeTitle:       "Accounts by age",
		CountAxisLabel: "Count",
		PctAxisLabel:   "Risk Client Percentage (%)",
	}
}

// Load returns Default overridden by the fields present in path. An empty
// path returns Default.
func Load(path string) (Theme, error) {
	t := Default()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	if err := config.LoadFile(path, &t); err != nil {
		return Theme{}, fmt.Errorf("load style: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Theme{}, fmt.Errorf("style %s: %w", path, err)
	}
	return t, nil
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks sizes and colors and reports every problem at once.
func (t Theme) Validate() error {
	var problems []string
	for name, v := range map[string]int{"width": t.Width, "height": t.Height, "monthly_height": t.MonthlyHeight} {
		if v < 100 || v > 4000 {
			problems = append(problems, fmt.Sprintf("%s %d out of range 100..4000", name, v))
		}
	}
	for name, c := range map[string]string{
		"background":    t.Background,
		"class0_color":  t.Class0Color,
		"class1_color":  t.Class1Color,
		"pct_color":     t.PctColor,
		"bar_color":     t.BarColor,
		"overlay_color": t.OverlayColor,
		"age_color":     t.AgeColor,
	} {
		if !hexColor.MatchString(c) {
			problems = append(problems, fmt.Sprintf("%s %q is not a #rgb or #rrggbb color", name, c))
		}
	}
	if t.BarWidth < 1 {
		problems = append(problems, "bar_width must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid theme: %s", strings.Join(problems, "; "))
	}
	return nil
}
