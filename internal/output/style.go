package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode selects when labels are colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"

	invalidColorModeMessage = "invalid color mode %q; accepted values: auto, always, never"
)

// ParseColorMode normalizes a user supplied color mode. An empty value means auto.
func ParseColorMode(value string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return "", fmt.Errorf(invalidColorModeMessage, value)
	}
}

// ColorEnabled reports whether output written to file should be colored under mode.
// Auto mode colors terminals only and honors NO_COLOR.
func ColorEnabled(mode ColorMode, file *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	if file == nil {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// ColorStyler colors containers green, leaves yellow, and annotations and scalar leaves red.
type ColorStyler struct {
	container  *color.Color
	leaf       *color.Color
	annotation *color.Color
}

// NewColorStyler builds a styler whose colors are always emitted.
func NewColorStyler() *ColorStyler {
	styler := &ColorStyler{
		container:  color.New(color.FgGreen),
		leaf:       color.New(color.FgYellow),
		annotation: color.New(color.FgRed),
	}
	styler.container.EnableColor()
	styler.leaf.EnableColor()
	styler.annotation.EnableColor()
	return styler
}

func (styler *ColorStyler) Container(text string) string {
	return styler.container.Sprint(text)
}

func (styler *ColorStyler) Leaf(text string) string {
	return styler.leaf.Sprint(text)
}

func (styler *ColorStyler) Scalar(text string) string {
	return styler.annotation.Sprint(text)
}

func (styler *ColorStyler) Annotation(text string) string {
	return styler.annotation.Sprint(text)
}
