package render

import (
	"strings"

	"github.com/fatih/color"
)

// palette holds the colours of text output. Every colour is forced on or
// off so output does not depend on the terminal detection in fatih/color.
type palette struct {
	added   *color.Color
	removed *color.Color
	hunk    *color.Color
	header  *color.Color
	commit  *color.Color
	muted   *color.Color
}

func newPalette(enabled bool) palette {
	return palette{
		added:   newColor(enabled, color.FgGreen),
		removed: newColor(enabled, color.FgRed),
		hunk:    newColor(enabled, color.FgCyan),
		header:  newColor(enabled, color.Bold),
		commit:  newColor(enabled, color.FgYellow),
		muted:   newColor(enabled, color.Faint),
	}
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c
}

// diffLine colours one line of synthesized diff text by its prefix.
func (p palette) diffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "@@"):
		return p.hunk.Sprint(line)
	case strings.HasPrefix(line, "+"):
		return p.added.Sprint(line)
	case strings.HasPrefix(line, "-"):
		return p.removed.Sprint(line)
	default:
		return line
	}
}
