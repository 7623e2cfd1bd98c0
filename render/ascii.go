package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/lguibr/gonwayish/field"
	"github.com/lguibr/gonwayish/geometry"
)

// Glyphs for live and dead cells
const (
	AliveGlyph = '█'
	DeadGlyph  = '·'
)

const ansiReset = "\033[0m"

// rgb is a terminal truecolor.
type rgb struct {
	R, G, B uint8
}

var deadColor = rgb{R: 70, G: 70, B: 70}

// rgbToAnsi converts a color to the ANSI escape code selecting it as foreground.
func rgbToAnsi(c rgb) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm", c.R, c.G, c.B)
}

// ageColor fades a live cell from green at birth to red at the end of its life period.
func ageColor(age, lifePeriod time.Duration) rgb {
	ratio := 1.0
	if lifePeriod > 0 {
		ratio = min(max(float64(age)/float64(lifePeriod), 0), 1)
	}
	return rgb{R: uint8(255 * ratio), G: uint8(255 * (1 - ratio)), B: 64}
}

// Rows renders a row-major matrix of live flags, one text line per row.
func Rows(rows [][]bool) string {
	var ascii strings.Builder
	for _, row := range rows {
		for _, alive := range row {
			if alive {
				ascii.WriteRune(AliveGlyph)
			} else {
				ascii.WriteRune(DeadGlyph)
			}
		}
		ascii.WriteString("\n")
	}
	return ascii.String()
}

// ASCII renders a width x height snapshot without colors.
func ASCII(snapshot field.Snapshot, width, height int) string {
	return Rows(snapshot.Rows(width, height))
}

// Colored renders a snapshot with every live cell tinted by its age at now.
func Colored(snapshot field.Snapshot, width, height int, now time.Time, lifePeriod time.Duration) string {
	var ascii strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			info := snapshot[geometry.Position{X: x, Y: y}]
			if info.Alive {
				ascii.WriteString(rgbToAnsi(ageColor(info.Age(now), lifePeriod)))
				ascii.WriteRune(AliveGlyph)
			} else {
				ascii.WriteString(rgbToAnsi(deadColor))
				ascii.WriteRune(DeadGlyph)
			}
			ascii.WriteString(ansiReset) // Reset color after each character
		}
		ascii.WriteString("\n")
	}
	return ascii.String()
}

// StatusLine summarizes a frame's population.
func StatusLine(alive, total int) string {
	ratio := 0.0
	if total > 0 {
		ratio = 100 * float64(alive) / float64(total)
	}
	return fmt.Sprintf("alive %d/%d (%.1f%%)\n", alive, total, ratio)
}
