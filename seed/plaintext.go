package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lguibr/gonwayish/geometry"
)

// ErrMalformedPattern is returned for plaintext patterns with unexpected characters.
var ErrMalformedPattern = errors.New("seed: malformed plaintext pattern")

// ParsePlaintext reads the plaintext (.cells) format: lines starting with '!'
// are comments, 'O' is a live cell and '.' a dead one. Rows may be ragged.
func ParsePlaintext(r io.Reader) ([]geometry.Position, error) {
	var cells []geometry.Position
	scanner := bufio.NewScanner(r)
	y := 0
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.HasPrefix(text, "!") {
			continue
		}
		for x, ch := range text {
			switch ch {
			case 'O', 'o', '*':
				cells = append(cells, geometry.Position{X: x, Y: y})
			case '.':
			default:
				return nil, fmt.Errorf("%w: line %d: unexpected %q", ErrMalformedPattern, line, ch)
			}
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pattern: %w", err)
	}
	return cells, nil
}
