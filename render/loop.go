package render

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lguibr/asciiring/helpers"
	"github.com/lguibr/gonwayish/field"
)

// Source produces snapshots to draw. *field.Field satisfies it.
type Source interface {
	Snapshot() field.Snapshot
}

// Options controls how Loop draws frames.
type Options struct {
	Width, Height int
	LifePeriod    time.Duration    // Color scale for live cells, used when Color is set
	Color         bool             // Tint live cells by age
	Clear         func()           // Called before every frame, nil keeps scrolling
	Now           func() time.Time // Defaults to time.Now
}

// ClearScreen wipes the terminal before the next frame.
func ClearScreen() { helpers.ClearScreen() }

// Frame draws one snapshot followed by its status line.
func Frame(snapshot field.Snapshot, opts Options) string {
	var body string
	if opts.Color {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		body = Colored(snapshot, opts.Width, opts.Height, now(), opts.LifePeriod)
	} else {
		body = ASCII(snapshot, opts.Width, opts.Height)
	}
	return body + StatusLine(snapshot.AliveCount(), opts.Width*opts.Height)
}

// Loop writes a frame from src to out every interval until ctx is done.
// It only returns early when writing fails.
func Loop(ctx context.Context, src Source, out io.Writer, interval time.Duration, opts Options) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if opts.Clear != nil {
				opts.Clear()
			}
			if _, err := io.WriteString(out, Frame(src.Snapshot(), opts)); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		}
	}
}
