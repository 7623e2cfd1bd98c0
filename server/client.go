// File: server/client.go
package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/websocket"
)

// Subscribe dials a /subscribe endpoint and calls handle for every snapshot
// received. It returns nil when ctx is done or the server closes the stream,
// and the handler's error if it fails.
func Subscribe(ctx context.Context, url, origin string, handle func(SnapshotMessage) error) error {
	config, err := websocket.NewConfig(url, origin)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()

	// Unblocks Receive on cancellation
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg SnapshotMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receiving snapshot: %w", err)
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}
