package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/lguibr/gonwayish/render"
	"github.com/lguibr/gonwayish/server"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *options) *cobra.Command {
	var (
		url    string
		origin string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Draw the snapshots streamed by a running serve command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			clearScreen := func() {}
			if file, ok := out.(*os.File); ok && render.IsTerminal(file.Fd()) {
				clearScreen = render.ClearScreen
			}

			logger.Info("watching", "url", url)
			return server.Subscribe(cmd.Context(), url, origin, func(msg server.SnapshotMessage) error {
				clearScreen()
				return writeRemoteFrame(out, msg)
			})
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "ws://localhost:3001/subscribe", "websocket endpoint of a serve command")
	cmd.Flags().StringVar(&origin, "origin", "http://localhost/", "origin sent with the websocket handshake")
	return cmd
}

func writeRemoteFrame(out io.Writer, msg server.SnapshotMessage) error {
	frame := render.Rows(msg.Cells) + render.StatusLine(msg.Alive, msg.Width*msg.Height)
	if _, err := io.WriteString(out, frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
