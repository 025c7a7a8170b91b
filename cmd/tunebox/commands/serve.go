package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/wizzlekids/tunebox/rpc"
	"github.com/wizzlekids/tunebox/tracker"
)

var (
	serveAddr     string
	serveAutoplay bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Control playback over a websocket",
	Long: `Load a composition and serve its transport on a websocket. Clients get
the transport state and every position update, and can send commands:

  {"op":"play"}  {"op":"pause"}  {"op":"stop"}  {"op":"seek","seconds":2.5}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tracker.LoadComposition(args[0])
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return withTransport(c, func(t *tracker.Transport) error {
			mux := http.NewServeMux()
			mux.Handle("/", rpc.NewServer(t, logger))
			srv := &http.Server{Addr: serveAddr, Handler: mux}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			logger.Info("serving", "addr", serveAddr, "file", args[0])
			if serveAutoplay {
				t.Play()
			}
			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}
			t.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":31337", "address to listen on")
	serveCmd.Flags().BoolVarP(&serveAutoplay, "play", "p", false, "start playing right away")
	rootCmd.AddCommand(serveCmd)
}
