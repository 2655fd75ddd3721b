package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gotodo/todo-e2e/internal/fixture"
)

func newServeFixtureCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-fixture",
		Short: "Serve a minimal to-do page for trying out drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := fixture.Start(listen, log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fixture page on %s (Ctrl+C to stop)\n", srv.URL)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)
			select {
			case <-sig:
			case <-cmd.Context().Done():
			}
			return srv.Close()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8088", "Listen address")
	return cmd
}
