package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the timeline over HTTP",
	Long: `Serve the loaded timeline as JSON and accept visible-range updates over HTTP.
Without a file the server starts empty; POST /dataset loads one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	session := dataset.NewSession(dataset.OptionsFromConfig(cfg, log))
	if len(args) == 1 {
		if _, err := session.LoadFile(args[0]); err != nil {
			return err
		}
	}

	if cfg.Log.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := server.NewHandler(session, log)
	log.Info("Serving timeline", zap.String("address", addr), zap.Bool("loaded", session.Current() != nil))
	return server.Run(ctx, addr, h, log)
}
