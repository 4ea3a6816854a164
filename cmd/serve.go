package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/lock"
	"github.com/fundprep/examgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question form and API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(cmd, logService)
		if err != nil {
			return err
		}
		defer e.close()

		addr := e.cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		var opts []exam.Option
		if r := e.cfg.Server.Redis; r.Addr != "" {
			client, err := lock.NewClient(ctx, r.Addr, r.Password, r.DB)
			if err != nil {
				return err
			}
			defer client.Close()
			opts = append(opts, exam.WithGuard(lock.NewRedisGuard(client, e.cfg.Server.LockTTL, e.log)))
			e.log.Info("using shared session guard", zap.String("redis", r.Addr))
		}

		ctrl, err := e.controller(ctx, e.cfg.LLM, opts...)
		if err != nil {
			return err
		}
		if !ctrl.Ready() {
			e.log.Warn("no API key configured; generation requests will fail",
				zap.String("provider", e.cfg.LLM.Provider),
				zap.String("env", e.cfg.LLM.KeyEnv()))
		}

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}

		srv := server.New(ctrl, e.catalog, server.Options{
			ReadTimeout:    e.cfg.Server.ReadTimeout,
			WriteTimeout:   e.cfg.Server.WriteTimeout,
			DefaultVariant: e.cfg.Catalog.Variant,
		}, e.log.Named("http"))
		return srv.Run(ctx, ln)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address (overrides server.addr)")
}
