package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/website-audit/internal/api"
	"github.com/JakeFAU/website-audit/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd)
			if err != nil {
				return err
			}
			handler := api.NewServer(
				rt.app.Auditor(),
				rt.app.Records(),
				rt.cfg.Server,
				rt.logger.Named("api"),
				api.WithReadiness(rt.app.Ready),
			).Handler()
			return server.Run(cmd.Context(), rt.cfg.Addr(), handler, rt.logger.Named("server"))
		},
	}
}
