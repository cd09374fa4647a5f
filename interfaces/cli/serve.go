package cli

import (
	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
	"github.com/felixgeelhaar/domguard/interfaces/httpapi"
)

func (a *App) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Long: `Serve the local HTTP API until interrupted.

Routes:
  POST /v1/dispatch                 {command, code, source, target}
  POST /v1/run                      {command, target}
  GET  /v1/actions
  GET  /v1/history                  ?source=&success=&since=&limit=
  GET  /v1/history/{id}/userscript
  GET  /v1/stats
  GET  /v1/health`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.buildRuntime(ctx, func(c *domainconfig.Config) {
				if addr != "" {
					c.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			srv := httpapi.New(httpapi.Config{
				Dispatcher:   rt.Dispatcher,
				History:      rt.HistoryService,
				Metrics:      rt.Observability,
				Addr:         rt.Config.Server.Addr,
				ReadTimeout:  rt.Config.Server.ReadTimeout.Duration(),
				WriteTimeout: rt.Config.Server.WriteTimeout.Duration(),
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
