package cli

import (
	"os/signal"
	"syscall"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/mcpserve"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/version"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	var user int64
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdin/stdout",
		Long:  "Runs a Model Context Protocol server so other agents can call AEGIS tools. Logs go to stderr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openTools(cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if user == 0 {
				user = cfg.Agent.DefaultUserID
			}
			srv := mcpserve.New(mcpserve.Options{
				Registry: rt.registry,
				Env:      capability.Env{UserID: user},
				Version:  version.Version,
				Log:      log,
			})
			log.Info().Int("tools", rt.registry.Len()).Msg("mcp server listening on stdio")
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&user, "user", 0, "patient user ID tools act for (default from agent.defaultUserId)")
	return cmd
}
