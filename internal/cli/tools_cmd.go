package cli

import (
	"fmt"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool menu shown to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openTools(cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprint(cmd.OutOrStdout(), rt.registry.Menu())
			return nil
		},
	}
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsCallCmd() *cobra.Command {
	var user int64
	cmd := &cobra.Command{
		Use:   "call <NAME> [arguments]",
		Short: "Invoke one tool directly, bypassing the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openTools(cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if user == 0 {
				user = cfg.Agent.DefaultUserID
			}
			name := strings.ToUpper(args[0])
			out, err := rt.registry.Invoke(cmd.Context(), name, strings.Join(args[1:], " "), capability.Env{UserID: user})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&user, "user", 0, "patient user ID (default from agent.defaultUserId)")
	return cmd
}
