package cli

import (
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/tools"
	"github.com/spf13/cobra"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Manage the Google Calendar integration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Authorize AEGIS to add events to your Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tools.AuthorizeCalendar(cmd.Context(), cfg.Integrations.Calendar, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})
	return cmd
}
