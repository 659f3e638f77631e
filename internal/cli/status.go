package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/llm"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show AEGIS status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "AEGIS %s (commit %s)\n\n", version.Version, version.Commit)

			// Paths
			if _, err := os.Stat(paths.Config); err != nil {
				fmt.Fprintf(out, "Config:   %s (not found, using defaults)\n", paths.Config)
			} else {
				fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			}
			fmt.Fprintf(out, "Logs:     %s\n", paths.Logs)

			// Database
			dbPath := paths.DatabasePath(cfg)
			db, err := store.Open(dbPath, log)
			if err != nil {
				fmt.Fprintf(out, "Database: %s (error: %v)\n", dbPath, err)
			} else {
				v, verr := db.Version()
				st, serr := db.Stats(cmd.Context())
				db.Close()
				if verr != nil {
					fmt.Fprintf(out, "Database: %s (error: %v)\n", dbPath, verr)
				} else {
					fmt.Fprintf(out, "Database: %s (schema v%d)\n", dbPath, v)
				}
				if serr == nil {
					fmt.Fprintf(out, "          patients=%d records=%d vitals=%d threads=%d emergencies=%d\n",
						st.Patients, st.Records, st.Vitals, st.Conversations, st.EmergencyEvents)
				}
			}
			fmt.Fprintln(out)

			// LLM providers
			registry := llm.NewRegistryFromConfig(cfg.LLM, log)
			providers := registry.List()
			fmt.Fprintf(out, "LLM:      provider=%s model=%s\n", cfg.LLM.Provider, orUnset(cfg.LLM.Model))
			if len(providers) > 0 {
				fmt.Fprintf(out, "          available: %s\n", strings.Join(providers, ", "))
			} else {
				fmt.Fprintln(out, "          available: (none, answers will be placeholders)")
			}

			// Agent
			a := cfg.Agent
			fmt.Fprintf(out, "Agent:    name=%s maxIterations=%d window=%d/%d\n",
				orUnset(a.AssistantName), a.MaxIterations, a.MaxWindowSize, a.PreserveRecent)
			fmt.Fprintln(out)

			// Integrations
			in := cfg.Integrations
			fmt.Fprintf(out, "Twilio:   %s\n", mode(in.Twilio.Configured()))
			fmt.Fprintf(out, "Maps:     %s\n", mode(in.Maps.APIKey != ""))
			fmt.Fprintf(out, "Calendar: %s\n", mode(in.Calendar.CredentialsFile != "" && fileExists(in.Calendar.TokenFile)))
			fmt.Fprintf(out, "Habitica: %s\n", mode(in.Habitica.UserID != "" && in.Habitica.APIToken != ""))
			if in.MQTT.Broker != "" {
				fmt.Fprintf(out, "MQTT:     %s (escalation=%v)\n", in.MQTT.Broker, in.Emergency.AutoEscalate)
			} else {
				fmt.Fprintf(out, "MQTT:     (not configured, escalation=%v)\n", in.Emergency.AutoEscalate)
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - [%s] %s\n", issue.Severity, issue)
				}
			}

			return nil
		},
	}

	return cmd
}

func mode(live bool) string {
	if live {
		return "live"
	}
	return "simulation"
}

func orUnset(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
