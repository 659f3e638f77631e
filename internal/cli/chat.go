package cli

import (
	"bufio"
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/agent"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/spf13/cobra"
)

type turnFlags struct {
	thread string
	user   int64
	lat    float64
	lon    float64
}

func (f *turnFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.thread, "thread", "", "conversation thread ID (default: new thread)")
	cmd.Flags().Int64Var(&f.user, "user", 0, "patient user ID (default from agent.defaultUserId)")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "current latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "current longitude")
}

func (f *turnFlags) request(msg string) agent.Request {
	return agent.Request{
		ThreadID: f.thread,
		UserID:   f.user,
		Message:  msg,
		Location: domain.Location{Lat: f.lat, Lon: f.lon},
	}
}

func newAskCmd() *cobra.Command {
	var flags turnFlags
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run one conversation turn and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openAgent(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.runner.Run(ctx, flags.request(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Answer)
			fmt.Fprintf(out, "\n(thread %s, %d step(s), %s)\n", res.ThreadID, res.Iterations, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newChatCmd() *cobra.Command {
	var flags turnFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "Reads messages from stdin, one per line, until EOF or \"exit\". Every turn is persisted to the thread.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openAgent(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			return chat(ctx, rt.runner, &flags, cmd)
		},
	}
	flags.register(cmd)
	return cmd
}

func chat(ctx context.Context, runner *agent.Runner, flags *turnFlags, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out, "AEGIS chat. Type \"exit\" to quit.")
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		res, err := runner.Run(ctx, flags.request(line))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		flags.thread = res.ThreadID
		fmt.Fprintf(out, "aegis> %s\n", res.Answer)
	}
	if flags.thread != "" {
		fmt.Fprintf(out, "thread: %s\n", flags.thread)
	}
	return scanner.Err()
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <thread-id>",
		Short: "Print the messages of a persisted thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openAgent(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			msgs, err := rt.runner.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return fmt.Errorf("thread not found: %s", args[0])
			}
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Text)
			}
			return nil
		},
	}
}
