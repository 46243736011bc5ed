package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/replay/internal/format"
	"github.com/jfmyers9/replay/internal/watch"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the playing track whenever it changes",
	Long: `Poll Last.fm and print a line each time the playing track changes.

Runs in the foreground until interrupted with Ctrl-C. Failed polls are
logged and polling continues; a temporary Last.fm error is retried
within a poll first.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	watchCmd.Flags().Duration("interval", 0, "Poll interval (overrides config poll_interval)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	tmpl, err := format.Parse(cfg.OutputFormat)
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.PollDuration()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	poller := watch.NewPoller(client, interval, logger)
	updates := make(chan watch.TrackUpdate)
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, updates)
	}()

	out := cmd.OutOrStdout()
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case u := <-updates:
			if u.Err != nil {
				// Already logged by the poller
				continue
			}
			if u.Track == nil {
				fmt.Fprintf(out, "%s  (stopped)\n", time.Now().Format("15:04:05"))
				continue
			}
			line, err := tmpl.Render(format.FromNowPlaying(*u.Track))
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Fprintf(out, "%s  %s\n", time.Now().Format("15:04:05"), line)
		}
	}
}
