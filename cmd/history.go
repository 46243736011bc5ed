package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/replay/internal/archive"
	"github.com/jfmyers9/replay/internal/format"
	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print listening history, newest first",
	Long: `Print the user's listening history from Last.fm, newest first.

Pages of 200 tracks are fetched as they are printed, so --limit stops
requests early. Times for --from and --to may be RFC 3339
("2024-01-02T15:04:05Z"), a date ("2024-01-02") or a duration before
now ("36h", "7d").

Without --format, tracks are printed as aligned columns. With --format,
each track is rendered with a Go template. Available fields: .Artist,
.Name, .Album, .URL, .Image, .PlayedAt

With --offline, tracks are read from the database written by 'replay
export' (see --db) and Last.fm is not contacted.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("from", "", "Only tracks played at or after this time")
	historyCmd.Flags().String("to", "", "Only tracks played before this time")
	historyCmd.Flags().IntP("limit", "n", 0, "Maximum number of tracks to print (0=all)")
	historyCmd.Flags().StringP("format", "f", "", "Output format template")
	historyCmd.Flags().Bool("offline", false, "Read from the exported database instead of Last.fm")
	historyCmd.Flags().String("db", "", "SQLite database path for --offline (default: ~/.local/share/replay/history.db)")
	historyCmd.MarkFlagsMutuallyExclusive("offline", "from")
	historyCmd.MarkFlagsMutuallyExclusive("offline", "to")
}

// historyColumns are the widths of the time, artist and track columns.
var historyColumns = []int{16, 24, 32}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	var tmpl *format.Template
	if text, _ := cmd.Flags().GetString("format"); text != "" {
		var err error
		if tmpl, err = format.Parse(text); err != nil {
			return err
		}
	}

	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		return runOfflineHistory(cmd, tmpl, limit)
	}

	_, client, err := loadClient()
	if err != nil {
		return err
	}

	from, to, err := timeRangeFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stream, err := client.RecentTracks(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	defer stream.Close()

	logger.Info().Uint64("total", stream.TotalCount()).Msg("Reading history")

	out := cmd.OutOrStdout()
	printed := 0
	for track, err := range stream.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to read history after %d tracks: %w", printed, err)
		}

		line, err := historyLine(tmpl, track)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)

		printed++
		if limit > 0 && printed >= limit {
			break
		}
	}

	logger.Debug().Int("printed", printed).Msg("History done")
	return nil
}

// runOfflineHistory prints plays stored by export, newest first.
func runOfflineHistory(cmd *cobra.Command, tmpl *format.Template, limit int) error {
	dbPath, err := archivePath(cmd)
	if err != nil {
		return err
	}

	a, err := archive.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = a.Close() }()

	plays, err := a.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range plays {
		line, err := historyLine(tmpl, p.Track())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)
	}

	logger.Debug().Int("printed", len(plays)).Str("db", dbPath).Msg("Offline history done")
	return nil
}

func historyLine(tmpl *format.Template, track lastfm.RecordedTrack) (string, error) {
	if tmpl != nil {
		line, err := tmpl.Render(format.FromRecorded(track))
		if err != nil {
			return "", fmt.Errorf("failed to format output: %w", err)
		}
		return line, nil
	}
	return format.Row(historyColumns,
		track.PlayedAt.Local().Format("2006-01-02 15:04"),
		track.Artist.Name,
		track.Name,
		track.Album,
	), nil
}

// timeRangeFlags reads the --from and --to flags. Unset flags are nil.
func timeRangeFlags(cmd *cobra.Command, now time.Time) (from, to *time.Time, err error) {
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &from},
		{"to", &to},
	} {
		value, _ := cmd.Flags().GetString(f.name)
		if value == "" {
			continue
		}
		t, err := parseTime(value, now)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --%s: %w", f.name, err)
		}
		*f.dst = &t
	}

	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("--from (%s) must be before --to (%s)", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}

// parseTime accepts RFC 3339, a local date, or a duration before now.
// Durations may use a "d" suffix for days.
func parseTime(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return t, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("unrecognized time %q", value)
		}
		return now.AddDate(0, 0, -n), nil
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}
