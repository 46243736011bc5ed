package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jfmyers9/replay/internal/archive"
	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/spf13/cobra"
)

// exportBatchSize is the number of tracks written per transaction. It
// matches the page size so each fetched page is committed once.
const exportBatchSize = 200

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy listening history into a SQLite database",
	Long: `Copy the user's listening history from Last.fm into a local SQLite
database (default: ~/.local/share/replay/history.db).

Plays already in the database are skipped, so exports can be repeated.

  --since-last  only fetch plays newer than the newest stored play
  --resume      continue a full export from the oldest stored play

Each batch of 200 tracks is committed as it is fetched, so an interrupted
export keeps what it wrote and can be continued with --resume.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("db", "", "SQLite database path (default: ~/.local/share/replay/history.db)")
	exportCmd.Flags().String("from", "", "Only tracks played at or after this time")
	exportCmd.Flags().String("to", "", "Only tracks played before this time")
	exportCmd.Flags().Bool("since-last", false, "Only export plays newer than the newest stored play")
	exportCmd.Flags().Bool("resume", false, "Continue from the oldest stored play")
	exportCmd.MarkFlagsMutuallyExclusive("since-last", "resume")
}

func runExport(cmd *cobra.Command, args []string) error {
	_, client, err := loadClient()
	if err != nil {
		return err
	}

	dbPath, err := archivePath(cmd)
	if err != nil {
		return err
	}

	from, to, err := timeRangeFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logger.With().Str("component", "export").Str("db", dbPath).Logger()

	a, err := archive.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = a.Close() }()

	if sinceLast, _ := cmd.Flags().GetBool("since-last"); sinceLast {
		latest, ok, err := a.Latest(ctx)
		if err != nil {
			return err
		}
		if ok {
			next := latest.Add(time.Second)
			from = &next
			log.Info().Time("from", next).Msg("Exporting plays since last export")
		}
	}

	if resume, _ := cmd.Flags().GetBool("resume"); resume {
		oldest, err := a.Oldest(ctx)
		switch {
		case errors.Is(err, archive.ErrNoPlays):
			// Nothing stored yet: a full export
		case err != nil:
			return err
		default:
			to = &oldest.PlayedAt
			log.Info().Time("to", oldest.PlayedAt).Msg("Resuming export")
		}
	}

	stream, err := client.RecentTracks(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	defer stream.Close()

	log.Info().Uint64("total", stream.TotalCount()).Msg("Starting export")

	read, added, err := exportStream(ctx, a, stream)
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d new plays (%d read) to %s\n", added, read, dbPath)
	if err != nil {
		return err
	}

	log.Info().Int("read", read).Int("added", added).Msg("Export complete")
	return nil
}

// archivePath returns the --db flag, or history.db in the data directory.
func archivePath(cmd *cobra.Command) (string, error) {
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		return dbPath, nil
	}
	dataDir := config.GetDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, "history.db"), nil
}

// exportStream drains stream into a, committing in batches. It returns
// the number of tracks read and the number newly stored.
func exportStream(ctx context.Context, a *archive.Archive, stream *lastfm.HistoryStream) (read, added int, err error) {
	batch := make([]lastfm.RecordedTrack, 0, exportBatchSize)

	// Tracks already read are written even if ctx was cancelled
	flush := func() error {
		n, err := a.AddBatch(context.WithoutCancel(ctx), batch)
		if err != nil {
			return err
		}
		added += n
		batch = batch[:0]
		logger.Debug().Int("read", read).Int("added", added).Msg("Export progress")
		return nil
	}

	for track, err := range stream.All(ctx) {
		if err != nil {
			if flushErr := flush(); flushErr != nil {
				return read, added, flushErr
			}
			return read, added, fmt.Errorf("failed to read history after %d tracks: %w", read, err)
		}

		batch = append(batch, track)
		read++
		if len(batch) == exportBatchSize {
			if err := flush(); err != nil {
				return read, added, err
			}
		}
	}

	if err := flush(); err != nil {
		return read, added, err
	}
	return read, added, nil
}
