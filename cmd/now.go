package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/jfmyers9/replay/internal/format"
	"github.com/spf13/cobra"
)

// errNothingPlaying makes the process exit with code 1 without printing.
var errNothingPlaying = errors.New("nothing playing")

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the track currently playing on Last.fm",
	Long: `Query Last.fm and display the track the user is currently playing.

The output format can be customized in ~/.config/replay/config.yaml
using a Go template. Available fields: .Artist, .Name, .Album, .URL, .Image

Exit codes:
  0 - Track is currently playing
  1 - No track playing, or the request failed`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	// Add marquee flag to enable scrolling
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

func runNow(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}

	// Check for format flag override
	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}
	tmpl, err := format.Parse(cfg.OutputFormat)
	if err != nil {
		return err
	}

	track, err := client.NowPlaying(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get now playing track: %w", err)
	}
	if track == nil {
		return errNothingPlaying
	}

	output, err := tmpl.Render(format.FromNowPlaying(*track))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	// Apply width padding/marquee if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	marquee := cfg.MarqueeEnabled
	if cmd.Flags().Changed("marquee") {
		marquee, _ = cmd.Flags().GetBool("marquee")
	}

	if width > 0 {
		if marquee {
			output = format.Marquee(output, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
		} else {
			output = format.PadToWidth(output, width)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
