package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Save Last.fm API credentials",
	Long: `Save the Last.fm API key and username to the config file.

This command will:
1. Prompt for your Last.fm API key and username (or take them from flags)
2. Check them against Last.fm with a single request
3. Save them to ~/.config/replay/config.yaml

You can get an API key from: https://www.last.fm/api/account/create`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().String("api-key", "", "Last.fm API key")
	authCmd.Flags().String("username", "", "Last.fm username")
	authCmd.Flags().Bool("no-verify", false, "Save without checking the credentials")
}

func runAuth(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(out, "Last.fm Credentials")
	fmt.Fprintln(out, "===================")
	fmt.Fprintln(out)

	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		if apiKey, err = prompt(reader, out, "Enter your Last.fm API Key", cfg.LastFM.APIKey, true); err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
	}

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		if username, err = prompt(reader, out, "Enter your Last.fm username", cfg.LastFM.Username, false); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	cfg.LastFM.APIKey = apiKey
	cfg.LastFM.Username = username
	if err := cfg.Validate(); err != nil {
		return err
	}

	if noVerify, _ := cmd.Flags().GetBool("no-verify"); !noVerify {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "\nChecking credentials...")
		if _, err := client.Page(cmd.Context(), lastfm.PageOptions{Limit: 1}); err != nil {
			var lastfmErr *lastfm.Error
			if errors.As(err, &lastfmErr) {
				return fmt.Errorf("Last.fm rejected the credentials: %s", lastfmErr.Message)
			}
			return fmt.Errorf("failed to check credentials: %w", err)
		}
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Credentials saved to %s/config.yaml\n", config.GetConfigDir())
	fmt.Fprintln(out, "\nYou can now use 'replay now' or 'replay history'.")
	return nil
}

// prompt asks for a value, offering current as the default.
func prompt(reader *bufio.Reader, out io.Writer, label, current string, secret bool) (string, error) {
	if current != "" {
		shown := current
		if secret {
			shown = lastfm.MaskAPIKey(current)
		}
		fmt.Fprintf(out, "%s [%s]: ", label, shown)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	// A last line without a newline still counts
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	value := strings.TrimSpace(line)
	if value == "" {
		return current, nil
	}
	return value, nil
}
