package cmd

import (
	"fmt"

	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/pkg/lastfm"
)

// loadClient loads configuration and builds a Last.fm client from it.
func loadClient() (*config.Config, *lastfm.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// newClient builds a Last.fm client from configuration.
func newClient(cfg *config.Config) (*lastfm.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := lastfm.DefaultHTTPClient()
	httpClient.Timeout = cfg.Timeout()

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:        cfg.LastFM.APIKey,
		Username:      cfg.LastFM.Username,
		BaseURL:       cfg.LastFM.BaseURL,
		HTTPClient:    httpClient,
		RetryStrategy: lastfm.NewJitteredBackoff(cfg.MaxRetries),
		Logger:        zerologAdapter{logger: logger.With().Str("component", "lastfm").Logger()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	logger.Debug().Stringer("client", client).Msg("Created Last.fm client")
	return client, nil
}
