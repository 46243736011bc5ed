package lastfm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Version is the library version reported in the default user agent.
const Version = "0.3.0"

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultUserAgent is sent with every request unless Config.UserAgent
	// is set.
	DefaultUserAgent = "replay/" + Version

	// APIKeyEnv is the environment variable read by NewClientFromEnv.
	APIKeyEnv = "LASTFM_API_KEY"

	// historyPageSize is the page size used while streaming history. It is
	// the maximum Last.fm accepts for user.getRecentTracks.
	historyPageSize = 200

	maxPageSize = 1000
)

// Config holds client configuration.
type Config struct {
	APIKey        string        // Required: Last.fm API key
	Username      string        // Required: user whose history is read
	BaseURL       string        // Optional: Base URL for API (defaults to Last.fm API, used for testing)
	HTTPClient    *http.Client  // Optional: HTTP client (defaults to DefaultHTTPClient())
	RetryStrategy RetryStrategy // Optional: defaults to JitteredBackoff with 5 attempts
	UserAgent     string        // Optional: defaults to DefaultUserAgent
	Logger        Logger        // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client reads a user's listening history from Last.fm.
//
// A Client is immutable after construction and safe for concurrent use.
type Client struct {
	apiKey     string
	username   string
	httpClient *http.Client
	baseURL    *url.URL
	retry      RetryStrategy
	userAgent  string
	logger     Logger
}

// DefaultHTTPClient returns a new HTTP client with 10 second connect and
// request timeouts. Build it once and share it between clients to reuse
// connections.
func DefaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

// NewClient creates a new Last.fm API client.
//
// Returns an error if required configuration (APIKey, Username) is missing
// or BaseURL cannot be parsed.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("%w: Username is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}

	rawURL := cfg.BaseURL
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid BaseURL: %v", ErrInvalidConfig, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: BaseURL %q must be absolute", ErrInvalidConfig, rawURL)
	}

	retry := cfg.RetryStrategy
	if retry == nil {
		retry = DefaultRetryStrategy()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		apiKey:     cfg.APIKey,
		username:   cfg.Username,
		httpClient: httpClient,
		baseURL:    baseURL,
		retry:      retry,
		userAgent:  userAgent,
		logger:     cfg.Logger,
	}, nil
}

// NewClientFromEnv creates a client for username with the API key read
// from the LASTFM_API_KEY environment variable.
//
// Returns ErrMissingCredential if the variable is unset or empty.
func NewClientFromEnv(username string, opts ...func(*Config)) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv(APIKeyEnv))
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	cfg := Config{APIKey: apiKey, Username: username}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

// MustNewClientFromEnv is like NewClientFromEnv but panics on error.
// It is intended for program start-up.
func MustNewClientFromEnv(username string, opts ...func(*Config)) *Client {
	c, err := NewClientFromEnv(username, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Username returns the user whose history the client reads.
func (c *Client) Username() string {
	return c.username
}

// String describes the client with the API key masked.
func (c *Client) String() string {
	return fmt.Sprintf("lastfm.Client{username: %q, api_key: %q, base_url: %q}",
		c.username, MaskAPIKey(c.apiKey), c.baseURL.String())
}

// NowPlaying returns the track the user is currently listening to, or nil
// if nothing is playing.
//
// Example:
//
//	track, err := client.NowPlaying(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if track != nil {
//	    fmt.Printf("Now playing: %s - %s\n", track.Artist.Name, track.Name)
//	}
func (c *Client) NowPlaying(ctx context.Context) (*NowPlayingTrack, error) {
	page, err := c.fetchPage(ctx, pageQuery{limit: 1})
	if err != nil {
		return nil, err
	}

	np, ok := page.NowPlaying()
	if !ok {
		return nil, nil
	}
	return &np, nil
}

// AllTracks returns a stream over the user's entire listening history,
// newest first.
func (c *Client) AllTracks(ctx context.Context) (*HistoryStream, error) {
	return c.RecentTracks(ctx, nil, nil)
}

// RecentTracks returns a stream over the user's listening history between
// from and to, newest first. Either bound may be nil.
//
// The first page is fetched before RecentTracks returns, so the total
// number of records is known up front:
//
//	stream, err := client.RecentTracks(ctx, &since, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Total tracks:", stream.TotalCount())
//	for track, err := range stream.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(track.PlayedAt, track.Artist.Name, track.Name)
//	}
func (c *Client) RecentTracks(ctx context.Context, from, to *time.Time) (*HistoryStream, error) {
	q := pageQuery{
		limit: historyPageSize,
		from:  unixPtr(from),
		to:    unixPtr(to),
	}

	page, err := c.fetchPage(ctx, q)
	if err != nil {
		return nil, err
	}

	return newHistoryStream(c, q, page), nil
}

// PageOptions selects a single page of recent tracks.
type PageOptions struct {
	Limit int        // 1 to 1000; 0 selects 50
	From  *time.Time // Optional lower bound
	To    *time.Time // Optional upper bound
}

// Page fetches a single page of recent tracks. The page may start with a
// NowPlayingTrack.
func (c *Client) Page(ctx context.Context, opts PageOptions) (*Page, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > maxPageSize:
		limit = maxPageSize
	}
	return c.fetchPage(ctx, pageQuery{
		limit: limit,
		from:  unixPtr(opts.From),
		to:    unixPtr(opts.To),
	})
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	secs := t.Unix()
	return &secs
}

// MaskAPIKey replaces all but the first three characters with '*'.
func MaskAPIKey(key string) string {
	runes := []rune(key)
	for i := 3; i < len(runes); i++ {
		runes[i] = '*'
	}
	return string(runes)
}
