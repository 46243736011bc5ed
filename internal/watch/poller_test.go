package watch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/rs/zerolog"
)

var _ Source = (*lastfm.Client)(nil)

type result struct {
	track *lastfm.NowPlayingTrack
	err   error
}

// scriptedSource returns results in order, then repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func (s *scriptedSource) NowPlaying(ctx context.Context) (*lastfm.NowPlayingTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].track, s.results[i].err
}

func playing(artist, name string) *lastfm.NowPlayingTrack {
	return &lastfm.NowPlayingTrack{Artist: lastfm.Artist{Name: artist}, Name: name}
}

// collect runs p until n updates arrive or the timeout expires.
func collect(t *testing.T, p *Poller, n int) []TrackUpdate {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan TrackUpdate)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, updates) }()

	var got []TrackUpdate
	for len(got) < n {
		select {
		case u := <-updates:
			got = append(got, u)
		case <-ctx.Done():
			t.Fatalf("timed out after %d updates", len(got))
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Run, got %v", err)
	}
	return got
}

func TestPoller_SendsChangesOnly(t *testing.T) {
	boom := errors.New("boom")
	source := &scriptedSource{results: []result{
		{track: playing("Bonobo", "Kerala")},
		{track: playing("Bonobo", "Kerala")},
		{track: nil},
		{track: nil},
		{err: boom},
		{track: playing("Four Tet", "Baby")},
	}}

	p := NewPoller(source, time.Millisecond, zerolog.New(io.Discard))
	got := collect(t, p, 4)

	if got[0].Track == nil || got[0].Track.Name != "Kerala" {
		t.Errorf("update 0: expected Kerala, got %+v", got[0])
	}
	if got[1].Track != nil || got[1].Err != nil {
		t.Errorf("update 1: expected playback stopped, got %+v", got[1])
	}
	if !errors.Is(got[2].Err, boom) {
		t.Errorf("update 2: expected error, got %+v", got[2])
	}
	if got[3].Track == nil || got[3].Track.Name != "Baby" {
		t.Errorf("update 3: expected Baby, got %+v", got[3])
	}
}

func TestPoller_FirstPollAlwaysSent(t *testing.T) {
	source := &scriptedSource{results: []result{{track: nil}}}

	p := NewPoller(source, time.Hour, zerolog.New(io.Discard))
	got := collect(t, p, 1)

	if got[0].Track != nil || got[0].Err != nil {
		t.Errorf("expected an empty update, got %+v", got[0])
	}
}

func TestPoller_WithClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"recenttracks": {"@attr": {"total": "1"}, "track": [{
			"artist": {"name": "Bonobo", "url": "https://www.last.fm/music/Bonobo", "image": []},
			"name": "Kerala",
			"image": [],
			"album": {"#text": "Migration"},
			"url": "https://www.last.fm/music/Bonobo/_/Kerala",
			"@attr": {"nowplaying": "true"}
		}]}}`))
	}))
	defer server.Close()

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:        "test-api-key",
		Username:      "rj",
		BaseURL:       server.URL,
		RetryStrategy: lastfm.NoRetry,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	p := NewPoller(client, time.Hour, zerolog.New(io.Discard))
	got := collect(t, p, 1)

	if got[0].Err != nil {
		t.Fatalf("unexpected error: %v", got[0].Err)
	}
	if got[0].Track == nil || got[0].Track.Album != "Migration" {
		t.Errorf("expected Kerala from Migration, got %+v", got[0].Track)
	}
}
