package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// playedAt returns a copy of the recorded fixture named name and played at uts.
func playedAt(name string, uts int64) string {
	s := strings.Replace(recordedTrackJSON, `"uts": "1676284092"`, `"uts": "`+strconv.FormatInt(uts, 10)+`"`, 1)
	return strings.Replace(s, `"name": "Reckoner"`, `"name": "`+name+`"`, 1)
}

// historyServer serves responses in order and records each request's query.
type historyServer struct {
	t         *testing.T
	mu        sync.Mutex
	responses []string
	queries   []url.Values
}

func newHistoryServer(t *testing.T, responses ...string) (*historyServer, *httptest.Server) {
	t.Helper()
	hs := &historyServer{t: t, responses: responses}
	server := httptest.NewServer(hs)
	t.Cleanup(server.Close)
	return hs, server
}

func (hs *historyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	n := len(hs.queries)
	hs.queries = append(hs.queries, r.URL.Query())
	if n >= len(hs.responses) {
		hs.t.Errorf("unexpected request %d: %s", n, r.URL.RawQuery)
		http.Error(w, "unexpected", http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(hs.responses[n]))
}

func (hs *historyServer) calls() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.queries)
}

func (hs *historyServer) query(i int) url.Values {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return hs.queries[i]
}

func TestHistoryStream_YieldsPageBeforeNextFetch(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("3",
			nowPlayingTrackJSON,
			playedAt("third", 1700000300),
			playedAt("second", 1700000200),
			playedAt("first", 1700000100),
		),
		pageJSON("3"),
	)
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.TotalCount() != 3 {
		t.Errorf("expected total 3, got %d", stream.TotalCount())
	}
	if stream.Buffered() != 3 {
		t.Errorf("expected 3 buffered records, got %d", stream.Buffered())
	}

	for _, want := range []string{"third", "second", "first"} {
		track, err := stream.Next(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track.Name != want {
			t.Errorf("expected %q, got %q", want, track.Name)
		}
	}
	if got := hs.calls(); got != 1 {
		t.Fatalf("expected 1 request before the buffer is drained, got %d", got)
	}

	if _, err := stream.Next(ctx); !errors.Is(err, ErrEndOfHistory) {
		t.Fatalf("expected ErrEndOfHistory, got %v", err)
	}
	if got := hs.calls(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	if to := hs.query(1).Get("to"); to != "1700000100" {
		t.Errorf("expected cursor at the oldest record, got to=%q", to)
	}

	// Exhausted streams make no further requests.
	for i := 0; i < 3; i++ {
		if _, err := stream.Next(ctx); !errors.Is(err, ErrEndOfHistory) {
			t.Fatalf("expected ErrEndOfHistory, got %v", err)
		}
	}
	if got := hs.calls(); got != 2 {
		t.Errorf("expected no more requests, got %d", got)
	}
}

func TestHistoryStream_WalksPages(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("4", playedAt("d", 400), playedAt("c", 300)),
		pageJSON("4", playedAt("b", 200), playedAt("a", 100)),
		pageJSON("4"),
	)
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	from := time.Unix(50, 0)
	stream, err := client.RecentTracks(ctx, &from, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	var times []int64
	for track, err := range stream.All(ctx) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, track.Name)
		times = append(times, track.PlayedAt.Unix())
	}

	if got := strings.Join(names, ","); got != "d,c,b,a" {
		t.Errorf("expected d,c,b,a, got %s", got)
	}
	for i := 1; i < len(times); i++ {
		if times[i] > times[i-1] {
			t.Errorf("records out of order: %v", times)
		}
	}

	wantTo := []string{"", "300", "100"}
	for i, want := range wantTo {
		q := hs.query(i)
		if got := q.Get("to"); got != want {
			t.Errorf("request %d: expected to=%q, got %q", i, want, got)
		}
		if got := q.Get("from"); got != "50" {
			t.Errorf("request %d: expected from=50, got %q", i, got)
		}
		if got := q.Get("limit"); got != "200" {
			t.Errorf("request %d: expected limit=200, got %q", i, got)
		}
	}
}

func TestHistoryStream_EmptyFirstPage(t *testing.T) {
	hs, server := newHistoryServer(t, pageJSON("0"))
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.TotalCount() != 0 {
		t.Errorf("expected total 0, got %d", stream.TotalCount())
	}
	if _, err := stream.Next(ctx); !errors.Is(err, ErrEndOfHistory) {
		t.Errorf("expected ErrEndOfHistory, got %v", err)
	}
	if got := hs.calls(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestHistoryStream_OnlyNowPlaying(t *testing.T) {
	hs, server := newHistoryServer(t, pageJSON("0", nowPlayingTrackJSON))
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Next(ctx); !errors.Is(err, ErrEndOfHistory) {
		t.Errorf("expected ErrEndOfHistory, got %v", err)
	}
	if got := hs.calls(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestHistoryStream_ErrorIsTerminal(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("2", playedAt("b", 200)),
		`{"error": 6, "message": "User not found"}`,
	)
	client := newTestClient(t, server, fastRetry(5))
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Next(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = stream.Next(ctx)
	if !errors.Is(err, &Error{Code: ErrCodeInvalidParameters}) {
		t.Fatalf("expected invalid parameters error, got %v", err)
	}

	_, again := stream.Next(ctx)
	if again != err {
		t.Errorf("expected the same terminal error, got %v", again)
	}
	if got := hs.calls(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestHistoryStream_FirstPageError(t *testing.T) {
	_, server := newHistoryServer(t, `{"error": 10, "message": "Invalid API key"}`)
	client := newTestClient(t, server, NoRetry)

	stream, err := client.AllTracks(context.Background())
	if stream != nil {
		t.Error("expected no stream")
	}
	if !errors.Is(err, &Error{Code: ErrCodeInvalidAPIKey}) {
		t.Errorf("expected invalid api key error, got %v", err)
	}
}

func TestHistoryStream_CancelledContext(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("2", playedAt("b", 200)),
		pageJSON("2", playedAt("a", 100)),
		pageJSON("2"),
	)
	client := newTestClient(t, server, NoRetry)

	stream, err := client.AllTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stream.Next(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := hs.calls(); got != 1 {
		t.Errorf("expected no request with a cancelled context, got %d", got)
	}

	// The stream resumes with a live context.
	var names []string
	for track, err := range stream.All(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, track.Name)
	}
	if got := strings.Join(names, ","); got != "b,a" {
		t.Errorf("expected b,a, got %s", got)
	}
}

func TestHistoryStream_BreakStopsFetching(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("4", playedAt("d", 400), playedAt("c", 300)),
	)
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count := 0
	for _, err := range stream.All(ctx) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if got := hs.calls(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestHistoryStream_Close(t *testing.T) {
	hs, server := newHistoryServer(t,
		pageJSON("2", playedAt("b", 200), playedAt("a", 100)),
	)
	client := newTestClient(t, server, NoRetry)
	ctx := context.Background()

	stream, err := client.AllTracks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if stream.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d", stream.Buffered())
	}
	if _, err := stream.Next(ctx); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed, got %v", err)
	}
	if got := hs.calls(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}
