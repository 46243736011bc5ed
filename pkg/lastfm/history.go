package lastfm

import (
	"context"
	"errors"
	"iter"
)

// HistoryStream is a forward-only sequence of a user's recorded tracks,
// newest first. Pages are fetched lazily, each one ending just before the
// oldest record of the previous page.
//
// A HistoryStream must be used from a single goroutine.
//
// Example:
//
//	stream, err := client.AllTracks(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Close()
//
//	for {
//	    track, err := stream.Next(ctx)
//	    if errors.Is(err, lastfm.ErrEndOfHistory) {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(track.PlayedAt, track.Name)
//	}
type HistoryStream struct {
	client *Client
	from   *int64
	to     *int64 // cursor: upper bound of the next fetch

	// buffer holds not yet yielded records, oldest first, so the tail is
	// always the newest.
	buffer []RecordedTrack
	total  uint64
	err    error // terminal error; ErrEndOfHistory on normal end
}

func newHistoryStream(c *Client, q pageQuery, first *Page) *HistoryStream {
	s := &HistoryStream{
		client: c,
		from:   q.from,
		to:     q.to,
		total:  first.TotalCount,
	}
	s.fill(first)
	if len(s.buffer) == 0 {
		s.err = ErrEndOfHistory
	}
	return s
}

// TotalCount returns the number of records Last.fm reported on the first
// page. It is informational: the number of records actually yielded may
// differ if history changes while streaming.
func (s *HistoryStream) TotalCount() uint64 {
	return s.total
}

// Next returns the next record. It returns ErrEndOfHistory once the
// history is exhausted. Any other error is terminal: every later call
// returns the same error without making requests.
//
// A cancelled ctx makes Next return an error wrapping ctx.Err() without
// poisoning the stream, so it can be resumed with a fresh context.
func (s *HistoryStream) Next(ctx context.Context) (RecordedTrack, error) {
	if s.err != nil {
		return RecordedTrack{}, s.err
	}
	if err := ctx.Err(); err != nil {
		return RecordedTrack{}, err
	}

	if len(s.buffer) == 0 {
		if err := s.refill(ctx); err != nil {
			return RecordedTrack{}, err
		}
	}

	last := len(s.buffer) - 1
	t := s.buffer[last]
	s.buffer[last] = RecordedTrack{}
	s.buffer = s.buffer[:last]
	return t, nil
}

// refill fetches the page before the cursor. On return either the buffer is
// non-empty or an error is set.
func (s *HistoryStream) refill(ctx context.Context) error {
	page, err := s.client.fetchPage(ctx, pageQuery{
		limit: historyPageSize,
		from:  s.from,
		to:    s.to,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		s.err = err
		return err
	}

	if len(page.Tracks) == 0 {
		s.err = ErrEndOfHistory
		return s.err
	}

	s.fill(page)
	if len(s.buffer) == 0 {
		// Only a now playing element: the cursor cannot move.
		s.err = ErrEndOfHistory
		return s.err
	}
	return nil
}

// fill replaces the buffer with the recorded tracks of page and moves the
// cursor to the oldest of them.
func (s *HistoryStream) fill(page *Page) {
	recorded := page.Recorded()
	buf := make([]RecordedTrack, len(recorded))
	for i, t := range recorded {
		buf[len(recorded)-1-i] = t
	}
	s.buffer = buf

	if len(recorded) > 0 {
		oldest := recorded[len(recorded)-1].PlayedAt.Unix()
		s.to = &oldest
	}
}

// Buffered returns the number of records held in memory.
func (s *HistoryStream) Buffered() int {
	return len(s.buffer)
}

// Close releases the buffer. Later calls to Next return ErrStreamClosed.
func (s *HistoryStream) Close() error {
	s.buffer = nil
	if s.err == nil || errors.Is(s.err, ErrEndOfHistory) {
		s.err = ErrStreamClosed
	}
	return nil
}

// All returns an iterator over the remaining records. Iteration ends
// after the last record, or after yielding a non-nil error. Breaking out
// of the loop stops any further requests.
func (s *HistoryStream) All(ctx context.Context) iter.Seq2[RecordedTrack, error] {
	return func(yield func(RecordedTrack, error) bool) {
		for {
			t, err := s.Next(ctx)
			if errors.Is(err, ErrEndOfHistory) {
				return
			}
			if err != nil {
				yield(RecordedTrack{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}
