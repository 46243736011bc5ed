// Package watch polls Last.fm for the track a user is currently playing.
package watch

import (
	"context"
	"time"

	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/rs/zerolog"
)

// Source reports the track currently playing. *lastfm.Client implements it.
type Source interface {
	NowPlaying(ctx context.Context) (*lastfm.NowPlayingTrack, error)
}

// TrackUpdate represents a change in what the user is playing
type TrackUpdate struct {
	Track *lastfm.NowPlayingTrack // Current track (nil if nothing is playing)
	Err   error                   // Error from Last.fm
}

// Poller polls a Source at regular intervals
type Poller struct {
	source   Source
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(source Source, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("component", "watch").Logger(),
	}
}

// Run starts the polling loop and sends an update whenever the playing
// track changes, and on every error. Blocks until context is cancelled.
func (p *Poller) Run(ctx context.Context, updates chan<- TrackUpdate) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last trackKey
	first := true

	poll := func() {
		track, err := p.source.NowPlaying(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn().Err(err).Msg("Error getting now playing track")
			p.send(ctx, updates, TrackUpdate{Err: err})
			return
		}

		key := keyOf(track)
		if !first && key == last {
			return
		}
		first = false
		last = key

		if track != nil {
			p.logger.Debug().
				Str("track", track.Name).
				Str("artist", track.Artist.Name).
				Msg("Track changed")
		} else {
			p.logger.Debug().Msg("Playback stopped")
		}
		p.send(ctx, updates, TrackUpdate{Track: track})
	}

	// Poll immediately on start
	poll()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}

func (p *Poller) send(ctx context.Context, updates chan<- TrackUpdate, u TrackUpdate) {
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

// trackKey identifies a now playing track across polls. The zero value
// means nothing is playing.
type trackKey struct {
	artist, name, album string
}

func keyOf(t *lastfm.NowPlayingTrack) trackKey {
	if t == nil {
		return trackKey{}
	}
	return trackKey{artist: t.Artist.Name, name: t.Name, album: t.Album}
}
