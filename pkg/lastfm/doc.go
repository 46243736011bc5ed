// Package lastfm provides a client for reading listening history from the
// Last.fm API 2.0.
//
// # Overview
//
// This package covers two read operations of user.getRecentTracks: the
// track a user is currently playing, and the user's full (or time bounded)
// listening history exposed as a lazily fetched stream. It provides
// context support, structured errors and a pluggable retry strategy.
//
// # Installation
//
//	go get github.com/jfmyers9/replay/pkg/lastfm
//
// # Quick Start
//
// Create a client with your API key and the user to read:
//
//	import "github.com/jfmyers9/replay/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:   "your-api-key",
//	    Username: "rj",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or read the API key from the LASTFM_API_KEY environment variable:
//
//	client, err := lastfm.NewClientFromEnv("rj")
//	if errors.Is(err, lastfm.ErrMissingCredential) {
//	    log.Fatal("set LASTFM_API_KEY")
//	}
//
// # Now Playing
//
//	track, err := client.NowPlaying(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if track != nil {
//	    fmt.Printf("Now playing: %s - %s\n", track.Artist.Name, track.Name)
//	}
//
// # History
//
// History is read newest first, 200 records per request. Each request
// asks for records older than the oldest record already seen, so pages
// are fetched strictly one after the other and only when the previous
// one has been consumed:
//
//	stream, err := client.AllTracks(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Total tracks:", stream.TotalCount())
//
//	for track, err := range stream.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("%s: %s - %s\n", track.PlayedAt.Format(time.RFC1123), track.Artist.Name, track.Name)
//	}
//
// The now playing track never appears in the stream.
//
// # Error Handling
//
// Errors returned by Last.fm are *Error values. Codes 11, 16 and 29 are
// temporary and retried; every other code fails the call immediately:
//
//	_, err := client.NowPlaying(ctx)
//	var lastfmErr *lastfm.Error
//	if errors.As(err, &lastfmErr) && lastfmErr.Code == lastfm.ErrCodeInvalidAPIKey {
//	    log.Fatal("bad API key")
//	}
//
// Network failures are *TransportError values. When the retry strategy
// gives up, a *TooManyRetriesError carrying every attempt's error is
// returned. Responses that cannot be decoded produce a *MalformedPageError
// wrapping a *MissingFieldError, *MalformedFieldError or
// *InvalidTimestampError, and are never retried.
//
// # Retries
//
// The default strategy is JitteredBackoff with five attempts. Any type
// with a RetryAfter method can replace it:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:   "your-api-key",
//	    Username: "rj",
//	    RetryStrategy: lastfm.RetryStrategyFunc(func(attempt int) (time.Duration, bool) {
//	        return time.Duration(attempt) * time.Second, attempt < 3
//	    }),
//	})
//
// # Context Support
//
// All API methods accept a context.Context for cancellation and timeouts.
// Cancellation also interrupts backoff waits.
//
// # Last.fm API Documentation
//
// https://www.last.fm/api/show/user.getRecentTracks
package lastfm
