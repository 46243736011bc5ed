package lastfm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ExampleClient_NowPlaying demonstrates how to show the current track.
func ExampleClient_NowPlaying() {
	client, err := NewClient(Config{
		APIKey:   "your-api-key",
		Username: "rj",
	})
	if err != nil {
		log.Fatal(err)
	}

	track, err := client.NowPlaying(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	if track == nil {
		fmt.Println("Nothing playing")
		return
	}

	fmt.Printf("Now playing: %s - %s\n", track.Artist.Name, track.Name)
}

// ExampleClient_AllTracks demonstrates how to walk a user's whole history.
func ExampleClient_AllTracks() {
	client, err := NewClientFromEnv("rj")
	if errors.Is(err, ErrMissingCredential) {
		log.Fatal("set LASTFM_API_KEY")
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	stream, err := client.AllTracks(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	fmt.Println("Total tracks:", stream.TotalCount())

	for track, err := range stream.All(ctx) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: %s - %s\n", track.PlayedAt.Format(time.RFC1123), track.Artist.Name, track.Name)
	}
}

// ExampleClient_RecentTracks demonstrates how to read the last week of
// history with a pull loop.
func ExampleClient_RecentTracks() {
	client, err := NewClient(Config{
		APIKey:        "your-api-key",
		Username:      "rj",
		RetryStrategy: NewJitteredBackoff(3),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	since := time.Now().Add(-7 * 24 * time.Hour)

	stream, err := client.RecentTracks(ctx, &since, nil)
	if err != nil {
		log.Fatal(err)
	}

	for {
		track, err := stream.Next(ctx)
		if errors.Is(err, ErrEndOfHistory) {
			break
		}
		if err != nil {
			var lastfmErr *Error
			if errors.As(err, &lastfmErr) {
				log.Fatalf("Last.fm error %d: %s", lastfmErr.Code, lastfmErr.Message)
			}
			log.Fatal(err)
		}
		fmt.Println(track.PlayedAt, track.Name)
	}
}

// ExampleRetryStrategyFunc demonstrates a custom retry schedule: three
// attempts, waiting one second longer before each retry.
func ExampleRetryStrategyFunc() {
	strategy := RetryStrategyFunc(func(attempt int) (time.Duration, bool) {
		return time.Duration(attempt) * time.Second, attempt < 3
	})

	for attempt := 0; ; attempt++ {
		delay, ok := strategy.RetryAfter(attempt)
		if !ok {
			break
		}
		fmt.Printf("attempt %d after %v\n", attempt+1, delay)
	}

	// Output:
	// attempt 1 after 0s
	// attempt 2 after 1s
	// attempt 3 after 2s
}
