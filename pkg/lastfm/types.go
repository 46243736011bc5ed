package lastfm

import (
	"time"
)

// ImageSet holds the image URLs Last.fm returns for an artist or track,
// keyed by size. A size that was not present in the response is nil.
type ImageSet struct {
	Small      *string `json:"small,omitempty"`
	Medium     *string `json:"medium,omitempty"`
	Large      *string `json:"large,omitempty"`
	ExtraLarge *string `json:"extralarge,omitempty"`
}

// Largest returns the biggest image URL present, if any.
func (s ImageSet) Largest() (string, bool) {
	for _, u := range []*string{s.ExtraLarge, s.Large, s.Medium, s.Small} {
		if u != nil {
			return *u, true
		}
	}
	return "", false
}

// Artist represents the artist of a track.
type Artist struct {
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Image ImageSet `json:"image"`
}

// Track is a single element of a user's recent tracks feed.
//
// A Track is always exactly one of NowPlayingTrack or RecordedTrack:
//
//	switch t := track.(type) {
//	case lastfm.NowPlayingTrack:
//	    fmt.Println("now playing:", t.Name)
//	case lastfm.RecordedTrack:
//	    fmt.Println(t.PlayedAt, t.Name)
//	}
type Track interface {
	isTrack()
}

// NowPlayingTrack is the track the user is currently listening to.
// It has no play timestamp.
type NowPlayingTrack struct {
	Artist Artist   `json:"artist"`
	Name   string   `json:"name"`
	Album  string   `json:"album"`
	Image  ImageSet `json:"image"`
	URL    string   `json:"url"`
}

// RecordedTrack is a track from the user's listening history.
type RecordedTrack struct {
	Artist   Artist    `json:"artist"`
	Name     string    `json:"name"`
	Album    string    `json:"album"`
	Image    ImageSet  `json:"image"`
	URL      string    `json:"url"`
	PlayedAt time.Time `json:"played_at"` // UTC
}

func (NowPlayingTrack) isTrack() {}
func (RecordedTrack) isTrack()   {}

// Page is one page of the user.getRecentTracks resource.
type Page struct {
	// TotalCount is the number of history records Last.fm reports for the
	// query. It does not include the now playing track.
	TotalCount uint64

	// Tracks are ordered newest first, as returned by Last.fm.
	Tracks []Track
}

// Recorded returns the recorded tracks of the page, dropping any now
// playing element. Order is preserved.
func (p *Page) Recorded() []RecordedTrack {
	recorded := make([]RecordedTrack, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if r, ok := t.(RecordedTrack); ok {
			recorded = append(recorded, r)
		}
	}
	return recorded
}

// NowPlaying returns the now playing element of the page, if it is the
// first element.
func (p *Page) NowPlaying() (NowPlayingTrack, bool) {
	if len(p.Tracks) == 0 {
		return NowPlayingTrack{}, false
	}
	np, ok := p.Tracks[0].(NowPlayingTrack)
	return np, ok
}

// pageResponse is the decoded body of a user.getRecentTracks call. Exactly
// one of page and remote is set.
type pageResponse struct {
	page   *Page
	remote *Error
}
