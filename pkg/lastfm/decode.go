package lastfm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Last.fm wraps scalar values in {"#text": ...} objects, encodes booleans
// as strings and returns sizes as a list. The decoders below walk a
// generic JSON tree field by field so every failure can name the field.

const textKey = "#text"

// Bounds of the Unix second values that map to a four digit year.
const (
	minUnixSeconds int64 = -62135596800 // 0001-01-01T00:00:00Z
	maxUnixSeconds int64 = 253402300799 // 9999-12-31T23:59:59Z
)

// decodePageResponse parses a user.getRecentTracks response body. The page
// shape is checked first since its required fields are more specific than
// the error envelope.
func decodePageResponse(body []byte) (pageResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return pageResponse{}, &MalformedPageError{Err: fmt.Errorf("invalid json: %w", err)}
	}

	if _, ok := raw["recenttracks"]; ok {
		page, err := decodePage(raw)
		if err != nil {
			return pageResponse{}, &MalformedPageError{Err: err}
		}
		return pageResponse{page: page}, nil
	}

	if remote, ok := decodeRemoteError(raw); ok {
		return pageResponse{remote: remote}, nil
	}

	return pageResponse{}, &MalformedPageError{Err: &MissingFieldError{Field: "recenttracks"}}
}

func decodePage(raw map[string]any) (*Page, error) {
	recent, err := requireObject(raw, "recenttracks")
	if err != nil {
		return nil, err
	}

	attr, err := requireObject(recent, "@attr")
	if err != nil {
		return nil, err
	}
	totalStr, err := requireString(attr, "total")
	if err != nil {
		return nil, err
	}
	total, err := strconv.ParseUint(totalStr, 10, 64)
	if err != nil {
		return nil, &MalformedFieldError{Field: "total", Reason: err.Error()}
	}

	rawTracks, ok := recent["track"]
	if !ok {
		return nil, &MissingFieldError{Field: "track"}
	}

	var elems []any
	switch v := rawTracks.(type) {
	case []any:
		elems = v
	case map[string]any:
		// Single element pages are sometimes returned unwrapped.
		elems = []any{v}
	default:
		return nil, &MalformedFieldError{Field: "track", Reason: "not an array"}
	}

	tracks := make([]Track, 0, len(elems))
	for i, elem := range elems {
		t, err := decodeTrack(elem)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		tracks = append(tracks, t)
	}

	return &Page{TotalCount: total, Tracks: tracks}, nil
}

// decodeRemoteError matches the flat {"error": <int>, "message": <string>}
// envelope.
func decodeRemoteError(raw map[string]any) (*Error, bool) {
	num, ok := raw["error"].(json.Number)
	if !ok {
		return nil, false
	}
	code, err := strconv.ParseUint(num.String(), 10, 32)
	if err != nil {
		return nil, false
	}
	msg, ok := raw["message"].(string)
	if !ok {
		return nil, false
	}
	return &Error{Code: int(code), Message: msg}, true
}

// decodeTrack parses a single element of the recenttracks.track array.
func decodeTrack(raw any) (Track, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedFieldError{Field: "track", Reason: "not an object"}
	}

	rawArtist, ok := obj["artist"]
	if !ok {
		return nil, &MissingFieldError{Field: "artist"}
	}
	artist, err := decodeArtist(rawArtist)
	if err != nil {
		return nil, fmt.Errorf("artist: %w", err)
	}

	name, err := requireString(obj, "name")
	if err != nil {
		return nil, err
	}

	rawImage, ok := obj["image"]
	if !ok {
		return nil, &MissingFieldError{Field: "image"}
	}
	image, err := decodeImageSet(rawImage)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	albumObj, err := requireObject(obj, "album")
	if err != nil {
		return nil, err
	}
	album, err := requireString(albumObj, textKey)
	if err != nil {
		return nil, fmt.Errorf("album: %w", err)
	}

	url, err := requireString(obj, "url")
	if err != nil {
		return nil, err
	}

	if isNowPlaying(obj) {
		return NowPlayingTrack{
			Artist: artist,
			Name:   name,
			Album:  album,
			Image:  image,
			URL:    url,
		}, nil
	}

	playedAt, err := decodeDate(obj)
	if err != nil {
		return nil, err
	}

	return RecordedTrack{
		Artist:   artist,
		Name:     name,
		Album:    album,
		Image:    image,
		URL:      url,
		PlayedAt: playedAt,
	}, nil
}

func decodeArtist(raw any) (Artist, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Artist{}, &MalformedFieldError{Field: "artist", Reason: "not an object"}
	}

	name, err := requireString(obj, "name")
	if err != nil {
		return Artist{}, err
	}
	url, err := requireString(obj, "url")
	if err != nil {
		return Artist{}, err
	}

	rawImage, ok := obj["image"]
	if !ok {
		return Artist{}, &MissingFieldError{Field: "image"}
	}
	image, err := decodeImageSet(rawImage)
	if err != nil {
		return Artist{}, fmt.Errorf("image: %w", err)
	}

	return Artist{Name: name, URL: url, Image: image}, nil
}

// decodeImageSet parses a list of {"size": ..., "#text": ...} objects.
// Unknown sizes are ignored and later entries win.
func decodeImageSet(raw any) (ImageSet, error) {
	elems, ok := raw.([]any)
	if !ok {
		return ImageSet{}, &MalformedFieldError{Field: "image", Reason: "not an array"}
	}

	var set ImageSet
	for _, elem := range elems {
		obj, ok := elem.(map[string]any)
		if !ok {
			return ImageSet{}, &MalformedFieldError{Field: "image", Reason: "element is not an object"}
		}
		size, err := requireString(obj, "size")
		if err != nil {
			return ImageSet{}, err
		}
		url, err := requireString(obj, textKey)
		if err != nil {
			return ImageSet{}, err
		}

		switch size {
		case "small":
			set.Small = &url
		case "medium":
			set.Medium = &url
		case "large":
			set.Large = &url
		case "extralarge":
			set.ExtraLarge = &url
		}
	}

	return set, nil
}

// isNowPlaying reports whether @attr.nowplaying is the string "true". Any
// other shape means the track is not playing.
func isNowPlaying(obj map[string]any) bool {
	attr, ok := obj["@attr"].(map[string]any)
	if !ok {
		return false
	}
	v, ok := attr["nowplaying"].(string)
	return ok && v == "true"
}

func decodeDate(obj map[string]any) (time.Time, error) {
	date, err := requireObject(obj, "date")
	if err != nil {
		return time.Time{}, err
	}
	uts, err := requireString(date, "uts")
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(uts, 10, 64)
	if err != nil {
		return time.Time{}, &InvalidTimestampError{Value: uts, Err: err}
	}
	if secs < minUnixSeconds || secs > maxUnixSeconds {
		return time.Time{}, &InvalidTimestampError{Value: uts, Err: fmt.Errorf("out of range")}
	}
	return time.Unix(secs, 0).UTC(), nil
}

func requireObject(obj map[string]any, key string) (map[string]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedFieldError{Field: key, Reason: "not an object"}
	}
	return m, nil
}

// requireString treats a present value of the wrong type as missing.
func requireString(obj map[string]any, key string) (string, error) {
	s, ok := obj[key].(string)
	if !ok {
		return "", &MissingFieldError{Field: key}
	}
	return s, nil
}

// EncodeTrack converts a track back to the shape Last.fm returns it in,
// suitable for json.Marshal. Decoding the result yields an equal track.
func EncodeTrack(t Track) map[string]any {
	switch v := t.(type) {
	case NowPlayingTrack:
		m := encodeCommon(v.Artist, v.Name, v.Album, v.Image, v.URL)
		m["@attr"] = map[string]any{"nowplaying": "true"}
		return m
	case RecordedTrack:
		m := encodeCommon(v.Artist, v.Name, v.Album, v.Image, v.URL)
		m["date"] = map[string]any{
			"uts":   strconv.FormatInt(v.PlayedAt.Unix(), 10),
			textKey: v.PlayedAt.UTC().Format("02 Jan 2006, 15:04"),
		}
		return m
	default:
		return nil
	}
}

func encodeCommon(artist Artist, name, album string, image ImageSet, url string) map[string]any {
	return map[string]any{
		"artist": map[string]any{
			"name":  artist.Name,
			"url":   artist.URL,
			"image": encodeImageSet(artist.Image),
		},
		"name":  name,
		"album": map[string]any{textKey: album},
		"image": encodeImageSet(image),
		"url":   url,
	}
}

func encodeImageSet(set ImageSet) []any {
	images := []any{}
	add := func(size string, url *string) {
		if url != nil {
			images = append(images, map[string]any{"size": size, textKey: *url})
		}
	}
	add("small", set.Small)
	add("medium", set.Medium)
	add("large", set.Large)
	add("extralarge", set.ExtraLarge)
	return images
}
