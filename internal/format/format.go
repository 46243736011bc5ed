// Package format renders tracks for terminal output.
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/replay/pkg/lastfm"
	"github.com/mattn/go-runewidth"
)

// TrackView is the data passed to output templates.
// Available fields: .Artist, .Name, .Album, .URL, .Image, .PlayedAt, .NowPlaying
type TrackView struct {
	Artist     string
	Name       string
	Album      string
	URL        string
	Image      string    // largest image URL, empty if none
	PlayedAt   time.Time // zero for the now playing track
	NowPlaying bool
}

// FromNowPlaying builds the template view of a now playing track.
func FromNowPlaying(t lastfm.NowPlayingTrack) TrackView {
	image, _ := t.Image.Largest()
	return TrackView{
		Artist:     t.Artist.Name,
		Name:       t.Name,
		Album:      t.Album,
		URL:        t.URL,
		Image:      image,
		NowPlaying: true,
	}
}

// FromRecorded builds the template view of a history record.
func FromRecorded(t lastfm.RecordedTrack) TrackView {
	image, _ := t.Image.Largest()
	return TrackView{
		Artist:   t.Artist.Name,
		Name:     t.Name,
		Album:    t.Album,
		URL:      t.URL,
		Image:    image,
		PlayedAt: t.PlayedAt,
	}
}

// Template is a parsed output template.
type Template struct {
	tmpl *template.Template
}

// Parse parses an output template.
func Parse(text string) (*Template, error) {
	tmpl, err := template.New("output").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render applies the template to the track data
func (t *Template) Render(v TrackView) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

// PadToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func PadToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	switch {
	case currentWidth > width:
		const ellipsis = "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)
		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Wide runes can leave the truncated text one column short
		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
		return fill(result, width)
	case currentWidth < width:
		return fill(text, width)
	}
	return text
}

// fill right-pads text with spaces up to width display columns.
func fill(text string, width int) string {
	if w := runewidth.StringWidth(text); w < width {
		return text + strings.Repeat(" ", width-w)
	}
	return text
}

// Marquee returns a width-column window onto text that scrolls with time,
// for status bars that re-run the command on an interval. Text that fits is
// padded and never scrolls.
//
// The window starts at now.Unix()*speed modulo the length of
// text+separator+text, so the same instant always renders the same frame.
func Marquee(text string, width, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return PadToWidth(text, width)
	}

	extended := []rune(text + separator + text)
	total := len(extended)
	position := int(now.Unix()*int64(speed)) % total
	if position < 0 {
		position += total
	}

	var result []rune
	resultWidth := 0
	for i := 0; i < total; i++ {
		r := extended[(position+i)%total]
		rw := runewidth.RuneWidth(r)
		if resultWidth+rw > width {
			break
		}
		result = append(result, r)
		resultWidth += rw
	}

	return fill(string(result), width)
}

// Row lays out cells in fixed-width columns separated by two spaces. A
// width of 0 leaves the cell as is, which suits the last column.
func Row(widths []int, cells ...string) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		w := 0
		if i < len(widths) {
			w = widths[i]
		}
		parts[i] = PadToWidth(cell, w)
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
