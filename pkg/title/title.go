// Package title parses listing titles of the form "Episode 1305 - Guest Name".
package title

import (
	"strconv"
	"strings"
)

const (
	// Separator splits the number part from the display name.
	Separator = " - "

	episodePrefix = "Episode "
	repostMarker  = "Repost"
)

// Parsed is a structured listing title.
type Parsed struct {
	// Number is the episode number; zero and meaningless when Repost is set.
	Number int
	// Name is the display name after the separator.
	Name string
	// Repost marks re-published content that carries no episode number.
	Repost bool
}

// Numbered reports whether the title carries a usable episode number.
func (p Parsed) Numbered() bool {
	return !p.Repost
}

// Parse turns a raw title into a Parsed value. The second return value is
// false when the title does not follow the "Episode N - Name" or
// "Repost - Name" convention; such entries are not enumerable episodes and
// callers drop them.
func Parse(raw string) (Parsed, bool) {
	parts := strings.Split(raw, Separator)
	if len(parts) != 2 {
		return Parsed{}, false
	}

	numberPart := strings.TrimPrefix(strings.TrimSpace(parts[0]), episodePrefix)
	name := strings.TrimSpace(parts[1])

	if numberPart == repostMarker {
		return Parsed{Name: name, Repost: true}, true
	}

	n, err := strconv.Atoi(numberPart)
	if err != nil {
		return Parsed{}, false
	}

	return Parsed{Number: n, Name: name}, true
}

// Number returns the episode number for raw, or false when the title is a
// repost or unparsable.
func Number(raw string) (int, bool) {
	p, ok := Parse(raw)
	if !ok || !p.Numbered() {
		return 0, false
	}
	return p.Number, true
}
