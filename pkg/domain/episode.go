package domain

import "time"

// ListingEntry is one entry read from the listing page. It is only used
// while a crawl is running and never persisted directly.
type ListingEntry struct {
	RawTitle  string `json:"raw_title"`
	RawDate   string `json:"raw_date"`
	DetailURL string `json:"detail_url"`
}

// Episode is a numbered podcast episode discovered by a crawl and handed to
// the persistence layer.
type Episode struct {
	// EpisodeNumber is the number parsed from the listing title. Always set.
	EpisodeNumber int `bson:"episode_number" json:"episode_number" db:"episode_number"`

	// Name is the display name from the listing title (usually the guest).
	Name string `bson:"name" json:"name" db:"name"`

	// ReleaseDate is the listing date text, kept as rendered.
	ReleaseDate string `bson:"release_date" json:"release_date" db:"release_date"`

	// Description is best-effort text from the detail page; may be empty.
	Description string `bson:"description" json:"description" db:"description"`

	// DownloadLink is the audio URL; empty means no link was found.
	DownloadLink string `bson:"download_link,omitempty" json:"download_link,omitempty" db:"download_link"`

	// DetailURL is the detail page the episode was enriched from.
	DetailURL string `bson:"detail_url,omitempty" json:"detail_url,omitempty" db:"detail_url"`

	// CrawledAt is when the episode was assembled.
	CrawledAt time.Time `bson:"crawled_at" json:"crawled_at" db:"crawled_at"`
}

// HasDownloadLink reports whether a download link was found.
func (e *Episode) HasDownloadLink() bool {
	return e.DownloadLink != ""
}
