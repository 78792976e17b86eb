// Package content extracts listing entries and detail-page fields from
// rendered episode pages.
package content

// Selectors locates the pieces of the listing and detail pages.
type Selectors struct {
	// Listing page.
	Entry    string `mapstructure:"entry"`
	Title    string `mapstructure:"title"`
	Date     string `mapstructure:"date"`
	MoreLink string `mapstructure:"more_link"`
	LoadMore string `mapstructure:"load_more"`

	// Detail page.
	ContentBlock string `mapstructure:"content_block"`
	TextBlock    string `mapstructure:"text_block"`
	AudioEmbed   string `mapstructure:"audio_embed"`
	AudioAttr    string `mapstructure:"audio_attr"`
}

// DefaultSelectors matches the Squarespace layout of the WTF podcast site.
func DefaultSelectors() Selectors {
	return Selectors{
		Entry:        ".entry-inner",
		Title:        ".entry-title",
		Date:         ".entry-date",
		MoreLink:     "a.more-link",
		LoadMore:     "a.more-episodes-btn",
		ContentBlock: ".entry-content",
		TextBlock:    ".sqs-block-content",
		AudioEmbed:   ".sqs-audio-embed",
		AudioAttr:    "data-url",
	}
}

// withDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Entry == "" {
		s.Entry = d.Entry
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Date == "" {
		s.Date = d.Date
	}
	if s.MoreLink == "" {
		s.MoreLink = d.MoreLink
	}
	if s.LoadMore == "" {
		s.LoadMore = d.LoadMore
	}
	if s.ContentBlock == "" {
		s.ContentBlock = d.ContentBlock
	}
	if s.TextBlock == "" {
		s.TextBlock = d.TextBlock
	}
	if s.AudioEmbed == "" {
		s.AudioEmbed = d.AudioEmbed
	}
	if s.AudioAttr == "" {
		s.AudioAttr = d.AudioAttr
	}
	return s
}
