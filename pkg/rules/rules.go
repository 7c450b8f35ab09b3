// Package rules holds the per-category extraction records used to read
// listing pages and article pages.
//
// Site layouts drift, so every selector the pipeline touches lives here as
// data. A category that needs a different layout overrides individual fields
// in the YAML config; the discovery and fetch code never branches on a
// category name.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ListingRule describes how to find today's article links on a category's
// paginated listing.
type ListingRule struct {
	// Hero slot, read once before pagination.
	HeroContainer string `yaml:"hero_container" json:"hero_container"`
	HeroItem      string `yaml:"hero_item" json:"hero_item"`
	HeroLink      string `yaml:"hero_link" json:"hero_link"`
	HeroDate      string `yaml:"hero_date" json:"hero_date"`

	// DateAttr is the attribute carrying an exact date (e.g. 2024-05-01T08:00:00+08:00).
	DateAttr string `yaml:"date_attr" json:"date_attr"`

	// Paginated block.
	ListingContainer string   `yaml:"listing_container" json:"listing_container"`
	Item             string   `yaml:"item" json:"item"`
	Link             string   `yaml:"link" json:"link"`
	Time             string   `yaml:"time" json:"time"`
	RelativeKeywords []string `yaml:"relative_keywords" json:"relative_keywords"`
	NextControl      string   `yaml:"next_control" json:"next_control"`
	MaxPages         int      `yaml:"max_pages" json:"max_pages"`
}

// ArticleRule describes how to extract an article detail page.
type ArticleRule struct {
	Ready     []string `yaml:"ready" json:"ready"`
	Title     string   `yaml:"title" json:"title"`
	Date      string   `yaml:"date" json:"date"`
	DateAttr  string   `yaml:"date_attr" json:"date_attr"`
	Body      string   `yaml:"body" json:"body"`
	Paragraph string   `yaml:"paragraph" json:"paragraph"`
	Image     string   `yaml:"image" json:"image"`
	ImageAttr string   `yaml:"image_attr" json:"image_attr"`
	Caption   string   `yaml:"caption" json:"caption"`
}

const (
	tagDivHero      = ".vc_row_inner.tdi_80.vc_row.vc_inner.wpb_row.td-pb-row"
	tagDivItem      = ".td_module_flex"
	tagDivThumbLink = ".td-module-thumb a"
	tagDivTime      = "time.entry-date"

	// DefaultMaxPages bounds pagination when a site never runs out of
	// "today" items.
	DefaultMaxPages = 20
)

// DefaultRelativeKeywords mark a listing item as published within the last day.
var DefaultRelativeKeywords = []string{
	"hour ago", "hours ago",
	"minute ago", "minutes ago",
	"second ago", "seconds ago",
}

// DefaultListing returns the tagDiv newspaper layout used by the default
// categories. The next control is derived from the pagination container id.
func DefaultListing(paginationSelector string) ListingRule {
	return ListingRule{
		HeroContainer:    tagDivHero,
		HeroItem:         tagDivItem,
		HeroLink:         tagDivThumbLink,
		HeroDate:         tagDivTime,
		DateAttr:         "datetime",
		ListingContainer: paginationSelector,
		Item:             tagDivItem,
		Link:             tagDivThumbLink,
		Time:             tagDivTime,
		RelativeKeywords: append([]string(nil), DefaultRelativeKeywords...),
		NextControl:      NextControlFor(paginationSelector),
		MaxPages:         DefaultMaxPages,
	}
}

// NextControlFor maps a "#tdi_106" container to its "#next-page-tdi_106" button.
func NextControlFor(paginationSelector string) string {
	if !strings.HasPrefix(paginationSelector, "#") || len(paginationSelector) < 2 {
		return ""
	}
	return "#next-page-" + paginationSelector[1:]
}

// DefaultArticle returns the tagDiv single-post layout.
func DefaultArticle() ArticleRule {
	return ArticleRule{
		Ready:     []string{".tdb-title-text"},
		Title:     ".tdb-title-text",
		Date:      tagDivTime,
		DateAttr:  "datetime",
		Body:      ".vc_column_inner.tdi_84",
		Paragraph: "p",
		Image:     "img",
		ImageAttr: "src",
		Caption:   "figcaption",
	}
}

// Merge returns r with every non-zero field of o applied on top.
func (r ListingRule) Merge(o *ListingRule) ListingRule {
	if o == nil {
		return r
	}
	set(&r.HeroContainer, o.HeroContainer)
	set(&r.HeroItem, o.HeroItem)
	set(&r.HeroLink, o.HeroLink)
	set(&r.HeroDate, o.HeroDate)
	set(&r.DateAttr, o.DateAttr)
	set(&r.ListingContainer, o.ListingContainer)
	set(&r.Item, o.Item)
	set(&r.Link, o.Link)
	set(&r.Time, o.Time)
	set(&r.NextControl, o.NextControl)
	if len(o.RelativeKeywords) > 0 {
		r.RelativeKeywords = append([]string(nil), o.RelativeKeywords...)
	}
	if o.MaxPages > 0 {
		r.MaxPages = o.MaxPages
	}
	return r
}

// Merge returns r with every non-zero field of o applied on top.
func (r ArticleRule) Merge(o *ArticleRule) ArticleRule {
	if o == nil {
		return r
	}
	if len(o.Ready) > 0 {
		r.Ready = append([]string(nil), o.Ready...)
	}
	set(&r.Title, o.Title)
	set(&r.Date, o.Date)
	set(&r.DateAttr, o.DateAttr)
	set(&r.Body, o.Body)
	set(&r.Paragraph, o.Paragraph)
	set(&r.Image, o.Image)
	set(&r.ImageAttr, o.ImageAttr)
	set(&r.Caption, o.Caption)
	return r
}

// HasHero reports whether the rule reads a hero slot at all.
func (r ListingRule) HasHero() bool {
	return r.HeroContainer != "" && r.HeroLink != ""
}

// Validate checks the selectors the discoverer cannot work without.
func (r ListingRule) Validate() error {
	var errs []error
	if r.ListingContainer == "" {
		errs = append(errs, errors.New("listing container selector is required"))
	}
	if r.Item == "" {
		errs = append(errs, errors.New("item selector is required"))
	}
	if r.Link == "" {
		errs = append(errs, errors.New("link selector is required"))
	}
	if r.Time == "" && r.DateAttr == "" {
		errs = append(errs, errors.New("time selector or date attribute is required"))
	}
	if r.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max pages cannot be negative: %d", r.MaxPages))
	}
	return errors.Join(errs...)
}

// Validate checks the selectors the fetcher cannot work without.
func (r ArticleRule) Validate() error {
	var errs []error
	if r.Title == "" {
		errs = append(errs, errors.New("title selector is required"))
	}
	if r.Body == "" {
		errs = append(errs, errors.New("body selector is required"))
	}
	if r.Paragraph == "" {
		errs = append(errs, errors.New("paragraph selector is required"))
	}
	return errors.Join(errs...)
}

// Matches reports whether text contains one of the relative-time keywords.
func (r ListingRule) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range r.RelativeKeywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
