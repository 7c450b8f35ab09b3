// Package models holds the records persisted by the pipeline and read by
// its consumers.
package models

import (
	"sort"
	"strings"
)

// Article is one fetched detail page. Date is kept as the site reported it.
type Article struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	Content         string `json:"content"`
	FeaturedImage   string `json:"featured_image"`
	FeaturedCaption string `json:"featured_caption"`
}

// Snapshot maps category name to its ordered article URLs.
type Snapshot map[string][]string

// URLs returns the set of every URL in the snapshot.
func (s Snapshot) URLs() map[string]struct{} {
	set := make(map[string]struct{})
	for _, urls := range s {
		for _, u := range urls {
			set[u] = struct{}{}
		}
	}
	return set
}

// Total counts URLs across categories, duplicates included.
func (s Snapshot) Total() int {
	n := 0
	for _, urls := range s {
		n += len(urls)
	}
	return n
}

// Categories returns the category names in sorted order.
func (s Snapshot) Categories() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diff is the URL-set difference between two snapshots.
type Diff struct {
	Total        int      `json:"total"`
	NewCount     int      `json:"new_count"`
	RemovedCount int      `json:"removed_count"`
	NewURLs      []string `json:"new_urls"`
	RemovedURLs  []string `json:"removed_urls"`
}

// Compare computes today minus previous and previous minus today. Total
// counts distinct URLs, so a story listed in two categories counts once. Result
// lists are sorted so the diff is deterministic.
func Compare(previous, today Snapshot) Diff {
	prev, cur := previous.URLs(), today.URLs()
	d := Diff{
		Total:       len(cur),
		NewURLs:     minus(cur, prev),
		RemovedURLs: minus(prev, cur),
	}
	d.NewCount, d.RemovedCount = len(d.NewURLs), len(d.RemovedURLs)
	return d
}

func minus(a, b map[string]struct{}) []string {
	out := []string{}
	for u := range a {
		if _, ok := b[u]; !ok {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}

// LinksMeta is written next to the link snapshot.
type LinksMeta struct {
	SavedAt    float64 `json:"saved_at"`
	SavedAtISO string  `json:"saved_at_iso"`
	TotalLinks int     `json:"total_links"`
}

// ArticlesMeta is written next to the article store.
type ArticlesMeta struct {
	ScrapedAt    float64 `json:"scraped_at"`
	ScrapedAtISO string  `json:"scraped_at_iso"`
	TotalFound   int     `json:"total_found"`
	Updated      int     `json:"updated"`
}

// IsPublishedOn reports whether a site date string names the given day.
// Any string containing the YYYY-MM-DD form of day counts.
func IsPublishedOn(date, day string) bool {
	return day != "" && strings.Contains(date, day)
}
