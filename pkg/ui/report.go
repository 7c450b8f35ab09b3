package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dailynews/pkg/models"
	"dailynews/pkg/scraper"

	"github.com/charmbracelet/lipgloss"
)

const maxListedFailures = 10

func row(label string, value interface{}) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label), valueStyle.Render(fmt.Sprint(value)))
}

// RenderReport draws the summary panel for one run
func RenderReport(r *scraper.Report) string {
	if r == nil {
		return ""
	}

	lines := []string{
		titleStyle.Render(" RUN " + shortID(r.RunID) + " "),
		row("Categories:", strings.Join(r.Categories, ", ")),
		row("Took:", r.Took.Round(10*time.Millisecond)),
		row("Links today:", r.Discovered.Total()),
		row("New / removed:", fmt.Sprintf("%d / %d", r.Diff.NewCount, r.Diff.RemovedCount)),
		row("Fetched:", r.Fetch.Fetched),
		row("Skipped (cached):", r.Fetch.Skipped),
		row("Stored:", r.Merge.Updated),
	}
	if r.Fetch.Failed > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Failed: %d", r.Fetch.Failed)))
	}

	if len(r.DiscoveryFailures) > 0 {
		names := make([]string, 0, len(r.DiscoveryFailures))
		for name := range r.DiscoveryFailures {
			names = append(names, name)
		}
		sort.Strings(names)
		lines = append(lines, "", warningStyle.Render("Categories that failed:"))
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("  %s %s", name, dimStyle.Render(r.DiscoveryFailures[name].Error())))
		}
	}

	if len(r.Failed) > 0 {
		lines = append(lines, "", warningStyle.Render("Articles that failed:"))
		for i, o := range r.Failed {
			if i == maxListedFailures {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("  ... and %d more", len(r.Failed)-i)))
				break
			}
			lines = append(lines, fmt.Sprintf("  [%s] %s %s", o.Category, o.URL, dimStyle.Render(fmt.Sprintf("(%d attempts)", o.Attempts))))
		}
	}

	if r.Interrupted {
		lines = append(lines, "", errorStyle.Render("Interrupted before all articles were fetched"))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CategoryRow is one line of the categories table
type CategoryRow struct {
	Name     string
	URL      string
	Stored   int
	Today    int
	Selected bool
}

// RenderCategories draws the configured categories with stored counts
func RenderCategories(rows []CategoryRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("No categories configured")
	}
	width := 0
	for _, r := range rows {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}

	lines := []string{titleStyle.Render(" CATEGORIES ")}
	for _, r := range rows {
		name := labelStyle.Render(fmt.Sprintf("%-*s", width, r.Name))
		counts := valueStyle.Render(fmt.Sprintf("%4d stored %4d today", r.Stored, r.Today))
		lines = append(lines, fmt.Sprintf("%s  %s  %s", name, counts, dimStyle.Render(r.URL)))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderArticles lists articles with their date and a one-line excerpt.
// limit <= 0 lists everything.
func RenderArticles(category string, articles []models.Article, limit int) string {
	header := titleStyle.Render(fmt.Sprintf(" %s (%d) ", strings.ToUpper(category), len(articles)))
	if len(articles) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, dimStyle.Render("No articles stored"))
	}

	lines := []string{header}
	for i, a := range articles {
		if limit > 0 && i == limit {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("... and %d more", len(articles)-i)))
			break
		}
		lines = append(lines,
			"",
			successStyle.Render(a.Title),
			dimStyle.Render(a.Date)+" "+highlight.Render(a.URL),
		)
		if ex := Excerpt(a.Content, 160); ex != "" {
			lines = append(lines, ex)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Excerpt returns the first paragraph of content cut to max runes.
// Paragraphs are stored one per line.
func Excerpt(content string, max int) string {
	first, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	r := []rune(strings.Join(strings.Fields(first), " "))
	if max > 0 && len(r) > max {
		return strings.TrimSpace(string(r[:max-1])) + "…"
	}
	return string(r)
}
