package ui

import (
	"fmt"
	"strings"
	"time"
)

// Progress prints pipeline progress lines with a timestamp, colouring
// failures red and the final line green.
type Progress struct {
	now func() time.Time
}

// NewProgress creates a progress printer
func NewProgress() *Progress {
	return &Progress{now: time.Now}
}

// Line formats one progress message
func (p *Progress) Line(msg string) string {
	stamp := dimStyle.Render(p.now().Format("15:04:05"))
	body := strings.TrimPrefix(msg, "[SCRAPER] ")
	lower := strings.ToLower(body)

	switch {
	case strings.Contains(lower, "failed") || strings.HasPrefix(lower, "error") || strings.Contains(lower, "interrupted"):
		body = errorStyle.Render(body)
	case strings.Contains(lower, "completed successfully"):
		body = successStyle.Render(body)
	case strings.HasPrefix(lower, "step "):
		body = labelStyle.Render(body)
	default:
		body = valueStyle.Render(body)
	}
	return fmt.Sprintf("%s %s", stamp, body)
}

// Print is a scraper.ProgressFunc
func (p *Progress) Print(msg string) {
	lower := strings.ToLower(msg)
	if IsQuietMode() && !strings.Contains(lower, "failed") && !strings.Contains(lower, "error") {
		return
	}
	fmt.Fprintln(out, p.Line(msg))
}
