package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/models"
	"dailynews/pkg/page"
	"dailynews/pkg/rules"
)

// Extract loads url on client and reads one article with rule. Missing
// optional fields come back empty; only navigation failures and ready
// selectors that never appear are errors.
func Extract(ctx context.Context, client page.Client, url string, rule rules.ArticleRule, selectorTimeout time.Duration) (models.Article, error) {
	article := models.Article{URL: url}

	if err := client.Navigate(ctx, url); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, page.ErrTimeout) {
			return article, errs.New(errs.ErrorTypeTimeout, url, "article did not load", err)
		}
		return article, errs.New(errs.ErrorTypeNavigation, url, "cannot open article", err)
	}

	for _, sel := range rule.Ready {
		if err := client.WaitFor(ctx, sel, selectorTimeout); err != nil {
			if errors.Is(err, page.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				return article, errs.New(errs.ErrorTypeTimeout, url, "selector "+sel+" never appeared", err)
			}
			return article, errs.New(errs.ErrorTypeSelector, url, "waiting for "+sel, err)
		}
	}

	article.Title = text(ctx, client, rule.Title)
	article.Date = date(ctx, client, rule)

	body, err := client.Query(ctx, rule.Body)
	if err == nil {
		article.Content = paragraphs(body, rule.Paragraph)
	}

	// the featured image lives in the body on most layouts; fall back to
	// the first image on the page
	if rule.Image != "" {
		var img page.Element
		if body != nil {
			img, _ = body.Query(rule.Image)
		}
		if img == nil {
			img, _ = client.Query(ctx, rule.Image)
		}
		if img != nil {
			article.FeaturedImage = page.AttrOf(img, "", imageAttr(rule))
		}
	}
	if rule.Caption != "" {
		if body != nil {
			article.FeaturedCaption = page.TextOf(body, rule.Caption)
		}
		if article.FeaturedCaption == "" {
			article.FeaturedCaption = text(ctx, client, rule.Caption)
		}
	}

	return article, nil
}

func imageAttr(rule rules.ArticleRule) string {
	if rule.ImageAttr != "" {
		return rule.ImageAttr
	}
	return "src"
}

func text(ctx context.Context, client page.Client, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := client.Query(ctx, selector)
	if err != nil {
		return ""
	}
	t, err := el.Text()
	if err != nil {
		return ""
	}
	return page.CleanText(t)
}

// date prefers the machine-readable attribute and falls back to the
// element's text.
func date(ctx context.Context, client page.Client, rule rules.ArticleRule) string {
	if rule.Date == "" {
		return ""
	}
	el, err := client.Query(ctx, rule.Date)
	if err != nil {
		return ""
	}
	if rule.DateAttr != "" {
		if v := page.AttrOf(el, "", rule.DateAttr); v != "" {
			return v
		}
	}
	t, _ := el.Text()
	return page.CleanText(t)
}

func paragraphs(body page.Element, selector string) string {
	nodes, err := body.QueryAll(selector)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		t, err := n.Text()
		if err != nil {
			continue
		}
		if t = page.CleanText(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
