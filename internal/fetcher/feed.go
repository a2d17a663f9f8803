package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// Episode describes one feed entry.
type Episode struct {
	URL         string
	Title       string
	Description string
	PublishedAt *time.Time
	Duration    float64 // seconds
}

// ListEpisodes parses feedURL and returns its episodes most recent first,
// capped at the configured maximum.
func (f *Fetcher) ListEpisodes(ctx context.Context, feedURL string) ([]Episode, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.httpClient
	parser.UserAgent = userAgent
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, classifyFeedError(err)
	}

	episodes := episodesFromFeed(feed)
	if f.opts.MaxEpisodes > 0 && len(episodes) > f.opts.MaxEpisodes {
		episodes = episodes[:f.opts.MaxEpisodes]
	}
	f.logger.Info("feed parsed",
		logging.String(logging.FieldEventType, "feed_parsed"),
		logging.String("feed_url", feedURL),
		logging.String("feed_title", feed.Title),
		logging.Int("items", len(feed.Items)),
		logging.Int("episodes", len(episodes)))
	return episodes, nil
}

// ParseFeed parses a feed document already in memory.
func ParseFeed(body string) ([]Episode, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedResponse, "expanding", "parse feed", "", err)
	}
	return episodesFromFeed(feed), nil
}

func episodesFromFeed(feed *gofeed.Feed) []Episode {
	episodes := make([]Episode, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		audioURL := audioURL(item)
		if audioURL == "" {
			continue
		}
		ep := Episode{
			URL:         audioURL,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(firstNonEmpty(item.Description, item.Content)),
		}
		if item.PublishedParsed != nil {
			ts := item.PublishedParsed.UTC()
			ep.PublishedAt = &ts
		} else if item.UpdatedParsed != nil {
			ts := item.UpdatedParsed.UTC()
			ep.PublishedAt = &ts
		}
		if item.ITunesExt != nil {
			ep.Duration = ParseDuration(item.ITunesExt.Duration)
		}
		episodes = append(episodes, ep)
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i].PublishedAt, episodes[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return episodes
}

func audioURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.Contains(strings.ToLower(enc.Type), "audio") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	return strings.TrimSpace(item.Link)
}

// ParseDuration accepts itunes:duration values as seconds, MM:SS, or
// HH:MM:SS. Unparseable values yield 0.
func ParseDuration(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0
	}
	var total float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func classifyFeedError(err error) error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		marker := services.ErrValidation
		switch {
		case httpErr.StatusCode == 404 || httpErr.StatusCode == 410:
			marker = services.ErrNotFound
		case httpErr.StatusCode == 429 || httpErr.StatusCode >= 500:
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "expanding", "fetch feed", fmt.Sprintf("http %d", httpErr.StatusCode), err)
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return services.Wrap(services.ErrMalformedResponse, "expanding", "parse feed", "not an RSS or Atom document", err)
	}
	if isTimeout(err) {
		return services.Wrap(services.ErrTimeout, "expanding", "fetch feed", "", err)
	}
	return services.Wrap(services.ErrTransient, "expanding", "fetch feed", "", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
