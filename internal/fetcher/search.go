package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"podscribe/internal/services"
)

// Podcast is one directory search hit.
type Podcast struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	FeedURL    string `json:"feed_url"`
	ArtworkURL string `json:"artwork_url"`
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		CollectionName string `json:"collectionName"`
		TrackName      string `json:"trackName"`
		ArtistName     string `json:"artistName"`
		FeedURL        string `json:"feedUrl"`
		ArtworkURL600  string `json:"artworkUrl600"`
		ArtworkURL100  string `json:"artworkUrl100"`
	} `json:"results"`
}

// Search queries the iTunes directory for podcasts matching term. Results
// without a feed URL are dropped since they cannot be submitted.
func (f *Fetcher) Search(ctx context.Context, term string) ([]Podcast, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "itunes", "search term is required", nil)
	}
	endpoint := strings.TrimSpace(f.opts.SearchURL)
	if endpoint == "" {
		endpoint = "https://itunes.apple.com/search"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "search", "itunes", "invalid search url", err)
	}
	q := u.Query()
	q.Set("term", term)
	q.Set("media", "podcast")
	q.Set("entity", "podcast")
	q.Set("limit", strconv.Itoa(f.opts.SearchLimit))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "search", "build request", "", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "search", "itunes", "", err)
		}
		return nil, services.Wrap(services.ErrTransient, "search", "itunes", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrValidation
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "search", "itunes", fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var payload itunesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrMalformedResponse, "search", "decode response", "", err)
	}
	results := make([]Podcast, 0, len(payload.Results))
	for _, r := range payload.Results {
		if strings.TrimSpace(r.FeedURL) == "" {
			continue
		}
		name := r.CollectionName
		if name == "" {
			name = r.TrackName
		}
		artwork := r.ArtworkURL600
		if artwork == "" {
			artwork = r.ArtworkURL100
		}
		results = append(results, Podcast{
			Name:       name,
			Artist:     r.ArtistName,
			FeedURL:    r.FeedURL,
			ArtworkURL: artwork,
		})
	}
	return results, nil
}
