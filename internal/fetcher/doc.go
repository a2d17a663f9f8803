// Package fetcher resolves feeds and audio.
//
// ListEpisodes parses RSS/Atom feeds with gofeed and returns episode
// descriptors newest first. Download fetches audio through yt-dlp into the
// downloads directory under a stable name derived from the episode title, so
// a second download of the same episode finds the existing file. Search
// queries the iTunes directory for podcast feeds.
package fetcher
