package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// FeedSeeder turns syndication feeds (paste-site archives, scraping
// aggregators) into seed locations for a run.
type FeedSeeder struct {
	parser       *gofeed.Parser
	perFeedLimit int
}

// NewFeedSeeder creates a seeder taking at most perFeedLimit links per
// feed. A non-positive limit means every item.
func NewFeedSeeder(perFeedLimit int) *FeedSeeder {
	return &FeedSeeder{
		parser:       gofeed.NewParser(),
		perFeedLimit: perFeedLimit,
	}
}

// Seeds fetches every feed and collects item links in feed order,
// dropping duplicates. A broken feed does not abort the rest; its error
// is joined into the returned error alongside the seeds gathered so far.
func (s *FeedSeeder) Seeds(ctx context.Context, feedURLs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var seeds []string
	var errs []error

	for _, feedURL := range feedURLs {
		if err := ctx.Err(); err != nil {
			return seeds, errors.Join(append(errs, err)...)
		}

		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse feed %s: %w", feedURL, err))
			continue
		}

		taken := 0
		for _, item := range feed.Items {
			if item.Link == "" {
				continue
			}
			if _, dup := seen[item.Link]; dup {
				continue
			}
			seen[item.Link] = struct{}{}
			seeds = append(seeds, item.Link)
			taken++
			if s.perFeedLimit > 0 && taken >= s.perFeedLimit {
				break
			}
		}
	}
	return seeds, errors.Join(errs...)
}
