package dashboard

import (
	"encoding/json"
	"errors"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/store"
)

// FeedPost is a message of the community feed.
type FeedPost struct {
	ID        int    `json:"id"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Feed returns the community feed, newest first as stored.
// Entries that are not posts are skipped, and a missing or corrupt feed is empty.
func (d Dashboard) Feed() []FeedPost {
	var raw []json.RawMessage
	if err := d.store.ReadCommunityJSON(constants.FeedFileName, &raw); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.log.Warn("Could not read community feed", "error", err)
		}
		return []FeedPost{}
	}

	posts := make([]FeedPost, 0, len(raw))
	for i, item := range raw {
		var p FeedPost
		if err := json.Unmarshal(item, &p); err != nil {
			d.log.Debug("Skipping feed entry", "index", i, "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// Research returns the research digest of the configuration directory.
func (d Dashboard) Research() registry.Research {
	return d.registry.Research()
}
