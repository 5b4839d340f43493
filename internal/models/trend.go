package models

import "time"

// TrendVideo is one recent upload on the own channel with its engagement
// counters at collection time.
type TrendVideo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	PublishedAt  time.Time `json:"published_at"`
}

// CompetitorVideo is a competitor upload; only title and views are tracked.
type CompetitorVideo struct {
	Title     string `json:"title"`
	ViewCount int64  `json:"view_count"`
}

// CompetitorTrend groups the recent uploads of one competitor channel.
type CompetitorTrend struct {
	ChannelID    string            `json:"channel_id"`
	ChannelTitle string            `json:"channel_title"`
	Videos       []CompetitorVideo `json:"videos"`
}

// TrendData is a point-in-time snapshot of own and competitor channel
// performance. It is immutable once produced; the scorer and generator read
// it, nobody writes it after collection.
type TrendData struct {
	OwnVideos   []TrendVideo      `json:"own_videos"`
	Competitors []CompetitorTrend `json:"competitors"`
	CollectedAt time.Time         `json:"collected_at"`
}

// TopTitles returns up to limit video titles across the snapshot, own channel
// first, for use in prompts and overlap scoring.
func (t *TrendData) TopTitles(limit int) []string {
	if t == nil || limit <= 0 {
		return nil
	}
	titles := make([]string, 0, limit)
	for _, v := range t.OwnVideos {
		if len(titles) == limit {
			return titles
		}
		titles = append(titles, v.Title)
	}
	for _, c := range t.Competitors {
		for _, v := range c.Videos {
			if len(titles) == limit {
				return titles
			}
			titles = append(titles, v.Title)
		}
	}
	return titles
}

// ResearchResult is one hit from the competitive research lookup that runs
// before generation.
type ResearchResult struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
	ViewCount    int64  `json:"view_count"`
}
