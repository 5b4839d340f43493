package trends

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"planner-stack/internal/models"
	"planner-stack/shared/config"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// CollectionError is returned when no trend source could be read at all.
// Partial data (some competitors missing) is not an error.
type CollectionError struct {
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("trend collection failed: %v", e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// Client reads public channel performance from the YouTube Data API. It is
// both the trend collector (own + competitor channels) and the research
// service (top-viewed videos for a query).
type Client struct {
	service *youtube.Service
	config  *config.YouTubeConfig
}

func NewClient(ctx context.Context, cfg *config.YouTubeConfig) (*Client, error) {
	service, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{service: service, config: cfg}, nil
}

// Collect fetches recent upload performance for the own channel and each
// competitor. A competitor that fails to respond is omitted with a log line;
// Collect fails only when every source fails.
func (c *Client) Collect(ctx context.Context) (*models.TrendData, error) {
	since := time.Now().AddDate(0, 0, -c.config.LookbackDays)

	trend := &models.TrendData{CollectedAt: time.Now()}
	var sources, failures int
	var lastErr error

	sources++
	ownVideos, err := c.channelVideos(ctx, c.config.ChannelID, since)
	if err != nil {
		failures++
		lastErr = err
		log.Printf("Failed to fetch own channel %s: %v", c.config.ChannelID, err)
	} else {
		for _, v := range ownVideos {
			trend.OwnVideos = append(trend.OwnVideos, trendVideo(v))
		}
	}

	for _, channelID := range c.config.Competitors {
		sources++
		videos, err := c.channelVideos(ctx, channelID, since)
		if err != nil {
			failures++
			lastErr = err
			log.Printf("Skipping competitor %s: %v", channelID, err)
			continue
		}
		trend.Competitors = append(trend.Competitors, competitorTrend(channelID, videos))
	}

	if failures == sources {
		return nil, &CollectionError{Err: lastErr}
	}

	log.Printf("Collected trend snapshot: %d own videos, %d competitors (%d sources failed)",
		len(trend.OwnVideos), len(trend.Competitors), failures)

	return trend, nil
}

// Search returns the top-viewed videos matching a query, for the competitive
// research briefing. Callers treat failure as non-fatal.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	searchResp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		Order("viewCount").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}

	var ids []string
	results := make([]models.ResearchResult, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.Id == nil || item.Snippet == nil {
			continue
		}
		ids = append(ids, item.Id.VideoId)
		results = append(results, models.ResearchResult{
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}

	// View counts come from a second call; if it fails the titles alone are
	// still a usable briefing.
	if len(ids) > 0 {
		videosResp, err := c.service.Videos.List([]string{"statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			log.Printf("Failed to fetch view counts for research on %q: %v", query, err)
		} else {
			counts := make(map[string]int64, len(videosResp.Items))
			for _, item := range videosResp.Items {
				if item.Statistics != nil {
					counts[item.Id] = int64(item.Statistics.ViewCount)
				}
			}
			for i, id := range ids {
				results[i].ViewCount = counts[id]
			}
		}
	}

	return results, nil
}

// channelVideos resolves recent uploads for one channel and fetches their
// statistics in batches of 50, the Data API list limit.
func (c *Client) channelVideos(ctx context.Context, channelID string, since time.Time) ([]*youtube.Video, error) {
	searchResp, err := c.service.Search.List([]string{"id"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		PublishedAfter(since.Format(time.RFC3339)).
		MaxResults(int64(c.config.MaxVideos)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads for channel %s: %w", channelID, err)
	}

	var videoIDs []string
	for _, item := range searchResp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			videoIDs = append(videoIDs, item.Id.VideoId)
		}
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	const batchSize = 50
	var videos []*youtube.Video
	for i := 0; i < len(videoIDs); i += batchSize {
		end := i + batchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		videosResp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
			Id(videoIDs[i:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch video details for channel %s: %w", channelID, err)
		}
		videos = append(videos, videosResp.Items...)
	}

	return videos, nil
}

func trendVideo(v *youtube.Video) models.TrendVideo {
	tv := models.TrendVideo{VideoID: v.Id}
	if v.Snippet != nil {
		tv.Title = v.Snippet.Title
		if publishedAt, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			tv.PublishedAt = publishedAt
		}
	}
	if v.Statistics != nil {
		tv.ViewCount = int64(v.Statistics.ViewCount)
		tv.LikeCount = int64(v.Statistics.LikeCount)
		tv.CommentCount = int64(v.Statistics.CommentCount)
	}
	return tv
}

func competitorTrend(channelID string, videos []*youtube.Video) models.CompetitorTrend {
	ct := models.CompetitorTrend{ChannelID: channelID}
	for _, v := range videos {
		cv := models.CompetitorVideo{}
		if v.Snippet != nil {
			cv.Title = v.Snippet.Title
			if ct.ChannelTitle == "" {
				ct.ChannelTitle = v.Snippet.ChannelTitle
			}
		}
		if v.Statistics != nil {
			cv.ViewCount = int64(v.Statistics.ViewCount)
		}
		if strings.TrimSpace(cv.Title) == "" {
			continue
		}
		ct.Videos = append(ct.Videos, cv)
	}
	return ct
}
