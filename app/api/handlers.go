package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zackees/vids-db/app/cfg"
	"github.com/zackees/vids-db/app/config"
	"github.com/zackees/vids-db/app/model"
	"github.com/zackees/vids-db/app/search"
)

const maxRequestBody = 32 << 20 // 32 MB

func NewHandler(db DatabaseInterface, policy *config.ChannelPolicy) *Handler {
	return &Handler{
		db:        db,
		policy:    policy,
		generator: NewRSSGenerator(),
	}
}

// PutVideo ingests a single video record.
func (h *Handler) PutVideo(c *gin.Context) {
	var raw model.RawVideo
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return
	}

	vid, err := model.NewVideo(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video record", "details": err.Error()})
		return
	}

	accepted := h.policy.Filter([]model.Video{vid})
	if err := h.db.UpdateMany(accepted); err != nil {
		slog.Error("Database error", "operation", "put_video", "url", vid.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store video"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": len(accepted)})
}

// PutVideos ingests a batch of video records. The body is either a bare
// JSON array or an object with a "content" key holding the array.
func (h *Handler) PutVideos(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	videos, err := model.ParseVideoJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video list", "details": err.Error()})
		return
	}

	accepted := h.policy.Filter(videos)
	if err := h.db.UpdateMany(accepted); err != nil {
		slog.Error("Database error", "operation", "put_videos", "count", len(accepted), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store videos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": len(videos), "stored": len(accepted)})
}

// GetVideos returns records published within a time window. The window
// is given either as start/end timestamps or as hours_ago.
func (h *Handler) GetVideos(c *gin.Context) {
	start, end, err := timeWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := limitParam(c, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channelName := c.Query("channel")

	videos, err := h.db.GetVideoList(start, end, channelName, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_videos", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list videos"})
		return
	}

	c.JSON(http.StatusOK, videoList(videos))
}

// SearchVideos runs a full text query against the search index.
func (h *Handler) SearchVideos(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing q parameter"})
		return
	}

	limit, err := limitParam(c, search.DefaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	videos, err := h.db.QueryVideoList(query, limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
			return
		}
		slog.Error("Database error", "operation", "search_videos", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, videoList(videos))
}

// GetRSSAll renders recent records from all channels as RSS 2.0.
func (h *Handler) GetRSSAll(c *gin.Context) {
	start, end, err := rssWindow(c, 24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	videos, err := h.db.GetVideoList(start, end, "", 0)
	if err != nil {
		slog.Error("Database error", "operation", "rss_all", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.renderRSS(c, videos)
}

// GetRSSChannel renders recent records from one channel as RSS 2.0.
func (h *Handler) GetRSSChannel(c *gin.Context) {
	channelName := c.Param("name")
	if channelName == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	start, end, err := rssWindow(c, 7*24)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	videos, err := h.db.GetVideoList(start, end, channelName, 0)
	if err != nil {
		slog.Error("Database error", "operation", "rss_channel", "channel", channelName, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	h.renderRSS(c, videos)
}

// rssWindow resolves the RSS lookback window from hours_ago.
func rssWindow(c *gin.Context, defaultHours int) (time.Time, time.Time, error) {
	hours := defaultHours
	if raw := c.Query("hours_ago"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return time.Time{}, time.Time{}, errors.New("invalid hours_ago parameter")
		}
		hours = parsed
	}
	end := time.Now().UTC()
	return end.Add(-time.Duration(hours) * time.Hour), end, nil
}

// GetChannels lists the distinct channel names currently stored.
func (h *Handler) GetChannels(c *gin.Context) {
	channels, err := h.db.GetChannelNames()
	if err != nil {
		slog.Error("Database error", "operation", "get_channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	if channels == nil {
		channels = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"total":    len(channels),
	})
}

// APIDeleteChannel removes all records for a channel from both stores.
func (h *Handler) APIDeleteChannel(c *gin.Context) {
	channelName := c.Param("name")
	if channelName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing channel name parameter"})
		return
	}

	if err := h.db.RemoveByChannelName(channelName); err != nil {
		slog.Error("Database error", "operation", "delete_channel", "channel", channelName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove channel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"channel": channelName,
	})
}

// APIReindex rebuilds the search index from the durable store.
func (h *Handler) APIReindex(c *gin.Context) {
	count, err := h.db.RebuildSearchIndex()
	if err != nil {
		slog.Error("Reindex error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rebuild search index"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"indexed": count,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	channels, err := h.db.GetChannelNames()
	if err != nil {
		slog.Error("Database error", "operation", "health", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database unavailable"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"channels":  len(channels),
	})
}

func (h *Handler) GetVersion(c *gin.Context) {
	c.String(http.StatusOK, cfg.GetVersion())
}

func (h *Handler) renderRSS(c *gin.Context, videos []model.Video) {
	rss, err := h.generator.Run(videos)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Video-Items", strconv.Itoa(len(videos)))
	c.String(http.StatusOK, rss)
}

// timeWindow resolves the query window from either start/end timestamps
// or an hours_ago offset. With no parameters the window covers the last
// 24 hours.
func timeWindow(c *gin.Context) (time.Time, time.Time, error) {
	startRaw := c.Query("start")
	endRaw := c.Query("end")
	hoursRaw := c.Query("hours_ago")

	if hoursRaw != "" {
		if startRaw != "" || endRaw != "" {
			return time.Time{}, time.Time{}, errors.New("hours_ago cannot be combined with start or end")
		}
		hours, err := strconv.Atoi(hoursRaw)
		if err != nil || hours <= 0 {
			return time.Time{}, time.Time{}, errors.New("invalid hours_ago parameter")
		}
		end := time.Now().UTC()
		return end.Add(-time.Duration(hours) * time.Hour), end, nil
	}

	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)

	if startRaw != "" {
		parsed, err := model.ParseTimestamp(startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start parameter")
		}
		start = parsed
	}
	if endRaw != "" {
		parsed, err := model.ParseTimestamp(endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end parameter")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end precedes start")
	}

	return start, end, nil
}

func limitParam(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit parameter")
	}
	return limit, nil
}

// videoList guards against a nil slice serializing as JSON null.
func videoList(videos []model.Video) []model.Video {
	if videos == nil {
		return []model.Video{}
	}
	return videos
}
