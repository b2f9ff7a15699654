package handler

import (
	"context"
	"net/http"

	"github.com/swellmap/swellmap/internal/api/response"
	"github.com/swellmap/swellmap/internal/news"
)

// NewsFeed is the part of the news service the endpoints use.
type NewsFeed interface {
	Feed() news.Feed
	LoadMore(ctx context.Context) (bool, error)
}

// NewsHandler handles news endpoints.
type NewsHandler struct {
	feed NewsFeed
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(feed NewsFeed) *NewsHandler {
	return &NewsHandler{feed: feed}
}

// GetNews handles GET /v1/news and returns the posts loaded so far.
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.feed.Feed())
}

// LoadMore handles POST /v1/news:more. A call made while a page is loading,
// or after the feed is exhausted, returns the feed unchanged.
func (h *NewsHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	if _, err := h.feed.LoadMore(r.Context()); err != nil {
		response.ServiceUnavailable(w, r, "news feed is unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, h.feed.Feed())
}
