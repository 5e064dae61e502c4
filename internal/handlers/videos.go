package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/reelcraft/backend/internal/logging"
	"github.com/reelcraft/backend/internal/videogen"
)

// VideoHandler implements the video generation endpoints.
type VideoHandler struct {
	Generator VideoGenerator
	Engine    VideoEngine
	History   VideoHistory
	Limiter   RateLimiter
}

type generateRequest struct {
	UserID   string `json:"userId"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	Template string `json:"template"`
}

type removeRequest struct {
	UserID  string `json:"userId"`
	VideoID string `json:"videoId"`
}

// Generate handles POST /api/v1/videos/generate requests. The coin cost is
// charged up front; a short balance returns 402 with a recharge hint.
func (h VideoHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "videos") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many generation requests"})
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid generate payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	task, cost, err := h.Generator.Generate(ctx, req.UserID, req.Prompt, req.ImageURL, req.Template)
	if err != nil {
		switch {
		case errors.Is(err, videogen.ErrEmptyRequest):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "prompt or image is required"})
		case errors.Is(err, videogen.ErrInsufficientCoins):
			respondJSON(ctx, w, http.StatusPaymentRequired, map[string]any{
				"error":    "insufficient coins",
				"required": cost,
				"recharge": true,
			})
		default:
			logger.Error("video generation failed", "userId", req.UserID, "error", err)
			respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "video generation failed"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]any{
		"videoId": task.VideoID,
		"status":  videogen.DisplayStatus(task.Status),
		"cost":    cost,
	})
}

// Status handles GET /api/v1/videos/status requests.
func (h VideoHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if userID == "" || videoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId and videoId are required"})
		return
	}

	task, err := h.Engine.GetVideoStatus(ctx, userID, videoID)
	if err != nil {
		logger.Error("video status lookup failed", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to fetch video status"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"videoId":  task.VideoID,
		"status":   videogen.DisplayStatus(task.Status),
		"isReady":  videogen.IsReady(task.Status),
		"videoUrl": task.VideoURL,
	})
}

// ListHistory handles GET /api/v1/videos/history requests.
func (h VideoHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}
	page := queryInt(r, "page", 1)

	result, err := h.History.Page(ctx, userID, page)
	if err != nil {
		logger.Error("video history fetch failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to fetch video history"})
		return
	}

	items := make([]map[string]any, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, map[string]any{
			"videoId":    item.VideoID,
			"promptText": item.PromptText,
			"status":     item.DisplayStatus,
			"isReady":    item.IsReady,
			"videoUrl":   item.VideoURL,
			"age":        item.Age,
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"videos":  items,
		"page":    result.Page,
		"hasMore": result.HasMore,
	})
}

// Remove handles POST /api/v1/videos/remove requests.
func (h VideoHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid remove payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" || req.VideoID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId and videoId are required"})
		return
	}

	if err := h.Engine.RemoveVideo(ctx, req.UserID, req.VideoID); err != nil {
		logger.Error("video removal failed", "videoId", req.VideoID, "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "unable to remove video"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}
