package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/videogen"
)

type generatorStub struct {
	task models.VideoTask
	cost int64
	err  error

	lastPrompt   string
	lastImage    string
	lastTemplate string
}

func (g *generatorStub) Generate(_ context.Context, _, prompt, imageURL, template string) (models.VideoTask, int64, error) {
	g.lastPrompt, g.lastImage, g.lastTemplate = prompt, imageURL, template
	return g.task, g.cost, g.err
}

type videoEngineStub struct {
	task    models.VideoTask
	err     error
	removed []string
}

func (e *videoEngineStub) GetVideoStatus(_ context.Context, _, _ string) (models.VideoTask, error) {
	return e.task, e.err
}

func (e *videoEngineStub) RemoveVideo(_ context.Context, _, videoID string) error {
	if e.err != nil {
		return e.err
	}
	e.removed = append(e.removed, videoID)
	return nil
}

type historyStub struct {
	page videogen.HistoryPage
	err  error
}

func (h *historyStub) Page(_ context.Context, _ string, _ int) (videogen.HistoryPage, error) {
	return h.page, h.err
}

func TestVideoHandlerGenerate(t *testing.T) {
	gen := &generatorStub{task: models.VideoTask{VideoID: "vid_1", Status: "pending"}, cost: 30}
	handler := VideoHandler{Generator: gen}

	body, _ := json.Marshal(generateRequest{UserID: "user-1", Prompt: "a cat surfing"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Generate(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d got %d: %s", http.StatusAccepted, rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["videoId"] != "vid_1" || resp["status"] != "Generating" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestVideoHandlerGenerateInsufficientCoins(t *testing.T) {
	gen := &generatorStub{cost: 55, err: videogen.ErrInsufficientCoins}
	handler := VideoHandler{Generator: gen}

	body, _ := json.Marshal(generateRequest{UserID: "user-1", ImageURL: "https://img.example/me.jpg", Template: "hug"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Generate(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status %d got %d", http.StatusPaymentRequired, rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["recharge"] != true {
		t.Fatalf("expected recharge hint, got %+v", resp)
	}
	if resp["required"] != float64(55) {
		t.Fatalf("expected required cost 55, got %+v", resp["required"])
	}
}

func TestVideoHandlerGenerateEmptyRequest(t *testing.T) {
	handler := VideoHandler{Generator: &generatorStub{err: videogen.ErrEmptyRequest}}

	body, _ := json.Marshal(generateRequest{UserID: "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Generate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestVideoHandlerStatus(t *testing.T) {
	engine := &videoEngineStub{task: models.VideoTask{VideoID: "vid_1", Status: "SUCCEEDED", VideoURL: "https://cdn.example/vid_1.mp4"}}
	handler := VideoHandler{Engine: engine}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/status?userId=user-1&videoId=vid_1", nil)
	rec := httptest.NewRecorder()

	handler.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["isReady"] != true || resp["status"] != "Ready" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestVideoHandlerHistory(t *testing.T) {
	history := &historyStub{page: videogen.HistoryPage{
		Items: []videogen.HistoryItem{
			{
				VideoTask:     models.VideoTask{VideoID: "vid_1", PromptText: "a cat"},
				Age:           "3h ago",
				DisplayStatus: "Ready",
				IsReady:       true,
			},
		},
		Page:    1,
		HasMore: true,
	}}
	handler := VideoHandler{History: history}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/history?userId=user-1&page=1", nil)
	rec := httptest.NewRecorder()

	handler.ListHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Videos []map[string]any `json:"videos"`
		Page   int              `json:"page"`
		More   bool             `json:"hasMore"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Videos) != 1 || !resp.More {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Videos[0]["age"] != "3h ago" {
		t.Fatalf("expected relative age, got %+v", resp.Videos[0])
	}
}

func TestVideoHandlerRemove(t *testing.T) {
	engine := &videoEngineStub{}
	handler := VideoHandler{Engine: engine}

	body, _ := json.Marshal(removeRequest{UserID: "user-1", VideoID: "vid_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/remove", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Remove(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(engine.removed) != 1 || engine.removed[0] != "vid_1" {
		t.Fatalf("unexpected removals: %+v", engine.removed)
	}
}

func TestVideoHandlerRemoveEngineFailure(t *testing.T) {
	engine := &videoEngineStub{err: errors.New("engine down")}
	handler := VideoHandler{Engine: engine}

	body, _ := json.Marshal(removeRequest{UserID: "user-1", VideoID: "vid_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/remove", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Remove(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d got %d", http.StatusBadGateway, rec.Code)
	}
}
