package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelcraft/backend/internal/models"
)

// ErrMissingVideoID indicates the engine accepted a request but returned no
// video identifier.
var ErrMissingVideoID = errors.New("videogen: response missing video id")

// CreateVideoParams is one generation request to the remote engine.
type CreateVideoParams struct {
	UID            string
	PromptText     string
	ImageURL       string
	Template       string
	NegativePrompt string
	Size           string
}

// Client wraps the remote video-generation engine's REST API. Every call is
// a JSON POST carrying the engine API key as a bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs an engine client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateVideo submits a generation job and returns the normalized task.
func (c *Client) CreateVideo(ctx context.Context, params CreateVideoParams) (models.VideoTask, error) {
	payload := map[string]string{
		"uid":             params.UID,
		"promptText":      params.PromptText,
		"imageUrl":        params.ImageURL,
		"template":        params.Template,
		"negative_prompt": params.NegativePrompt,
		"size":            params.Size,
	}

	var raw rawVideo
	if err := c.post(ctx, "/api/video/createVideo", payload, &raw); err != nil {
		return models.VideoTask{}, fmt.Errorf("create video: %w", err)
	}

	task := raw.normalize()
	if task.VideoID == "" {
		return models.VideoTask{}, ErrMissingVideoID
	}
	return task, nil
}

// GetVideoStatus fetches the current state of one generation job.
func (c *Client) GetVideoStatus(ctx context.Context, uid, videoID string) (models.VideoTask, error) {
	payload := map[string]string{"uid": uid, "videoId": videoID}

	var raw rawVideo
	if err := c.post(ctx, "/api/video/getVideoStatus", payload, &raw); err != nil {
		return models.VideoTask{}, fmt.Errorf("get video status: %w", err)
	}
	return raw.normalize(), nil
}

// GetVideoHistory fetches one page of the user's generation history, already
// normalized to the canonical task shape.
func (c *Client) GetVideoHistory(ctx context.Context, uid string, page, itemsPerPage int) ([]models.VideoTask, error) {
	payload := map[string]any{
		"uid":          uid,
		"page":         page,
		"itemsPerPage": itemsPerPage,
	}

	var out struct {
		Videos []rawVideo `json:"videos"`
	}
	if err := c.post(ctx, "/api/video/getVideoHistory", payload, &out); err != nil {
		return nil, fmt.Errorf("get video history: %w", err)
	}

	tasks := make([]models.VideoTask, 0, len(out.Videos))
	for _, raw := range out.Videos {
		tasks = append(tasks, raw.normalize())
	}
	return tasks, nil
}

// RemoveVideo deletes one generation job and its output.
func (c *Client) RemoveVideo(ctx context.Context, uid, videoID string) error {
	payload := map[string]string{"uid": uid, "videoId": videoID}
	if err := c.post(ctx, "/api/video/removeVideo", payload, nil); err != nil {
		return fmt.Errorf("remove video: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine: %s", responseMessage(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func responseMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		}
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
