package videogen

import (
	"strings"
	"time"

	"github.com/reelcraft/backend/internal/models"
)

// rawVideo is the engine's wire shape. The engine has shipped both
// snake_case and camelCase field names over time, so both are accepted here
// and nowhere else: this is the single normalization boundary.
type rawVideo struct {
	VideoID         string `json:"video_id"`
	VideoIDCamel    string `json:"videoId"`
	PromptText      string `json:"prompt_text"`
	PromptTextCamel string `json:"promptText"`
	Status          string `json:"status"`
	VideoURL        string `json:"video_url"`
	VideoURLCamel   string `json:"videoUrl"`
	CreatedAt       int64  `json:"created_at"`
	CreatedAtCamel  int64  `json:"createdAt"`
}

func (r rawVideo) normalize() models.VideoTask {
	task := models.VideoTask{
		VideoID:    firstNonEmpty(r.VideoID, r.VideoIDCamel),
		PromptText: firstNonEmpty(r.PromptText, r.PromptTextCamel),
		Status:     r.Status,
		VideoURL:   firstNonEmpty(r.VideoURL, r.VideoURLCamel),
	}

	if unix := r.CreatedAt; unix == 0 {
		unix = r.CreatedAtCamel
		if unix > 0 {
			task.CreatedAt = time.Unix(unix, 0).UTC()
		}
	} else {
		task.CreatedAt = time.Unix(unix, 0).UTC()
	}

	return task
}

// IsReady reports whether a task has a playable output. The engine reports
// success as either SUCCEEDED or completed depending on the pipeline.
func IsReady(status string) bool {
	return status == "SUCCEEDED" || status == "completed"
}

// DisplayStatus maps the engine's raw status enum to the label shown to users.
func DisplayStatus(status string) string {
	if IsReady(status) {
		return "Ready"
	}
	switch strings.ToLower(status) {
	case "failed", "error":
		return "Failed"
	default:
		return "Generating"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
