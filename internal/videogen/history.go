package videogen

import (
	"context"
	"fmt"
	"time"

	"github.com/reelcraft/backend/internal/models"
)

// HistoryClient is the slice of the engine client the history service needs.
type HistoryClient interface {
	GetVideoHistory(ctx context.Context, uid string, page, itemsPerPage int) ([]models.VideoTask, error)
}

// HistoryItem is one generation job shaped for display.
type HistoryItem struct {
	models.VideoTask
	Age           string
	DisplayStatus string
	IsReady       bool
}

// HistoryPage is one fetched page plus the load-more indicator.
type HistoryPage struct {
	Items   []HistoryItem
	Page    int
	HasMore bool
}

// HistoryService fetches generation history page by page with a fixed page
// size and normalizes each item for display.
type HistoryService struct {
	client   HistoryClient
	pageSize int
	nowFunc  func() time.Time
}

// NewHistoryService constructs a history service with the given page size.
func NewHistoryService(client HistoryClient, pageSize int) *HistoryService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &HistoryService{
		client:   client,
		pageSize: pageSize,
		nowFunc:  func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (s *HistoryService) WithNowFunc(now func() time.Time) *HistoryService {
	s.nowFunc = now
	return s
}

// Page fetches page n (1-based). A short page, fewer items than the page
// size, means there are no further pages.
func (s *HistoryService) Page(ctx context.Context, uid string, page int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}

	tasks, err := s.client.GetVideoHistory(ctx, uid, page, s.pageSize)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("fetch history page %d: %w", page, err)
	}

	now := s.nowFunc()
	items := make([]HistoryItem, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, HistoryItem{
			VideoTask:     task,
			Age:           relativeAge(task.CreatedAt, now),
			DisplayStatus: DisplayStatus(task.Status),
			IsReady:       IsReady(task.Status),
		})
	}

	return HistoryPage{
		Items:   items,
		Page:    page,
		HasMore: len(tasks) == s.pageSize,
	}, nil
}

// relativeAge renders a human-friendly age such as "5m ago" or "3d ago".
func relativeAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
