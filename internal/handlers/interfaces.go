package handlers

import (
	"context"

	"github.com/reelcraft/backend/internal/gateway"
	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/payment"
	"github.com/reelcraft/backend/internal/videogen"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// GatewaySession brings the payment provider to a ready state before a flow.
type GatewaySession interface {
	Ensure(ctx context.Context) error
}

// PaymentFlow runs the card and wallet purchase flows end to end.
type PaymentFlow interface {
	PayWithCard(ctx context.Context, intent payment.Intent, card gateway.Card) (payment.Result, error)
	PayWithWallet(ctx context.Context, intent payment.Intent, walletType string) (string, error)
}

// PaymentReader exposes gateway-side payment lookups.
type PaymentReader interface {
	GetPaymentStatus(ctx context.Context, paymentRequestID string) (gateway.PaymentState, error)
	GetPaymentHistory(ctx context.Context, page, limit int, status string) ([]gateway.HistoryEntry, error)
}

// PurchaseConfirmer records a completed charge against the user's account.
type PurchaseConfirmer interface {
	Confirm(ctx context.Context, params payment.ConfirmParams) error
}

// VideoGenerator charges and submits one generation request.
type VideoGenerator interface {
	Generate(ctx context.Context, userID, prompt, imageURL, template string) (models.VideoTask, int64, error)
}

// VideoEngine exposes per-video operations on the remote engine.
type VideoEngine interface {
	GetVideoStatus(ctx context.Context, uid, videoID string) (models.VideoTask, error)
	RemoveVideo(ctx context.Context, uid, videoID string) error
}

// VideoHistory fetches normalized generation history pages.
type VideoHistory interface {
	Page(ctx context.Context, uid string, page int) (videogen.HistoryPage, error)
}

// TemplateCatalog lists the template clips available for generation.
type TemplateCatalog interface {
	ListTemplates(ctx context.Context) ([]models.TemplateVideo, error)
}
