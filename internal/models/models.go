package models

import "time"

// User represents an account within the Reelcraft platform.
type User struct {
	ID        string
	Email     string
	Password  string
	Coins     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentStatus enumerates the gateway-side lifecycle of a payment request.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentMethod identifies how a payment request is funded.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// PaymentRecord mirrors one gateway payment request for local history.
type PaymentRecord struct {
	ID               string
	UserID           string
	PaymentRequestID string
	Amount           float64
	Currency         string
	Method           PaymentMethod
	Status           PaymentStatus
	PlanID           string
	AddonID          string
	ResultCode       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PurchaseKind distinguishes what a confirmed payment bought.
type PurchaseKind string

const (
	PurchaseKindSubscription PurchaseKind = "subscription"
	PurchaseKindAddon        PurchaseKind = "addon"
)

// Purchase records a confirmed subscription or addon, keyed by the gateway
// payment request so confirmation stays idempotent.
type Purchase struct {
	ID               string
	UserID           string
	Kind             PurchaseKind
	PlanID           string
	AddonID          string
	Amount           float64
	PaymentRequestID string
	CoinsGranted     int64
	CreatedAt        time.Time
}

// ReconcileJob is a durable retry entry for a confirmation that failed after
// the gateway reported the charge completed.
type ReconcileJob struct {
	ID               string
	UserID           string
	Kind             PurchaseKind
	PlanID           string
	AddonID          string
	Amount           float64
	PaymentRequestID string
	Attempts         int
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VideoTask is the canonical shape of one generation job on the remote
// engine, after normalization of the engine's wire fields.
type VideoTask struct {
	VideoID    string
	PromptText string
	Status     string
	VideoURL   string
	CreatedAt  time.Time
}

// TemplateCategory splits the template catalog into pricing tiers.
type TemplateCategory string

const (
	TemplateCategoryBasic   TemplateCategory = "basic"
	TemplateCategoryPremium TemplateCategory = "premium"
)

// TemplateVideo is one pre-recorded reference clip from the catalog.
type TemplateVideo struct {
	ID          string
	Name        string
	VideoURL    string
	Category    TemplateCategory
	Description string
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
