package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	payments := PaymentHandler{
		Session:   deps.GatewaySession,
		Flow:      deps.PaymentFlow,
		Reader:    deps.PaymentReader,
		Confirmer: deps.Confirmer,
		Limiter:   deps.PaymentLimiter,
	}
	videos := VideoHandler{
		Generator: deps.Generator,
		Engine:    deps.VideoEngine,
		History:   deps.VideoHistory,
		Limiter:   deps.VideoLimiter,
	}
	templates := TemplateHandler{Catalog: deps.Templates}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)
	mux.HandleFunc("/api/v1/payments", payments.Charge)
	mux.HandleFunc("/api/v1/payments/wallet", payments.Wallet)
	mux.HandleFunc("/api/v1/payments/status", payments.Status)
	mux.HandleFunc("/api/v1/payments/history", payments.History)
	mux.HandleFunc("/api/v1/subscription/confirm", payments.ConfirmSubscription)
	mux.HandleFunc("/api/v1/addon/confirm", payments.ConfirmAddon)
	mux.HandleFunc("/api/v1/videos/generate", videos.Generate)
	mux.HandleFunc("/api/v1/videos/status", videos.Status)
	mux.HandleFunc("/api/v1/videos/history", videos.ListHistory)
	mux.HandleFunc("/api/v1/videos/remove", videos.Remove)
	mux.HandleFunc("/api/v1/templates", templates.List)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Sessions       SessionManager
	GatewaySession GatewaySession
	PaymentFlow    PaymentFlow
	PaymentReader  PaymentReader
	Confirmer      PurchaseConfirmer
	Generator      VideoGenerator
	VideoEngine    VideoEngine
	VideoHistory   VideoHistory
	Templates      TemplateCatalog
	AuthLimiter    RateLimiter
	PaymentLimiter RateLimiter
	VideoLimiter   RateLimiter
}
