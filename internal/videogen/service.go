package videogen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelcraft/backend/internal/models"
	"github.com/reelcraft/backend/internal/repositories"
)

// ErrEmptyRequest signals a generation request with neither a prompt nor an
// image to work from.
var ErrEmptyRequest = errors.New("videogen: prompt or image is required")

// Engine is the slice of the remote engine client the generation service needs.
type Engine interface {
	CreateVideo(ctx context.Context, params CreateVideoParams) (models.VideoTask, error)
}

// CoinLedger debits and credits a user's coin balance.
type CoinLedger interface {
	DebitCoins(ctx context.Context, userID string, amount int64) error
	CreditCoins(ctx context.Context, userID string, amount int64) error
}

// GenerationService charges coins for a generation and submits it to the
// remote engine. The debit happens before the engine call; an engine failure
// refunds it.
type GenerationService struct {
	engine Engine
	coins  CoinLedger
	logger *slog.Logger
}

// NewGenerationService wires the generation flow over its collaborators.
func NewGenerationService(engine Engine, coins CoinLedger, logger *slog.Logger) *GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{engine: engine, coins: coins, logger: logger}
}

// Generate resolves the request mode, charges its coin cost, and submits the
// job. Returns the created task along with the coins charged.
func (s *GenerationService) Generate(ctx context.Context, userID, prompt, imageURL, template string) (models.VideoTask, int64, error) {
	req := BuildRequest(prompt, imageURL, template)
	if req.PromptText == "" && req.ImageURL == "" {
		return models.VideoTask{}, 0, ErrEmptyRequest
	}

	if err := s.coins.DebitCoins(ctx, userID, req.Cost); err != nil {
		if errors.Is(err, repositories.ErrInsufficientFunds) {
			return models.VideoTask{}, req.Cost, ErrInsufficientCoins
		}
		return models.VideoTask{}, req.Cost, fmt.Errorf("charge generation: %w", err)
	}

	task, err := s.engine.CreateVideo(ctx, CreateVideoParams{
		UID:        userID,
		PromptText: req.PromptText,
		ImageURL:   req.ImageURL,
		Template:   req.Template,
	})
	if err != nil {
		if rerr := s.coins.CreditCoins(ctx, userID, req.Cost); rerr != nil {
			s.logger.Error("refund after failed generation",
				"userId", userID, "coins", req.Cost, "error", rerr)
		}
		return models.VideoTask{}, req.Cost, fmt.Errorf("create video: %w", err)
	}

	return task, req.Cost, nil
}
