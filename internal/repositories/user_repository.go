package repositories

import (
	"context"

	"github.com/reelcraft/backend/internal/models"
)

// UserRepository defines the data access contract for users and their coin
// balances.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	CreditCoins(ctx context.Context, userID string, amount int64) error
	DebitCoins(ctx context.Context, userID string, amount int64) error
}
