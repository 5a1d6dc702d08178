package postgres

import (
	"context"
	"errors"

	"github.com/Yanlebed/htode-sub000/app/models"
)

// ErrValidation marks caller mistakes: caps exceeded, references to
// users that do not exist. Callers surface these to the end user
// instead of logging them as failures.
var ErrValidation = errors.New("validation error")

// Store is the single source of truth for users, filters, favorites
// and ads. Reads are cache-decorated, every write invalidates the
// matching entity caches before returning.
type Store interface {
	// users
	GetOrCreateUser(ctx context.Context, platform models.Platform, platformID string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetUserIDByPlatformID(ctx context.Context, platform models.Platform, platformID string) (int64, error)
	GetPlatformIDs(ctx context.Context, userID int64) (map[models.Platform]string, error)
	LinkPlatformID(ctx context.Context, userID int64, platform models.Platform, platformID string) error
	GetSubscriptionStatus(ctx context.Context, userID int64) (*models.SubscriptionStatus, error)
	ExtendSubscription(ctx context.Context, userID int64, days int) error

	// filters
	AddFilter(ctx context.Context, filter *models.UserFilter) (int64, error)
	ListFilters(ctx context.Context, userID int64) ([]models.UserFilter, error)
	ListFiltersPaginated(ctx context.Context, userID int64, page, perPage int) ([]models.UserFilter, int, error)
	UpdateFilter(ctx context.Context, filter *models.UserFilter) error
	SetFilterPaused(ctx context.Context, userID, filterID int64, paused bool) error
	RemoveFilter(ctx context.Context, userID, filterID int64) error
	CountFilters(ctx context.Context, userID int64) (int, error)

	// favorites
	AddFavorite(ctx context.Context, userID, adID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteAd, error)
	RemoveFavorite(ctx context.Context, userID, adID int64) error

	// ads
	GetFullAd(ctx context.Context, adID int64) (*models.Ad, error)
	GetAdImages(ctx context.Context, adID int64) ([]string, error)
	GetAdDescription(ctx context.Context, resourceURL string) (string, error)
	SaveAd(ctx context.Context, ad *models.Ad) (int64, error)
	FindUsersForAd(ctx context.Context, adID int64) ([]int64, error)
}

var DB Store
