package postgres

import (
	"context"
	"fmt"

	"github.com/Yanlebed/htode-sub000/app/models"
)

// AddFavorite saves an ad for a user. Duplicate pairs are rejected by
// the unique index and surfaced as validation errors, as is the cap.
func (c *Client) AddFavorite(ctx context.Context, userID, adID int64) error {
	user, err := c.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}

	var count int
	err = c.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM favorite_ads WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("count favorites for user %d: %w", userID, err)
	}
	if count >= models.MaxFavoritesPerUser {
		return fmt.Errorf("%w: favorites cap of %d reached for user %d", ErrValidation, models.MaxFavoritesPerUser, userID)
	}

	result, err := c.db.ExecContext(ctx,
		`INSERT INTO favorite_ads (user_id, ad_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, ad_id) DO NOTHING`,
		userID, adID)
	if err != nil {
		return fmt.Errorf("add favorite %d for user %d: %w", adID, userID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: ad %d already in favorites of user %d", ErrValidation, adID, userID)
	}
	c.favorites.InvalidateAll(userID)
	return nil
}

// ListFavorites returns the user's saved ads with listing details, cached.
func (c *Client) ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteAd, error) {
	if favorites, found := c.favorites.GetFavorites(userID); found {
		return favorites, nil
	}
	favorites := []models.FavoriteAd{}
	err := c.db.SelectContext(ctx, &favorites,
		`SELECT id, user_id, ad_id, created_at
		 FROM favorite_ads WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites for user %d: %w", userID, err)
	}
	for i := range favorites {
		ad, err := c.GetFullAd(ctx, favorites[i].AdID)
		if err != nil {
			return nil, err
		}
		favorites[i].Ad = ad
	}
	if len(favorites) > 0 {
		c.favorites.SetFavorites(userID, favorites)
	}
	return favorites, nil
}

// RemoveFavorite deletes the pair; removing an absent one is not an error.
func (c *Client) RemoveFavorite(ctx context.Context, userID, adID int64) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM favorite_ads WHERE user_id = $1 AND ad_id = $2", userID, adID)
	if err != nil {
		return fmt.Errorf("remove favorite %d for user %d: %w", adID, userID, err)
	}
	c.favorites.InvalidateAll(userID)
	return nil
}
