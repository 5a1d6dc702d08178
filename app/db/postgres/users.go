package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
)

// platformColumn maps a platform to its users column. Closed set, so
// the column name is safe to interpolate.
func platformColumn(platform models.Platform) (string, error) {
	switch platform {
	case models.PlatformTelegram:
		return "telegram_id", nil
	case models.PlatformViber:
		return "viber_id", nil
	case models.PlatformWhatsApp:
		return "whatsapp_id", nil
	}
	return "", fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
}

// GetOrCreateUser returns the user linked to the platform id, creating
// one with a free trial when none exists. Repeated calls for the same
// id never extend the trial.
func (c *Client) GetOrCreateUser(ctx context.Context, platform models.Platform, platformID string) (*models.User, error) {
	column, err := platformColumn(platform)
	if err != nil {
		return nil, err
	}

	user := &models.User{}
	query := fmt.Sprintf("SELECT * FROM users WHERE %s = $1", column)
	err = c.db.GetContext(ctx, user, query, platformID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}

	freeUntil := time.Now().UTC().Add(models.FreeTrialDays * 24 * time.Hour)
	insert := fmt.Sprintf(
		"INSERT INTO users (%s, free_until, created_at, updated_at, last_active) VALUES ($1, $2, NOW(), NOW(), NOW()) RETURNING *",
		column,
	)
	if err := c.db.GetContext(ctx, user, insert, platformID, freeUntil); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logrus.Infof("created user %d via %s with free trial until %s", user.ID, platform, freeUntil.Format(time.RFC3339))

	c.users.SetUser(user)
	c.users.SetUserIDByPlatform(platform, platformID, user.ID)
	return user, nil
}

// GetUserByID returns nil without error when the user does not exist.
func (c *Client) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	if user, found := c.users.GetUser(userID); found {
		return user, nil
	}
	user := &models.User{}
	err := c.db.GetContext(ctx, user, "SELECT * FROM users WHERE id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	c.users.SetUser(user)
	return user, nil
}

// GetUserIDByPlatformID returns 0 when no user is linked to the id.
func (c *Client) GetUserIDByPlatformID(ctx context.Context, platform models.Platform, platformID string) (int64, error) {
	if userID, found := c.users.GetUserIDByPlatform(platform, platformID); found {
		return userID, nil
	}
	column, err := platformColumn(platform)
	if err != nil {
		return 0, err
	}
	var userID int64
	query := fmt.Sprintf("SELECT id FROM users WHERE %s = $1", column)
	err = c.db.GetContext(ctx, &userID, query, platformID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get user id by %s: %w", column, err)
	}
	c.users.SetUserIDByPlatform(platform, platformID, userID)
	return userID, nil
}

// GetPlatformIDs returns the user's linked ids keyed by platform,
// empty map when the user does not exist.
func (c *Client) GetPlatformIDs(ctx context.Context, userID int64) (map[models.Platform]string, error) {
	user, err := c.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[models.Platform]string)
	if user == nil {
		return ids, nil
	}
	for _, platform := range models.AllPlatforms {
		if id, ok := user.PlatformID(platform); ok {
			ids[platform] = id
		}
	}
	return ids, nil
}

// LinkPlatformID attaches another platform id to an existing user.
func (c *Client) LinkPlatformID(ctx context.Context, userID int64, platform models.Platform, platformID string) error {
	column, err := platformColumn(platform)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE users SET %s = $1, updated_at = NOW() WHERE id = $2", column)
	result, err := c.db.ExecContext(ctx, query, platformID, userID)
	if err != nil {
		return fmt.Errorf("link %s for user %d: %w", column, userID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}
	c.users.InvalidateAll(userID, map[models.Platform]string{platform: platformID})
	return nil
}

// GetSubscriptionStatus answers "can this user receive alerts".
func (c *Client) GetSubscriptionStatus(ctx context.Context, userID int64) (*models.SubscriptionStatus, error) {
	if status, found := c.subscriptions.GetStatus(userID); found {
		return status, nil
	}
	user, err := c.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	status := subscriptionStatusOf(user)
	c.subscriptions.SetStatus(userID, status)
	return status, nil
}

func subscriptionStatusOf(user *models.User) *models.SubscriptionStatus {
	now := time.Now()
	status := &models.SubscriptionStatus{
		FreeActive: user.FreeUntil != nil && user.FreeUntil.After(now),
		PaidActive: user.SubscriptionUntil != nil && user.SubscriptionUntil.After(now),
	}
	status.Active = status.FreeActive || status.PaidActive
	if user.FreeUntil != nil {
		status.FreeUntil = user.FreeUntil.Format(time.RFC3339)
	}
	if user.SubscriptionUntil != nil {
		status.SubscriptionUntil = user.SubscriptionUntil.Format(time.RFC3339)
	}
	return status
}

// ExtendSubscription pushes the paid expiry forward from the later of
// now and the current expiry.
func (c *Client) ExtendSubscription(ctx context.Context, userID int64, days int) error {
	query := `UPDATE users
		SET subscription_until = GREATEST(COALESCE(subscription_until, NOW()), NOW()) + make_interval(days => $1),
		    updated_at = NOW()
		WHERE id = $2`
	result, err := c.db.ExecContext(ctx, query, days, userID)
	if err != nil {
		return fmt.Errorf("extend subscription for user %d: %w", userID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}
	platformIDs, _ := c.GetPlatformIDs(ctx, userID)
	c.users.InvalidateAll(userID, platformIDs)
	c.subscriptions.InvalidateAll(userID)
	return nil
}
