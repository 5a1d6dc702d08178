package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/lib/pq"
)

// filterRow is the relational shape of a filter; rooms are kept as a
// pq array column and unpacked into the model slice.
type filterRow struct {
	models.UserFilter
	Rooms pq.Int64Array `db:"rooms_count"`
}

func (r *filterRow) toModel() models.UserFilter {
	filter := r.UserFilter
	filter.RoomsCount = []int64(r.Rooms)
	return filter
}

// AddFilter creates a search subscription, enforcing the per-user cap.
func (c *Client) AddFilter(ctx context.Context, filter *models.UserFilter) (int64, error) {
	user, err := c.GetUserByID(ctx, filter.UserID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, fmt.Errorf("%w: user %d not found", ErrValidation, filter.UserID)
	}
	count, err := c.CountFilters(ctx, filter.UserID)
	if err != nil {
		return 0, err
	}
	if count >= models.MaxFiltersPerUser {
		return 0, fmt.Errorf("%w: filter cap of %d reached for user %d", ErrValidation, models.MaxFiltersPerUser, filter.UserID)
	}

	query := `INSERT INTO user_filters
		(user_id, property_type, city, rooms_count, price_min, price_max, is_paused,
		 floor_max, is_not_first_floor, is_not_last_floor, pets_allowed, without_broker)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	var filterID int64
	err = c.db.GetContext(ctx, &filterID, query,
		filter.UserID, filter.PropertyType, filter.City, pq.Int64Array(filter.RoomsCount),
		filter.PriceMin, filter.PriceMax, filter.IsPaused,
		filter.FloorMax, filter.NotFirstFloor, filter.NotLastFloor, filter.PetsAllowed, filter.WithoutBroker)
	if err != nil {
		return 0, fmt.Errorf("add filter for user %d: %w", filter.UserID, err)
	}
	c.subscriptions.InvalidateAll(filter.UserID)
	return filterID, nil
}

// ListFilters returns the user's filters, cached.
func (c *Client) ListFilters(ctx context.Context, userID int64) ([]models.UserFilter, error) {
	if filters, found := c.subscriptions.GetFilters(userID); found {
		return filters, nil
	}
	rows := []filterRow{}
	err := c.db.SelectContext(ctx, &rows,
		"SELECT * FROM user_filters WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list filters for user %d: %w", userID, err)
	}
	filters := make([]models.UserFilter, 0, len(rows))
	for i := range rows {
		filters = append(filters, rows[i].toModel())
	}
	if len(filters) > 0 {
		c.subscriptions.SetFilters(userID, filters)
	}
	return filters, nil
}

// ListFiltersPaginated returns one page plus the total count.
func (c *Client) ListFiltersPaginated(ctx context.Context, userID int64, page, perPage int) ([]models.UserFilter, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
	}
	filters, err := c.ListFilters(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total := len(filters)
	start := (page - 1) * perPage
	if start >= total {
		return []models.UserFilter{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return filters[start:end], total, nil
}

// UpdateFilter rewrites a filter in place. The owning user must exist.
func (c *Client) UpdateFilter(ctx context.Context, filter *models.UserFilter) error {
	user, err := c.GetUserByID(ctx, filter.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user %d not found", ErrValidation, filter.UserID)
	}

	query := `UPDATE user_filters SET
		property_type = $1, city = $2, rooms_count = $3, price_min = $4, price_max = $5,
		is_paused = $6, floor_max = $7, is_not_first_floor = $8, is_not_last_floor = $9,
		pets_allowed = $10, without_broker = $11
		WHERE id = $12 AND user_id = $13`
	result, err := c.db.ExecContext(ctx, query,
		filter.PropertyType, filter.City, pq.Int64Array(filter.RoomsCount),
		filter.PriceMin, filter.PriceMax, filter.IsPaused,
		filter.FloorMax, filter.NotFirstFloor, filter.NotLastFloor, filter.PetsAllowed, filter.WithoutBroker,
		filter.ID, filter.UserID)
	if err != nil {
		return fmt.Errorf("update filter %d: %w", filter.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: filter %d not found for user %d", ErrValidation, filter.ID, filter.UserID)
	}
	c.subscriptions.InvalidateAll(filter.UserID)
	return nil
}

// SetFilterPaused toggles alert delivery for one filter.
func (c *Client) SetFilterPaused(ctx context.Context, userID, filterID int64, paused bool) error {
	result, err := c.db.ExecContext(ctx,
		"UPDATE user_filters SET is_paused = $1 WHERE id = $2 AND user_id = $3",
		paused, filterID, userID)
	if err != nil {
		return fmt.Errorf("set paused on filter %d: %w", filterID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: filter %d not found for user %d", ErrValidation, filterID, userID)
	}
	c.subscriptions.InvalidateAll(userID)
	return nil
}

// RemoveFilter deletes a filter; removing an absent one is not an error.
func (c *Client) RemoveFilter(ctx context.Context, userID, filterID int64) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM user_filters WHERE id = $1 AND user_id = $2", filterID, userID)
	if err != nil {
		return fmt.Errorf("remove filter %d: %w", filterID, err)
	}
	c.subscriptions.InvalidateAll(userID)
	return nil
}

// CountFilters bypasses the cache: the cap check must see committed rows.
func (c *Client) CountFilters(ctx context.Context, userID int64) (int, error) {
	var count int
	err := c.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM user_filters WHERE user_id = $1", userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count filters for user %d: %w", userID, err)
	}
	return count, nil
}
