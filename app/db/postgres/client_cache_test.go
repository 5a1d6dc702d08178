package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// memQuerier is the authoritative store behind a Client in cache
// tests: it serves the queries the filter and user methods issue and
// counts how often each table is actually hit.
type memQuerier struct {
	user        models.User
	filters     []models.UserFilter
	userQueries int
	filterScans int
}

type execResult int64

func (r execResult) LastInsertId() (int64, error) { return 0, nil }
func (r execResult) RowsAffected() (int64, error) { return int64(r), nil }

func (q *memQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	switch {
	case strings.Contains(query, "FROM users WHERE id"):
		q.userQueries++
		if args[0].(int64) != q.user.ID {
			return sql.ErrNoRows
		}
		*dest.(*models.User) = q.user
		return nil
	case strings.Contains(query, "COUNT(*) FROM user_filters"):
		*dest.(*int) = len(q.filters)
		return nil
	}
	return sql.ErrNoRows
}

func (q *memQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if strings.Contains(query, "FROM user_filters") {
		q.filterScans++
		rows := dest.(*[]filterRow)
		for _, filter := range q.filters {
			if filter.UserID == args[0].(int64) {
				row := filterRow{UserFilter: filter, Rooms: pq.Int64Array(filter.RoomsCount)}
				*rows = append(*rows, row)
			}
		}
		return nil
	}
	return sql.ErrNoRows
}

func (q *memQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	switch {
	case strings.Contains(query, "UPDATE user_filters SET is_paused"):
		paused, filterID, userID := args[0].(bool), args[1].(int64), args[2].(int64)
		for i := range q.filters {
			if q.filters[i].ID == filterID && q.filters[i].UserID == userID {
				q.filters[i].IsPaused = paused
				return execResult(1), nil
			}
		}
		return execResult(0), nil
	case strings.Contains(query, "UPDATE users SET"):
		if args[len(args)-1].(int64) == q.user.ID {
			q.user.TelegramID = sql.NullString{String: args[0].(string), Valid: true}
			return execResult(1), nil
		}
		return execResult(0), nil
	}
	return execResult(0), nil
}

func newCachedClient(q *memQuerier) *Client {
	cache := redis.NewMockRedisClient()
	return &Client{
		db:            q,
		users:         &redis.UserCacheManager{Client: cache},
		subscriptions: &redis.SubscriptionCacheManager{Client: cache},
		favorites:     &redis.FavoriteCacheManager{Client: cache},
		ads:           &redis.AdCacheManager{Client: cache},
	}
}

func TestListFiltersWriteInvalidatesAndRepopulates(t *testing.T) {
	q := &memQuerier{
		user: models.User{ID: 7},
		filters: []models.UserFilter{
			{ID: 1, UserID: 7, PropertyType: "apartment", City: 10009580, RoomsCount: []int64{2}},
		},
	}
	client := newCachedClient(q)
	ctx := context.Background()

	filters, err := client.ListFilters(ctx, 7)
	assert.NoError(t, err)
	assert.Len(t, filters, 1)
	assert.Equal(t, 1, q.filterScans)

	// second read is served from the cache
	filters, err = client.ListFilters(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, filters[0].IsPaused)
	assert.Equal(t, 1, q.filterScans)

	// a write invalidates, the next read hits the store and sees the
	// written value, not the stale cached one
	assert.NoError(t, client.SetFilterPaused(ctx, 7, 1, true))

	filters, err = client.ListFilters(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, filters[0].IsPaused)
	assert.Equal(t, 2, q.filterScans)

	// and the repopulated cache now carries the write's result
	filters, err = client.ListFilters(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, filters[0].IsPaused)
	assert.Equal(t, 2, q.filterScans)
}

func TestGetUserByIDCachedUntilLinkInvalidates(t *testing.T) {
	q := &memQuerier{user: models.User{ID: 7}}
	client := newCachedClient(q)
	ctx := context.Background()

	user, err := client.GetUserByID(ctx, 7)
	assert.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, 1, q.userQueries)

	_, err = client.GetUserByID(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.userQueries)

	assert.NoError(t, client.LinkPlatformID(ctx, 7, models.PlatformTelegram, "555"))

	user, err = client.GetUserByID(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, 2, q.userQueries)
	assert.Equal(t, "555", user.TelegramID.String)
}
