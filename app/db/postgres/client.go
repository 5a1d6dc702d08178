package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// querier is the slice of sqlx the repository methods use. *sqlx.DB
// satisfies it; tests drive the cache-decorated paths with an
// in-memory one.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Client implements Store over PostgreSQL with cache-decorated reads.
type Client struct {
	db            querier
	users         *redis.UserCacheManager
	subscriptions *redis.SubscriptionCacheManager
	favorites     *redis.FavoriteCacheManager
	ads           *redis.AdCacheManager
}

// NewClient connects to postgres and wires the entity cache managers
// on top of the given redis client.
func NewClient(cfg config.Postgres, cache redis.Client) *Client {
	db, err := sqlx.Open("postgres", cfg.DSN())
	util.Assert(err == nil, "Postgres connection failed", err)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	err = db.Ping()
	util.Assert(err == nil, "Postgres ping failed", err)

	return &Client{
		db:            db,
		users:         &redis.UserCacheManager{Client: cache},
		subscriptions: &redis.SubscriptionCacheManager{Client: cache},
		favorites:     &redis.FavoriteCacheManager{Client: cache},
		ads:           &redis.AdCacheManager{Client: cache},
	}
}
