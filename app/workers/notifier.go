package workers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/tasks"

	"github.com/sirupsen/logrus"
)

// Notifier fans a newly scraped ad out to every user whose filters
// match it. One delivery failure skips that user, never the batch.
type Notifier struct {
	Store   postgres.Store
	Service *messaging.Service
	Cache   redis.Client
}

func NewNotifier(store postgres.Store, service *messaging.Service, cache redis.Client) *Notifier {
	return &Notifier{Store: store, Service: service, Cache: cache}
}

// RegisterJobs binds the notifier to the background dispatcher.
func (n *Notifier) RegisterJobs(dispatcher *tasks.Dispatcher) {
	dispatcher.Register("notify_matching_users", func(ctx context.Context, job tasks.Job) error {
		adID, ok := jobInt64(job, "ad_id")
		if !ok {
			return fmt.Errorf("notify_matching_users: missing ad_id")
		}
		return n.NotifyAd(ctx, adID)
	})
}

// NotifyAd delivers the ad to all matching users, at most once per
// (ad, user) pair: delivered pairs are marked in the cache for as
// long as the ad itself stays cached.
func (n *Notifier) NotifyAd(ctx context.Context, adID int64) error {
	ad, err := n.Store.GetFullAd(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil {
		logrus.Warnf("notify: ad %d vanished before delivery", adID)
		return nil
	}
	userIDs, err := n.Store.FindUsersForAd(ctx, adID)
	if err != nil {
		return err
	}

	delivered := 0
	for _, userID := range userIDs {
		key := redis.CacheKey("notified", strconv.FormatInt(adID, 10), strconv.FormatInt(userID, 10))
		if _, seen := redis.GetString(n.Cache, key); seen {
			continue
		}
		if err := n.Service.SendAdNotification(ctx, userID, ad); err != nil {
			logrus.Warnf("notify: ad %d to user %d failed: %v", adID, userID, err)
			continue
		}
		redis.SetString(n.Cache, key, "1", redis.TTLLong)
		delivered++
	}
	if delivered > 0 {
		config.CONFIG.DataDogClient.Count("notifier.delivered", int64(delivered), []string{}, 1)
	}
	logrus.Infof("notify: ad %d delivered to %d/%d matching users", adID, delivered, len(userIDs))
	return nil
}

// jobInt64 reads a numeric job argument. Args that travelled through
// JSON arrive as float64, internal callers may pass int64 or a string.
func jobInt64(job tasks.Job, key string) (int64, bool) {
	switch v := job.Args[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
