package postgres

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Yanlebed/htode-sub000/app/models"
)

// MockStore is an in-memory Store for tests. It mirrors the real
// client's validation semantics (caps, missing-user errors, free
// trial on creation) without postgres or redis.
type MockStore struct {
	mu        sync.Mutex
	nextID    int64
	Users     map[int64]*models.User
	Filters   map[int64][]models.UserFilter
	Favorites map[int64][]models.FavoriteAd
	Ads       map[int64]*models.Ad

	// MatchingUsers lets tests pin FindUsersForAd results per ad.
	MatchingUsers map[int64][]int64
	Descriptions  map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{
		nextID:        1,
		Users:         make(map[int64]*models.User),
		Filters:       make(map[int64][]models.UserFilter),
		Favorites:     make(map[int64][]models.FavoriteAd),
		Ads:           make(map[int64]*models.Ad),
		MatchingUsers: make(map[int64][]int64),
		Descriptions:  make(map[string]string),
	}
}

func (m *MockStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MockStore) GetOrCreateUser(ctx context.Context, platform models.Platform, platformID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if id, ok := user.PlatformID(platform); ok && id == platformID {
			return user, nil
		}
	}
	freeUntil := time.Now().UTC().Add(models.FreeTrialDays * 24 * time.Hour)
	user := &models.User{
		ID:        m.id(),
		FreeUntil: &freeUntil,
		CreatedAt: time.Now().UTC(),
	}
	switch platform {
	case models.PlatformTelegram:
		user.TelegramID.String, user.TelegramID.Valid = platformID, true
	case models.PlatformViber:
		user.ViberID.String, user.ViberID.Valid = platformID, true
	case models.PlatformWhatsApp:
		user.WhatsAppID.String, user.WhatsAppID.Valid = platformID, true
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
	}
	m.Users[user.ID] = user
	return user, nil
}

func (m *MockStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Users[userID], nil
}

func (m *MockStore) GetUserIDByPlatformID(ctx context.Context, platform models.Platform, platformID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if id, ok := user.PlatformID(platform); ok && id == platformID {
			return user.ID, nil
		}
	}
	return 0, nil
}

func (m *MockStore) GetPlatformIDs(ctx context.Context, userID int64) (map[models.Platform]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[models.Platform]string)
	user, ok := m.Users[userID]
	if !ok {
		return ids, nil
	}
	for _, platform := range models.AllPlatforms {
		if id, ok := user.PlatformID(platform); ok {
			ids[platform] = id
		}
	}
	return ids, nil
}

func (m *MockStore) LinkPlatformID(ctx context.Context, userID int64, platform models.Platform, platformID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}
	switch platform {
	case models.PlatformTelegram:
		user.TelegramID.String, user.TelegramID.Valid = platformID, true
	case models.PlatformViber:
		user.ViberID.String, user.ViberID.Valid = platformID, true
	case models.PlatformWhatsApp:
		user.WhatsAppID.String, user.WhatsAppID.Valid = platformID, true
	}
	return nil
}

func (m *MockStore) GetSubscriptionStatus(ctx context.Context, userID int64) (*models.SubscriptionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return nil, nil
	}
	return subscriptionStatusOf(user), nil
}

func (m *MockStore) ExtendSubscription(ctx context.Context, userID int64, days int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}
	base := time.Now()
	if user.SubscriptionUntil != nil && user.SubscriptionUntil.After(base) {
		base = *user.SubscriptionUntil
	}
	until := base.Add(time.Duration(days) * 24 * time.Hour)
	user.SubscriptionUntil = &until
	return nil
}

func (m *MockStore) AddFilter(ctx context.Context, filter *models.UserFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[filter.UserID]; !ok {
		return 0, fmt.Errorf("%w: user %d not found", ErrValidation, filter.UserID)
	}
	if len(m.Filters[filter.UserID]) >= models.MaxFiltersPerUser {
		return 0, fmt.Errorf("%w: filter cap of %d reached for user %d", ErrValidation, models.MaxFiltersPerUser, filter.UserID)
	}
	stored := *filter
	stored.ID = m.id()
	m.Filters[filter.UserID] = append(m.Filters[filter.UserID], stored)
	return stored.ID, nil
}

func (m *MockStore) ListFilters(ctx context.Context, userID int64) ([]models.UserFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserFilter{}, m.Filters[userID]...), nil
}

func (m *MockStore) ListFiltersPaginated(ctx context.Context, userID int64, page, perPage int) ([]models.UserFilter, int, error) {
	filters, _ := m.ListFilters(ctx, userID)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
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

func (m *MockStore) UpdateFilter(ctx context.Context, filter *models.UserFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[filter.UserID]; !ok {
		return fmt.Errorf("%w: user %d not found", ErrValidation, filter.UserID)
	}
	filters := m.Filters[filter.UserID]
	for i := range filters {
		if filters[i].ID == filter.ID {
			filters[i] = *filter
			return nil
		}
	}
	return fmt.Errorf("%w: filter %d not found for user %d", ErrValidation, filter.ID, filter.UserID)
}

func (m *MockStore) SetFilterPaused(ctx context.Context, userID, filterID int64, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	filters := m.Filters[userID]
	for i := range filters {
		if filters[i].ID == filterID {
			filters[i].IsPaused = paused
			return nil
		}
	}
	return fmt.Errorf("%w: filter %d not found for user %d", ErrValidation, filterID, userID)
}

func (m *MockStore) RemoveFilter(ctx context.Context, userID, filterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	filters := m.Filters[userID]
	for i := range filters {
		if filters[i].ID == filterID {
			m.Filters[userID] = append(filters[:i], filters[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockStore) CountFilters(ctx context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Filters[userID]), nil
}

func (m *MockStore) AddFavorite(ctx context.Context, userID, adID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[userID]; !ok {
		return fmt.Errorf("%w: user %d not found", ErrValidation, userID)
	}
	for _, favorite := range m.Favorites[userID] {
		if favorite.AdID == adID {
			return fmt.Errorf("%w: ad %d already in favorites of user %d", ErrValidation, adID, userID)
		}
	}
	if len(m.Favorites[userID]) >= models.MaxFavoritesPerUser {
		return fmt.Errorf("%w: favorites cap of %d reached for user %d", ErrValidation, models.MaxFavoritesPerUser, userID)
	}
	m.Favorites[userID] = append(m.Favorites[userID], models.FavoriteAd{
		ID:        m.id(),
		UserID:    userID,
		AdID:      adID,
		CreatedAt: time.Now().UTC(),
		Ad:        m.Ads[adID],
	})
	return nil
}

func (m *MockStore) ListFavorites(ctx context.Context, userID int64) ([]models.FavoriteAd, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	favorites := append([]models.FavoriteAd{}, m.Favorites[userID]...)
	sort.Slice(favorites, func(i, j int) bool { return favorites[i].CreatedAt.After(favorites[j].CreatedAt) })
	return favorites, nil
}

func (m *MockStore) RemoveFavorite(ctx context.Context, userID, adID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	favorites := m.Favorites[userID]
	for i := range favorites {
		if favorites[i].AdID == adID {
			m.Favorites[userID] = append(favorites[:i], favorites[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockStore) GetFullAd(ctx context.Context, adID int64) (*models.Ad, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Ads[adID], nil
}

func (m *MockStore) GetAdImages(ctx context.Context, adID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ad, ok := m.Ads[adID]; ok {
		return ad.Images, nil
	}
	return []string{}, nil
}

func (m *MockStore) GetAdDescription(ctx context.Context, resourceURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Descriptions[resourceURL], nil
}

func (m *MockStore) SaveAd(ctx context.Context, ad *models.Ad) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ad.ID == 0 {
		ad.ID = m.id()
	}
	m.Ads[ad.ID] = ad
	return ad.ID, nil
}

func (m *MockStore) FindUsersForAd(ctx context.Context, adID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MatchingUsers[adID], nil
}
