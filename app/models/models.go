package models

import (
	"database/sql"
	"time"
)

// User is the canonical identity record. At most one external id per
// platform, each globally unique when present.
type User struct {
	ID                int64          `db:"id" json:"id"`
	TelegramID        sql.NullString `db:"telegram_id" json:"telegram_id,omitempty"`
	ViberID           sql.NullString `db:"viber_id" json:"viber_id,omitempty"`
	WhatsAppID        sql.NullString `db:"whatsapp_id" json:"whatsapp_id,omitempty"`
	PhoneNumber       sql.NullString `db:"phone_number" json:"phone_number,omitempty"`
	FreeUntil         *time.Time     `db:"free_until" json:"free_until,omitempty"`
	SubscriptionUntil *time.Time     `db:"subscription_until" json:"subscription_until,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
	LastActive        time.Time      `db:"last_active" json:"last_active"`
}

// IsSubscriptionActive reports whether either expiry timestamp is in the future.
func (u *User) IsSubscriptionActive() bool {
	now := time.Now()
	return (u.FreeUntil != nil && u.FreeUntil.After(now)) ||
		(u.SubscriptionUntil != nil && u.SubscriptionUntil.After(now))
}

// PlatformID returns the user's external id for the given platform.
func (u *User) PlatformID(p Platform) (string, bool) {
	var v sql.NullString
	switch p {
	case PlatformTelegram:
		v = u.TelegramID
	case PlatformViber:
		v = u.ViberID
	case PlatformWhatsApp:
		v = u.WhatsAppID
	}
	return v.String, v.Valid
}

// UserFilter is a stored search subscription. A user holds at most
// MaxFiltersPerUser of these.
type UserFilter struct {
	ID            int64    `db:"id" json:"id"`
	UserID        int64    `db:"user_id" json:"user_id"`
	PropertyType  string   `db:"property_type" json:"property_type"`
	City          int64    `db:"city" json:"city"`
	RoomsCount    []int64  `db:"-" json:"rooms_count,omitempty"`
	PriceMin      *float64 `db:"price_min" json:"price_min,omitempty"`
	PriceMax      *float64 `db:"price_max" json:"price_max,omitempty"`
	IsPaused      bool     `db:"is_paused" json:"is_paused"`
	FloorMax      *int64   `db:"floor_max" json:"floor_max,omitempty"`
	NotFirstFloor *bool    `db:"is_not_first_floor" json:"is_not_first_floor,omitempty"`
	NotLastFloor  *bool    `db:"is_not_last_floor" json:"is_not_last_floor,omitempty"`
	PetsAllowed   *bool    `db:"pets_allowed" json:"pets_allowed,omitempty"`
	WithoutBroker *bool    `db:"without_broker" json:"without_broker,omitempty"`
}

// Ad is a listing as rendered to users. Price and area are scanned to
// float64 so cached payloads stay JSON-safe.
type Ad struct {
	ID           int64    `db:"id" json:"id"`
	ExternalID   string   `db:"external_id" json:"external_id"`
	ResourceURL  string   `db:"resource_url" json:"resource_url"`
	PropertyType string   `db:"property_type" json:"property_type"`
	City         int64    `db:"city" json:"city"`
	Address      string   `db:"address" json:"address"`
	Price        float64  `db:"price" json:"price"`
	RoomsCount   int64    `db:"rooms_count" json:"rooms_count"`
	SquareFeet   float64  `db:"square_feet" json:"square_feet"`
	Floor        int64    `db:"floor" json:"floor"`
	TotalFloors  int64    `db:"total_floors" json:"total_floors"`
	Images       []string `db:"-" json:"images,omitempty"`
	Phones       []string `db:"-" json:"phones,omitempty"`
}

// FavoriteAd joins a user and an ad, unique per pair.
type FavoriteAd struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	AdID      int64     `db:"ad_id" json:"ad_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Ad        *Ad       `db:"-" json:"ad,omitempty"`
}

// SubscriptionStatus is the cached answer to "can this user receive alerts".
type SubscriptionStatus struct {
	Active            bool   `json:"active"`
	FreeActive        bool   `json:"free_active"`
	PaidActive        bool   `json:"paid_active"`
	FreeUntil         string `json:"free_until,omitempty"`
	SubscriptionUntil string `json:"subscription_until,omitempty"`
}

// StateDocument is the per-(platform,user) conversation state blob kept in
// the cache store only.
type StateDocument struct {
	State      string         `json:"state"`
	ActiveFlow string         `json:"active_flow"`
	FlowData   map[string]any `json:"flow_data"`
}

// MenuOption is the platform-neutral shape of a single menu button.
type MenuOption struct {
	Text   string `json:"text"`
	Value  string `json:"value"`
	URL    string `json:"url,omitempty"`
	WebApp string `json:"web_app,omitempty"`
}

const (
	MaxFiltersPerUser   = 20
	MaxFavoritesPerUser = 50
	FreeTrialDays       = 7
)
