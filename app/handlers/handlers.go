package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/flows"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/models"
	"github.com/Yanlebed/htode-sub000/app/util"

	"github.com/sirupsen/logrus"
)

// maxMessageLength is the Bot API text limit, the strictest of the
// three platforms.
const maxMessageLength = 4096

// Inbound is the single entry point for every platform's webhook
// layer: it receives the already-parsed (platform, native user id,
// text) triple and routes it to ad actions, the active flow, or flow
// startup by alias.
type Inbound struct {
	Store   postgres.Store
	Library *flows.Library
	Sender  *messaging.Sender
}

func NewInbound(store postgres.Store, library *flows.Library, sender *messaging.Sender) *Inbound {
	return &Inbound{Store: store, Library: library, Sender: sender}
}

// HandleMessage processes one inbound message end to end. It never
// returns an error to the webhook layer: a broken turn is logged and
// the webhook acknowledged so the platform does not redeliver.
func (h *Inbound) HandleMessage(ctx context.Context, platform models.Platform, platformID string, text string) {
	user, err := h.Store.GetOrCreateUser(ctx, platform, platformID)
	if err != nil {
		logrus.Errorf("inbound %s:%s: get-or-create failed: %v", platform, platformID, err)
		return
	}
	config.CONFIG.DataDogClient.Incr("inbound.message", []string{"platform:" + string(platform)}, 1)

	text = strings.TrimSpace(text)
	if h.handleAdAction(ctx, user, platform, platformID, text) {
		return
	}

	handled, err := h.Library.ProcessMessage(ctx, platform, platformID, user.ID, text)
	if err != nil {
		logrus.Errorf("inbound %s:%s: flow dispatch failed: %v", platform, platformID, err)
		return
	}
	if handled {
		return
	}

	if name := h.Library.ResolveFlowName(text); name != "" {
		if err := h.Library.StartFlow(ctx, name, platform, platformID, user.ID, nil); err != nil {
			logrus.Errorf("inbound %s:%s: starting flow %q failed: %v", platform, platformID, name, err)
		}
		return
	}

	h.sendMainMenu(ctx, platform, platformID)
}

var mainMenuOptions = []models.MenuOption{
	{Text: "🔍 Пошук нерухомості", Value: "search"},
	{Text: "📋 Мої підписки", Value: "subscriptions"},
	{Text: "❤️ Обрані", Value: "favorites"},
	{Text: "🆘 Підтримка", Value: "support"},
}

func (h *Inbound) sendMainMenu(ctx context.Context, platform models.Platform, platformID string) {
	h.Sender.SafeSendMenu(ctx, platformID, platform, "Оберіть, що вас цікавить:", mainMenuOptions)
}

// handleAdAction executes the button/reply actions attached to a
// listing card: favorites, full description, photos, phones. True
// when the message was one of those.
func (h *Inbound) handleAdAction(ctx context.Context, user *models.User, platform models.Platform, platformID string, text string) bool {
	action, argument, found := strings.Cut(normalizeAdAction(text), ":")
	if !found {
		return false
	}

	switch action {
	case "add_fav":
		adID, err := strconv.ParseInt(argument, 10, 64)
		if err != nil {
			return false
		}
		h.addFavorite(ctx, user, platform, platformID, adID)
	case "show_more":
		h.sendDescription(ctx, platform, platformID, argument)
	case "photos":
		adID, err := strconv.ParseInt(argument, 10, 64)
		if err != nil {
			return false
		}
		h.sendPhotos(ctx, platform, platformID, adID)
	case "phones":
		adID, err := strconv.ParseInt(argument, 10, 64)
		if err != nil {
			return false
		}
		h.sendPhones(ctx, platform, platformID, adID)
	case "favorites":
		h.sendFavorites(ctx, user, platform, platformID)
	default:
		return false
	}
	return true
}

// normalizeAdAction maps the WhatsApp text replies ("фото 5") onto
// the same action:argument shape the callback buttons produce.
func normalizeAdAction(text string) string {
	lowered := strings.ToLower(text)
	for prefix, action := range map[string]string{
		"фото ": "photos:",
		"тел ":  "phones:",
		"обр ":  "add_fav:",
		"опис ": "show_more:",
	} {
		if strings.HasPrefix(lowered, prefix) {
			return action + strings.TrimSpace(strings.TrimPrefix(lowered, prefix))
		}
	}
	if lowered == "обрані" || lowered == "favorites" {
		return "favorites:all"
	}
	return text
}

func (h *Inbound) addFavorite(ctx context.Context, user *models.User, platform models.Platform, platformID string, adID int64) {
	err := h.Store.AddFavorite(ctx, user.ID, adID)
	switch {
	case err == nil:
		h.Sender.SafeSendMessage(ctx, platformID, platform, "❤️ Додано в обрані.")
	case errors.Is(err, postgres.ErrValidation):
		h.Sender.SafeSendMessage(ctx, platformID, platform, "⚠️ "+err.Error())
	default:
		logrus.Errorf("add favorite %d for user %d: %v", adID, user.ID, err)
		h.Sender.SafeSendMessage(ctx, platformID, platform, "Не вдалося додати в обрані, спробуйте ще раз.")
	}
}

func (h *Inbound) sendDescription(ctx context.Context, platform models.Platform, platformID string, argument string) {
	// show_more carries either the resource URL (telegram callbacks)
	// or an ad id (whatsapp text replies)
	resourceURL := argument
	if adID, err := strconv.ParseInt(argument, 10, 64); err == nil {
		ad, err := h.Store.GetFullAd(ctx, adID)
		if err != nil || ad == nil {
			h.Sender.SafeSendMessage(ctx, platformID, platform, "Оголошення не знайдено.")
			return
		}
		resourceURL = ad.ResourceURL
	}
	description, err := h.Store.GetAdDescription(ctx, resourceURL)
	if err != nil || description == "" {
		h.Sender.SafeSendMessage(ctx, platformID, platform, "Опис недоступний.")
		return
	}
	// long descriptions exceed Telegram's 4096-char message limit
	for _, chunk := range util.ChunkString(description, maxMessageLength) {
		h.Sender.SafeSendMessage(ctx, platformID, platform, chunk)
	}
}

func (h *Inbound) sendPhotos(ctx context.Context, platform models.Platform, platformID string, adID int64) {
	images, err := h.Store.GetAdImages(ctx, adID)
	if err != nil || len(images) == 0 {
		h.Sender.SafeSendMessage(ctx, platformID, platform, "Більше фото немає.")
		return
	}
	for _, image := range images {
		h.Sender.SafeSendMedia(ctx, platformID, platform, image, "")
	}
}

func (h *Inbound) sendPhones(ctx context.Context, platform models.Platform, platformID string, adID int64) {
	ad, err := h.Store.GetFullAd(ctx, adID)
	if err != nil || ad == nil || len(ad.Phones) == 0 {
		h.Sender.SafeSendMessage(ctx, platformID, platform, "Контактні телефони недоступні.")
		return
	}
	h.Sender.SafeSendMessage(ctx, platformID, platform, "📞 "+strings.Join(ad.Phones, "\n📞 "))
}

func (h *Inbound) sendFavorites(ctx context.Context, user *models.User, platform models.Platform, platformID string) {
	favorites, err := h.Store.ListFavorites(ctx, user.ID)
	if err != nil {
		logrus.Errorf("list favorites for user %d: %v", user.ID, err)
		return
	}
	if len(favorites) == 0 {
		h.Sender.SafeSendMessage(ctx, platformID, platform, "У вас поки немає обраних оголошень.")
		return
	}
	for _, favorite := range favorites {
		if favorite.Ad != nil {
			h.Sender.SafeSendAd(ctx, platformID, platform, favorite.Ad)
		}
	}
}
