package messaging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/sirupsen/logrus"
)

// TelegramMessenger sends via the Bot API. Chat ids are numeric
// strings, menus render as inline keyboards.
type TelegramMessenger struct {
	Bot *telego.Bot
}

func NewTelegramMessenger(bot *telego.Bot) *TelegramMessenger {
	return &TelegramMessenger{Bot: bot}
}

func (t *TelegramMessenger) Platform() models.Platform {
	return models.PlatformTelegram
}

func (t *TelegramMessenger) FormatUserID(platformID string) string {
	return platformID
}

func (t *TelegramMessenger) chatID(platformID string) (telego.ChatID, error) {
	id, err := strconv.ParseInt(platformID, 10, 64)
	if err != nil {
		return telego.ChatID{}, fmt.Errorf("telegram chat id %q is not numeric: %w", platformID, err)
	}
	return tu.ID(id), nil
}

func (t *TelegramMessenger) SendText(ctx context.Context, platformID string, text string) error {
	chatID, err := t.chatID(platformID)
	if err != nil {
		return err
	}
	_, err = t.Bot.SendMessage(tu.Message(chatID, text))
	return t.swallowPermanent(platformID, err)
}

func (t *TelegramMessenger) SendMedia(ctx context.Context, platformID string, mediaURL string, caption string) error {
	chatID, err := t.chatID(platformID)
	if err != nil {
		return err
	}
	params := &telego.SendPhotoParams{
		ChatID:  chatID,
		Photo:   tu.FileFromURL(mediaURL),
		Caption: caption,
	}
	_, err = t.Bot.SendPhoto(params)
	return t.swallowPermanent(platformID, err)
}

// CreateKeyboard renders options as an inline keyboard, one button
// per row.
func (t *TelegramMessenger) CreateKeyboard(options []models.MenuOption) any {
	rows := [][]telego.InlineKeyboardButton{}
	for _, option := range options {
		rows = append(rows, []telego.InlineKeyboardButton{menuButton(option)})
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (t *TelegramMessenger) SendMenu(ctx context.Context, platformID string, text string, options []models.MenuOption) error {
	chatID, err := t.chatID(platformID)
	if err != nil {
		return err
	}
	message := tu.Message(chatID, text)
	message.ReplyMarkup = t.CreateKeyboard(options).(*telego.InlineKeyboardMarkup)
	_, err = t.Bot.SendMessage(message)
	return t.swallowPermanent(platformID, err)
}

func menuButton(option models.MenuOption) telego.InlineKeyboardButton {
	button := telego.InlineKeyboardButton{Text: option.Text}
	switch {
	case option.WebApp != "":
		button.WebApp = &telego.WebAppInfo{URL: option.WebApp}
	case option.URL != "":
		button.URL = option.URL
	default:
		button.CallbackData = option.Value
	}
	return button
}

// SendAd renders the listing card: first photo with the card text as
// caption and the action buttons underneath.
func (t *TelegramMessenger) SendAd(ctx context.Context, platformID string, ad *models.Ad) error {
	chatID, err := t.chatID(platformID)
	if err != nil {
		return err
	}
	keyboard := t.adKeyboard(ad)
	text := FormatAdText(ad)

	if len(ad.Images) > 0 {
		params := &telego.SendPhotoParams{
			ChatID:      chatID,
			Photo:       tu.FileFromURL(ad.Images[0]),
			Caption:     text,
			ReplyMarkup: keyboard,
		}
		_, err = t.Bot.SendPhoto(params)
		return t.swallowPermanent(platformID, err)
	}

	message := tu.Message(chatID, text)
	message.ReplyMarkup = keyboard
	_, err = t.Bot.SendMessage(message)
	return t.swallowPermanent(platformID, err)
}

func (t *TelegramMessenger) adKeyboard(ad *models.Ad) *telego.InlineKeyboardMarkup {
	adID := strconv.FormatInt(ad.ID, 10)
	galleryURL := config.CONFIG.GalleryBaseURL + "/gallery/" + adID
	phonesURL := config.CONFIG.GalleryBaseURL + "/phones/" + adID
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{
				{
					Text:   "🖼 Більше фото",
					WebApp: &telego.WebAppInfo{URL: galleryURL},
				},
				{
					Text:   "📲 Подзвонити",
					WebApp: &telego.WebAppInfo{URL: phonesURL},
				},
			},
			{
				{
					Text:         "❤️ Додати в обрані",
					CallbackData: "add_fav:" + adID,
				},
				{
					Text:         "ℹ️ Повний опис",
					CallbackData: "show_more:" + ad.ResourceURL,
				},
			},
		},
	}
}

// swallowPermanent converts dead-recipient responses into a logged
// non-error so callers skip the user instead of retrying.
func (t *TelegramMessenger) swallowPermanent(platformID string, err error) error {
	err = classifySendError(err)
	if IsPermanent(err) {
		logrus.Infof("telegram recipient %s is gone: %v", platformID, err)
		return nil
	}
	return err
}
