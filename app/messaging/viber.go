package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const viberSendMessageURL = "https://chatapi.viber.com/pa/send_message"

// Viber REST responses carry a numeric status, 0 is success.
var viberStatusMessages = map[int]string{
	5: "receiver not registered",
	6: "receiver not subscribed",
}

// ViberMessenger talks to the Viber REST API directly. User ids are
// opaque UUID-shaped tokens, menus render as reply keyboards.
type ViberMessenger struct {
	AuthToken  string
	BotName    string
	HTTPClient *fasthttp.Client
}

func NewViberMessenger(authToken, botName string) *ViberMessenger {
	return &ViberMessenger{
		AuthToken:  authToken,
		BotName:    botName,
		HTTPClient: &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
	}
}

func (v *ViberMessenger) Platform() models.Platform {
	return models.PlatformViber
}

func (v *ViberMessenger) FormatUserID(platformID string) string {
	return platformID
}

type viberKeyboard struct {
	Type    string        `json:"Type"`
	Buttons []viberButton `json:"Buttons"`
}

type viberButton struct {
	Columns    int    `json:"Columns"`
	Rows       int    `json:"Rows"`
	Text       string `json:"Text"`
	ActionType string `json:"ActionType"`
	ActionBody string `json:"ActionBody"`
}

type viberMessage struct {
	Receiver string          `json:"receiver"`
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Media    string          `json:"media,omitempty"`
	Sender   viberSender     `json:"sender"`
	Keyboard *viberKeyboard  `json:"keyboard,omitempty"`
}

type viberSender struct {
	Name string `json:"name"`
}

type viberResponse struct {
	Status        int    `json:"status"`
	StatusMessage string `json:"status_message"`
}

func (v *ViberMessenger) send(ctx context.Context, message *viberMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	request := fasthttp.AcquireRequest()
	response := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(request)
	defer fasthttp.ReleaseResponse(response)

	request.SetRequestURI(viberSendMessageURL)
	request.Header.SetMethod(fasthttp.MethodPost)
	request.Header.SetContentType("application/json")
	request.Header.Set("X-Viber-Auth-Token", v.AuthToken)
	request.SetBody(payload)

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := v.HTTPClient.DoDeadline(request, response, deadline); err != nil {
		return fmt.Errorf("viber send: %w", err)
	}

	result := viberResponse{}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return fmt.Errorf("viber send: bad response: %w", err)
	}
	if result.Status != 0 {
		if reason, ok := viberStatusMessages[result.Status]; ok {
			logrus.Infof("viber recipient %s is gone: %s", message.Receiver, reason)
			return nil
		}
		return fmt.Errorf("viber send: status %d %s", result.Status, result.StatusMessage)
	}
	return nil
}

func (v *ViberMessenger) SendText(ctx context.Context, platformID string, text string) error {
	return v.send(ctx, &viberMessage{
		Receiver: platformID,
		Type:     "text",
		Text:     text,
		Sender:   viberSender{Name: v.BotName},
	})
}

func (v *ViberMessenger) SendMedia(ctx context.Context, platformID string, mediaURL string, caption string) error {
	return v.send(ctx, &viberMessage{
		Receiver: platformID,
		Type:     "picture",
		Text:     caption,
		Media:    mediaURL,
		Sender:   viberSender{Name: v.BotName},
	})
}

// CreateKeyboard renders options as a full-width reply keyboard.
func (v *ViberMessenger) CreateKeyboard(options []models.MenuOption) any {
	keyboard := &viberKeyboard{Type: "keyboard"}
	for _, option := range options {
		keyboard.Buttons = append(keyboard.Buttons, viberButton{
			Columns:    6,
			Rows:       1,
			Text:       option.Text,
			ActionType: "reply",
			ActionBody: option.Value,
		})
	}
	return keyboard
}

func (v *ViberMessenger) SendMenu(ctx context.Context, platformID string, text string, options []models.MenuOption) error {
	keyboard := v.CreateKeyboard(options).(*viberKeyboard)
	return v.send(ctx, &viberMessage{
		Receiver: platformID,
		Type:     "text",
		Text:     text,
		Sender:   viberSender{Name: v.BotName},
		Keyboard: keyboard,
	})
}

// SendAd sends the first photo with the card text, then the action
// keyboard. Viber keyboards ride on a message, so the second send
// carries a short prompt.
func (v *ViberMessenger) SendAd(ctx context.Context, platformID string, ad *models.Ad) error {
	text := FormatAdText(ad)
	if len(ad.Images) > 0 {
		if err := v.SendMedia(ctx, platformID, ad.Images[0], text); err != nil {
			return err
		}
	} else {
		if err := v.SendText(ctx, platformID, text); err != nil {
			return err
		}
	}
	return v.SendMenu(ctx, platformID, "Оберіть дію:", AdMenuOptions(ad))
}
