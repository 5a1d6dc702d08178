package messaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Yanlebed/htode-sub000/app/identity"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// WhatsAppMessenger sends through the Twilio Messages API. No
// interactive buttons: menus and ad actions render as numbered text
// instructions the user answers in plain text.
type WhatsAppMessenger struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	HTTPClient *fasthttp.Client
}

func NewWhatsAppMessenger(accountSID, authToken, fromNumber string) *WhatsAppMessenger {
	return &WhatsAppMessenger{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		HTTPClient: &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
	}
}

func (w *WhatsAppMessenger) Platform() models.Platform {
	return models.PlatformWhatsApp
}

func (w *WhatsAppMessenger) FormatUserID(platformID string) string {
	return identity.FormatForPlatform(models.PlatformWhatsApp, platformID)
}

type twilioResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  any    `json:"status"`
}

func (w *WhatsAppMessenger) send(ctx context.Context, platformID string, form url.Values) error {
	endpoint := "https://api.twilio.com/2010-04-01/Accounts/" + w.AccountSID + "/Messages.json"
	form.Set("From", identity.FormatForPlatform(models.PlatformWhatsApp, w.FromNumber))
	form.Set("To", w.FormatUserID(platformID))

	request := fasthttp.AcquireRequest()
	response := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(request)
	defer fasthttp.ReleaseResponse(response)

	request.SetRequestURI(endpoint)
	request.Header.SetMethod(fasthttp.MethodPost)
	request.Header.SetContentType("application/x-www-form-urlencoded")
	credentials := base64.StdEncoding.EncodeToString([]byte(w.AccountSID + ":" + w.AuthToken))
	request.Header.Set("Authorization", "Basic "+credentials)
	request.SetBodyString(form.Encode())

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.HTTPClient.DoDeadline(request, response, deadline); err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}

	if response.StatusCode() >= 400 {
		result := twilioResponse{}
		_ = json.Unmarshal(response.Body(), &result)
		err := classifySendError(fmt.Errorf("whatsapp send: twilio error %d: %s", result.Code, result.Message))
		if IsPermanent(err) {
			logrus.Infof("whatsapp recipient %s is gone: %v", platformID, err)
			return nil
		}
		return err
	}
	return nil
}

func (w *WhatsAppMessenger) SendText(ctx context.Context, platformID string, text string) error {
	form := url.Values{}
	form.Set("Body", text)
	return w.send(ctx, platformID, form)
}

func (w *WhatsAppMessenger) SendMedia(ctx context.Context, platformID string, mediaURL string, caption string) error {
	form := url.Values{}
	form.Set("Body", caption)
	form.Set("MediaUrl", mediaURL)
	return w.send(ctx, platformID, form)
}

// CreateKeyboard is nil: WhatsApp has no buttons, menus go out as
// numbered text.
func (w *WhatsAppMessenger) CreateKeyboard(options []models.MenuOption) any {
	return nil
}

func (w *WhatsAppMessenger) SendMenu(ctx context.Context, platformID string, text string, options []models.MenuOption) error {
	return w.SendText(ctx, platformID, FormatMenuText(text, options))
}

// SendAd sends the first photo with the card text, then the reply
// instructions since WhatsApp has no buttons.
func (w *WhatsAppMessenger) SendAd(ctx context.Context, platformID string, ad *models.Ad) error {
	text := FormatAdText(ad)
	if len(ad.Images) > 0 {
		if err := w.SendMedia(ctx, platformID, ad.Images[0], text); err != nil {
			return err
		}
	} else {
		if err := w.SendText(ctx, platformID, text); err != nil {
			return err
		}
	}
	return w.SendText(ctx, platformID, adInstructions(ad))
}

func adInstructions(ad *models.Ad) string {
	adID := strconv.FormatInt(ad.ID, 10)
	return "Відповідь 'фото " + adID + "' — більше фото\n" +
		"Відповідь 'тел " + adID + "' — телефони\n" +
		"Відповідь 'обр " + adID + "' — додати в обрані\n" +
		"Відповідь 'опис " + adID + "' — повний опис"
}
