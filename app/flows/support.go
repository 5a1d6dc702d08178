package flows

import (
	"strings"

	"github.com/Yanlebed/htode-sub000/app/models"
	"github.com/Yanlebed/htode-sub000/app/tasks"
)

var supportCategories = []models.MenuOption{
	{Text: "💳 Оплата", Value: "payment"},
	{Text: "🔧 Технічна проблема", Value: "technical"},
	{Text: "💬 Інше", Value: "other"},
}

// SupportFlow collects a category and a free-text description, then
// hands the request to the background dispatcher for the support team.
func SupportFlow(dispatcher *tasks.Dispatcher) *Flow {
	flow := NewFlow("support", "category")

	flow.State("category", func(c *Context) error {
		for _, option := range supportCategories {
			if c.Message == option.Value {
				c.Set("category", option.Value)
				return nil
			}
		}
		c.ReplyMenu("З чим потрібна допомога?", supportCategories)
		return nil
	})

	flow.State("describe", func(c *Context) error {
		// the category choice rides in on the transition turn
		if c.Message == c.GetString("category") || strings.TrimSpace(c.Message) == "" {
			c.Reply("Опишіть проблему одним повідомленням:")
			return nil
		}
		_, err := dispatcher.Enqueue("support_request", map[string]any{
			"user_id":  c.DBUserID,
			"platform": string(c.Platform),
			"category": c.GetString("category"),
			"message":  c.Message,
		})
		if err != nil {
			return err
		}
		c.Reply("Дякуємо! Ми відповімо найближчим часом.")
		c.End()
		return nil
	})

	flow.Transition("category", "describe", func(c *Context) bool { return c.GetString("category") != "" })

	flow.OnError(func(c *Context, err error) {
		c.Reply("Не вдалося надіслати звернення, спробуйте пізніше.")
	})
	return flow
}
