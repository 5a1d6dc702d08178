package flows

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/models"
)

const filtersPerPage = 5

// SubscriptionFlow lets a user review stored filters and pause,
// resume or delete them. A single "list" state handles the commands
// the list menu itself offers.
func SubscriptionFlow() *Flow {
	flow := NewFlow("subscription", "list")
	flow.State("list", manageFilters)
	flow.Global(closeSubscriptions)
	flow.OnError(func(c *Context, err error) {
		c.Reply("Не вдалося обробити запит, спробуйте ще раз.")
	})
	return flow
}

func closeSubscriptions(c *Context) (bool, error) {
	lowered := strings.ToLower(c.Message)
	if lowered != "back" && lowered != "назад" {
		return false, nil
	}
	c.Reply("Повертаємось у головне меню.")
	c.End()
	return true, nil
}

// manageFilters executes a pause:/resume:/delete: command when one
// arrived, then re-renders the current page of subscriptions.
func manageFilters(c *Context) error {
	if err := applyFilterCommand(c); err != nil {
		return err
	}

	page := 1
	if n, err := strconv.Atoi(c.GetString("page")); err == nil && n > 0 {
		page = n
	}
	if strings.HasPrefix(c.Message, "page:") {
		if n, err := strconv.Atoi(strings.TrimPrefix(c.Message, "page:")); err == nil && n > 0 {
			page = n
		}
	}
	c.Set("page", strconv.Itoa(page))

	filters, total, err := c.Store.ListFiltersPaginated(c.Ctx, c.DBUserID, page, filtersPerPage)
	if err != nil {
		return err
	}
	if total == 0 {
		c.Reply("У вас поки немає підписок. Напишіть 'пошук', щоб створити першу.")
		c.End()
		return nil
	}

	options := []models.MenuOption{}
	for _, filter := range filters {
		id := strconv.FormatInt(filter.ID, 10)
		label := describeFilter(&filter)
		if filter.IsPaused {
			options = append(options, models.MenuOption{Text: "▶️ " + label, Value: "resume:" + id})
		} else {
			options = append(options, models.MenuOption{Text: "⏸ " + label, Value: "pause:" + id})
		}
		options = append(options, models.MenuOption{Text: "🗑 Видалити " + label, Value: "delete:" + id})
	}
	if total > page*filtersPerPage {
		options = append(options, models.MenuOption{Text: "➡️ Далі", Value: "page:" + strconv.Itoa(page+1)})
	}
	if page > 1 {
		options = append(options, models.MenuOption{Text: "⬅️ Попередні", Value: "page:" + strconv.Itoa(page-1)})
	}
	options = append(options, models.MenuOption{Text: "Назад", Value: "back"})

	c.ReplyMenu(fmt.Sprintf("Ваші підписки (%d):", total), options)
	return nil
}

func describeFilter(filter *models.UserFilter) string {
	parts := []string{models.CityName(filter.City)}
	if len(filter.RoomsCount) > 0 {
		rooms := []string{}
		for _, n := range filter.RoomsCount {
			rooms = append(rooms, strconv.FormatInt(n, 10))
		}
		parts = append(parts, strings.Join(rooms, ",")+" кімн.")
	}
	if filter.PriceMax != nil {
		parts = append(parts, fmt.Sprintf("до %.0f грн", *filter.PriceMax))
	}
	return strings.Join(parts, ", ")
}

func applyFilterCommand(c *Context) error {
	action, rawID, found := strings.Cut(c.Message, ":")
	if !found || action == "page" {
		return nil
	}
	filterID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil
	}
	switch action {
	case "pause":
		if err := c.Store.SetFilterPaused(c.Ctx, c.DBUserID, filterID, true); err != nil {
			return err
		}
		c.Reply("⏸ Підписку призупинено.")
	case "resume":
		if err := c.Store.SetFilterPaused(c.Ctx, c.DBUserID, filterID, false); err != nil {
			return err
		}
		c.Reply("▶️ Підписку відновлено.")
	case "delete":
		if err := c.Store.RemoveFilter(c.Ctx, c.DBUserID, filterID); err != nil {
			return err
		}
		c.Reply("🗑 Підписку видалено.")
	}
	return nil
}
