package flows

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/models"
)

// PropertySearchFlow walks a user through building a subscription
// filter: property type, city, rooms, price, then confirmation.
// Each state handler consumes valid input for its question and
// re-prompts otherwise; transitions advance once the answer landed.
func PropertySearchFlow() *Flow {
	flow := NewFlow("property_search", "start")

	flow.State("start", promptOrStorePropertyType)
	flow.State("city", promptOrStoreCity)
	flow.State("rooms", promptOrStoreRooms)
	flow.State("price", promptOrStorePrice)
	flow.State("confirm", confirmFilter)
	flow.State("edit", promptEdit)

	// ordered: the completeness checks outrank the forward edges, so
	// returning from an edit jumps straight back to confirmation
	flow.Transition("start", "confirm", searchParamsComplete)
	flow.Transition("start", "city", func(c *Context) bool { return c.GetString("property_type") != "" })
	flow.Transition("city", "confirm", searchParamsComplete)
	flow.Transition("city", "rooms", func(c *Context) bool { return c.GetString("city") != "" })
	flow.Transition("rooms", "confirm", searchParamsComplete)
	flow.Transition("rooms", "price", func(c *Context) bool { return c.GetString("rooms") != "" })
	flow.Transition("price", "confirm", searchParamsComplete)
	flow.Transition("confirm", "edit", func(c *Context) bool { return c.Message == "edit_parameters" })
	flow.Transition("edit", "start", func(c *Context) bool { return c.Message == "edit_property_type" })
	flow.Transition("edit", "city", func(c *Context) bool { return c.Message == "edit_city" })
	flow.Transition("edit", "rooms", func(c *Context) bool { return c.Message == "edit_rooms" })
	flow.Transition("edit", "price", func(c *Context) bool { return c.Message == "edit_price" })

	flow.Global(cancelSearch)
	flow.OnError(func(c *Context, err error) {
		if errors.Is(err, postgres.ErrValidation) {
			c.Reply("⚠️ " + err.Error())
			return
		}
		c.Reply("Щось пішло не так, спробуйте ще раз.")
	})
	return flow
}

func searchParamsComplete(c *Context) bool {
	return c.GetString("property_type") != "" &&
		c.GetString("city") != "" &&
		c.GetString("rooms") != "" &&
		c.GetString("price") != ""
}

// cancelSearch aborts the flow on an explicit cancel from any state.
func cancelSearch(c *Context) (bool, error) {
	lowered := strings.ToLower(c.Message)
	if lowered != "cancel" && lowered != "скасувати" {
		return false, nil
	}
	c.Reply("Пошук скасовано.")
	c.End()
	return true, nil
}

var propertyTypeOptions = []models.MenuOption{
	{Text: "Квартира", Value: "apartment"},
	{Text: "Будинок", Value: "house"},
	{Text: "Кімната", Value: "room"},
}

func promptOrStorePropertyType(c *Context) error {
	for _, option := range propertyTypeOptions {
		if c.Message == option.Value {
			c.Set("property_type", option.Value)
			return nil
		}
	}
	c.ReplyMenu("Який тип нерухомості шукаєте?", propertyTypeOptions)
	return nil
}

func promptOrStoreCity(c *Context) error {
	if geoID := models.GeoIDByCityName(strings.TrimSpace(c.Message)); geoID != 0 {
		c.Set("city", strconv.FormatInt(geoID, 10))
		return nil
	}
	options := []models.MenuOption{}
	for _, name := range []string{"Київ", "Львів", "Одеса", "Харків", "Дніпро"} {
		options = append(options, models.MenuOption{Text: name, Value: name})
	}
	c.ReplyMenu("В якому місті?", options)
	return nil
}

var roomsOptions = []models.MenuOption{
	{Text: "1", Value: "1"},
	{Text: "2", Value: "2"},
	{Text: "3", Value: "3"},
	{Text: "4+", Value: "4+"},
	{Text: "Будь-яка", Value: "any"},
}

func promptOrStoreRooms(c *Context) error {
	for _, option := range roomsOptions {
		if c.Message == option.Value {
			c.Set("rooms", option.Value)
			return nil
		}
	}
	c.ReplyMenu("Скільки кімнат?", roomsOptions)
	return nil
}

// promptOrStorePrice accepts "5000-12000", "12000" (max only) or "any".
// The first visit only prompts: the message that rode in on the
// transition is the rooms answer and would parse as a price.
func promptOrStorePrice(c *Context) error {
	if c.GetString("price_prompted") == "" {
		c.Set("price_prompted", "1")
		c.Reply("Введіть діапазон цін у грн, наприклад 5000-12000, або 'будь-яка':")
		return nil
	}
	message := strings.TrimSpace(strings.ToLower(c.Message))
	if message == "any" || message == "будь-яка" {
		c.Set("price", "any")
		return nil
	}
	if min, max, ok := parsePriceRange(message); ok {
		c.Set("price", fmt.Sprintf("%.0f-%.0f", min, max))
		return nil
	}
	c.Reply("Введіть діапазон цін у грн, наприклад 5000-12000, або 'будь-яка':")
	return nil
}

func parsePriceRange(message string) (float64, float64, bool) {
	parts := strings.SplitN(message, "-", 2)
	if len(parts) == 1 {
		max, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || max <= 0 {
			return 0, 0, false
		}
		return 0, max, true
	}
	min, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	max, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || max < min || max <= 0 {
		return 0, 0, false
	}
	return min, max, true
}

var confirmOptions = []models.MenuOption{
	{Text: "✅ Підтвердити", Value: "confirm"},
	{Text: "✏️ Змінити параметри", Value: "edit_parameters"},
	{Text: "❌ Скасувати", Value: "cancel"},
}

func confirmFilter(c *Context) error {
	switch strings.ToLower(c.Message) {
	case "confirm", "так", "yes":
		return saveFilter(c)
	case "edit_parameters":
		// the confirm -> edit transition owns this input
		return nil
	}
	c.ReplyMenu(searchSummary(c), confirmOptions)
	return nil
}

func searchSummary(c *Context) string {
	geoID, _ := strconv.ParseInt(c.GetString("city"), 10, 64)
	lines := []string{
		"Перевірте параметри пошуку:",
		"Тип: " + c.GetString("property_type"),
		"Місто: " + models.CityName(geoID),
		"Кімнат: " + c.GetString("rooms"),
		"Ціна: " + c.GetString("price"),
	}
	return strings.Join(lines, "\n")
}

func saveFilter(c *Context) error {
	geoID, err := strconv.ParseInt(c.GetString("city"), 10, 64)
	if err != nil {
		return fmt.Errorf("bad city value %q: %w", c.GetString("city"), err)
	}
	filter := &models.UserFilter{
		UserID:       c.DBUserID,
		PropertyType: c.GetString("property_type"),
		City:         geoID,
	}
	if rooms := c.GetString("rooms"); rooms != "any" {
		if rooms == "4+" {
			filter.RoomsCount = []int64{4, 5, 6}
		} else if n, err := strconv.ParseInt(rooms, 10, 64); err == nil {
			filter.RoomsCount = []int64{n}
		}
	}
	if price := c.GetString("price"); price != "any" {
		if min, max, ok := parsePriceRange(price); ok {
			if min > 0 {
				filter.PriceMin = &min
			}
			filter.PriceMax = &max
		}
	}

	if _, err := c.Store.AddFilter(c.Ctx, filter); err != nil {
		if errors.Is(err, postgres.ErrValidation) {
			c.Reply(fmt.Sprintf("⚠️ Досягнуто ліміт підписок (%d). Видаліть зайву, щоб додати нову.", models.MaxFiltersPerUser))
			c.End()
			return nil
		}
		return err
	}
	c.Reply("✅ Підписку збережено! Ми надішлемо нові оголошення, щойно вони з'являться.")
	c.End()
	return nil
}

var editOptions = []models.MenuOption{
	{Text: "Тип нерухомості", Value: "edit_property_type"},
	{Text: "Місто", Value: "edit_city"},
	{Text: "Кімнати", Value: "edit_rooms"},
	{Text: "Ціна", Value: "edit_price"},
}

func promptEdit(c *Context) error {
	switch c.Message {
	case "", "edit_parameters":
		c.ReplyMenu("Що змінити?", editOptions)
	}
	return nil
}
