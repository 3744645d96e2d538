package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/slotline/slotline/internal/i18n"
	"github.com/slotline/slotline/internal/models"
)

// Platform limits for outbound menus.
const (
	// MaxListRows is the channel's hard cap on list rows per message.
	MaxListRows = 10
	// MaxRowTitleLen is the channel's hard cap on row title length.
	MaxRowTitleLen = 24
	// truncatedTitleLen is what a too-long title is cut to before the ellipsis.
	truncatedTitleLen = 21
	// PageSize is rows per page, leaving room for the "show more" row.
	PageSize = MaxListRows - 1
	// MonthsOffered is how far ahead the month menu reaches.
	MonthsOffered = 4
)

// text wraps a plain string as an outbound message.
func text(body string) models.OutboundMessage {
	return models.OutboundMessage{Text: body}
}

// truncateTitle enforces the channel's row title limit.
func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxRowTitleLen {
		return s
	}
	return string(runes[:truncatedTitleLen]) + "…"
}

// listPage slices one page out of rows and appends a synthetic "show more"
// row when further pages exist. The show-more id encodes the next page index.
func listPage(loc string, rows []models.Row, page int, morePrefix string) []models.Row {
	start := page * PageSize
	if start >= len(rows) {
		start = 0
		page = 0
	}
	end := start + PageSize
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]models.Row, 0, MaxListRows)
	out = append(out, rows[start:end]...)
	if end < len(rows) {
		out = append(out, models.Row{
			ID:          fmt.Sprintf("%s|%d", morePrefix, page+1),
			Title:       i18n.T(loc, "common.show_more"),
			Description: i18n.T(loc, "common.more_desc"),
		})
	}
	return out
}

func buildLanguageMenu() models.OutboundMessage {
	loc := i18n.DefaultLocale
	return models.OutboundMessage{
		Text: i18n.T(loc, "language.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "language.button"),
			Rows: []models.Row{
				{ID: "lang|en", Title: i18n.T(loc, "language.english")},
				{ID: "lang|es", Title: i18n.T(loc, "language.spanish")},
			},
		},
	}
}

func buildMainMenu(loc string) models.OutboundMessage {
	return models.OutboundMessage{
		Text: i18n.T(loc, "main.prompt"),
		Buttons: []models.Button{
			{ID: "main|appointments", Title: i18n.T(loc, "main.appointments")},
			{ID: "main|help", Title: i18n.T(loc, "main.help")},
		},
	}
}

func buildBookingMenu(loc string) models.OutboundMessage {
	return models.OutboundMessage{
		Text: i18n.T(loc, "menu.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "menu.button"),
			Rows: []models.Row{
				{ID: "menu|book", Title: i18n.T(loc, "menu.book")},
				{ID: "menu|reschedule", Title: i18n.T(loc, "menu.reschedule")},
				{ID: "menu|cancel", Title: i18n.T(loc, "menu.cancel")},
				{ID: "menu|home", Title: i18n.T(loc, "menu.home")},
			},
		},
	}
}

func buildServiceList(loc string, services []models.Service, page int) models.OutboundMessage {
	rows := make([]models.Row, 0, len(services))
	for _, svc := range services {
		rows = append(rows, models.Row{
			ID:          "svc|" + svc.ID,
			Title:       truncateTitle(svc.Name),
			Description: priceDisplay(loc, svc.PriceCents, svc.Currency),
		})
	}
	return models.OutboundMessage{
		Text: i18n.T(loc, "services.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "services.button"),
			Rows:   listPage(loc, rows, page, "svcpage"),
		},
	}
}

func buildStaffList(loc string, staff []models.Staff, page int) models.OutboundMessage {
	rows := make([]models.Row, 0, len(staff))
	for _, st := range staff {
		rows = append(rows, models.Row{ID: "stf|" + st.ID, Title: truncateTitle(st.Name)})
	}
	return models.OutboundMessage{
		Text: i18n.T(loc, "staff.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "staff.button"),
			Rows:   listPage(loc, rows, page, "stfpage"),
		},
	}
}

func buildMonthList(loc string, now time.Time) models.OutboundMessage {
	rows := make([]models.Row, 0, MonthsOffered)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < MonthsOffered; i++ {
		m := first.AddDate(0, i, 0)
		rows = append(rows, models.Row{
			ID:    "month|" + m.Format("2006-01"),
			Title: truncateTitle(m.Format("January 2006")),
		})
	}
	return models.OutboundMessage{
		Text: i18n.T(loc, "month.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "month.button"),
			Rows:   rows,
		},
	}
}

// monthDates lists the selectable days of a YYYY-MM month, skipping days
// already in the past.
func monthDates(month string, now time.Time) ([]time.Time, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if d.Before(today) {
			continue
		}
		days = append(days, d)
	}
	return days, nil
}

func buildDateList(loc string, days []time.Time, page int) models.OutboundMessage {
	rows := make([]models.Row, 0, len(days))
	for _, d := range days {
		rows = append(rows, models.Row{
			ID:    "date|" + models.FormatDate(d),
			Title: truncateTitle(d.Format("Mon, 02 Jan")),
		})
	}
	return models.OutboundMessage{
		Text: i18n.T(loc, "date.prompt"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "date.button"),
			Rows:   listPage(loc, rows, page, "datepage"),
		},
	}
}

func buildSlotList(loc, prompt string, slots []models.Slot, nextPage int, hasMore bool) models.OutboundMessage {
	rows := make([]models.Row, 0, MaxListRows)
	for _, s := range slots {
		rows = append(rows, models.Row{
			ID:          "slot|" + s.ID,
			Title:       truncateTitle(s.Time),
			Description: s.Date,
		})
	}
	if hasMore {
		rows = append(rows, models.Row{
			ID:          fmt.Sprintf("slotpage|%d", nextPage),
			Title:       i18n.T(loc, "common.show_more"),
			Description: i18n.T(loc, "common.more_desc"),
		})
	}
	return models.OutboundMessage{
		Text: prompt,
		List: &models.ListMenu{
			Button: i18n.T(loc, "slot.button"),
			Rows:   rows,
		},
	}
}

func buildAppointmentList(loc string, appts []models.Appointment, page int) models.OutboundMessage {
	rows := make([]models.Row, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, models.Row{
			ID:          "appt|" + a.Ref,
			Title:       truncateTitle(a.ServiceName),
			Description: fmt.Sprintf("%s %s", a.Date, a.Time),
		})
	}
	return models.OutboundMessage{
		Text: i18n.T(loc, "appointments.pick"),
		List: &models.ListMenu{
			Button: i18n.T(loc, "appointments.button"),
			Rows:   listPage(loc, rows, page, "apptpage"),
		},
	}
}

func buildPaymentPrompt(loc string, amountCents int64, currency, url string) models.OutboundMessage {
	return models.OutboundMessage{
		Text: i18n.T(loc, "payment.prompt", priceDisplay(loc, amountCents, currency), url),
		Buttons: []models.Button{
			{ID: "pay|done", Title: i18n.T(loc, "payment.paid")},
			{ID: "pay|cancel", Title: i18n.T(loc, "payment.cancel")},
		},
	}
}

// priceDisplay renders a price for menu descriptions and prompts.
func priceDisplay(loc string, cents int64, currency string) string {
	if cents <= 0 {
		return i18n.T(loc, "services.free")
	}
	cur := strings.ToUpper(currency)
	if cur == "" {
		cur = "USD"
	}
	return fmt.Sprintf("%.2f %s", float64(cents)/100, cur)
}
