package flow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/slotline/slotline/internal/models"
)

func TestTruncateTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Short", "Short"},
		{"Exactly twenty-four chr", "Exactly twenty-four chr"},
		{"A very long service name that overflows", "A very long service n…"},
	}
	for _, c := range cases {
		if got := truncateTitle(c.in); got != c.want {
			t.Errorf("truncateTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestListPageCapsRows(t *testing.T) {
	rows := make([]models.Row, 25)
	for i := range rows {
		rows[i] = models.Row{ID: fmt.Sprintf("svc|%d", i), Title: fmt.Sprintf("Service %d", i)}
	}

	page0 := listPage("en", rows, 0, "svcpage")
	if len(page0) != MaxListRows {
		t.Fatalf("page 0: %d rows, want %d", len(page0), MaxListRows)
	}
	more := page0[len(page0)-1]
	if more.ID != "svcpage|1" {
		t.Errorf("show-more must encode the next page, got %q", more.ID)
	}

	page2 := listPage("en", rows, 2, "svcpage")
	if len(page2) != 25-2*PageSize {
		t.Errorf("last page: %d rows", len(page2))
	}
	for _, r := range page2 {
		if strings.HasPrefix(r.ID, "svcpage|") {
			t.Errorf("last page must not carry a show-more row: %q", r.ID)
		}
	}

	// An out-of-range page wraps back to the first.
	wrapped := listPage("en", rows, 9, "svcpage")
	if wrapped[0].ID != "svc|0" {
		t.Errorf("out-of-range page must wrap to the start, got %q", wrapped[0].ID)
	}
}

func TestBuildSlotListShowMore(t *testing.T) {
	slots := []models.Slot{
		{ID: "10-Mar-2026|09:00|1", Date: "10-Mar-2026", Time: "09:00"},
	}
	msg := buildSlotList("en", "prompt", slots, 3, true)
	rows := msg.List.Rows
	if len(rows) != 2 {
		t.Fatalf("expected slot row plus show-more, got %d", len(rows))
	}
	if rows[0].ID != "slot|10-Mar-2026|09:00|1" {
		t.Errorf("slot id not namespaced: %q", rows[0].ID)
	}
	if rows[1].ID != "slotpage|3" {
		t.Errorf("show-more must encode the next page, got %q", rows[1].ID)
	}

	noMore := buildSlotList("en", "prompt", slots, 1, false)
	if len(noMore.List.Rows) != 1 {
		t.Errorf("short page must not carry show-more: %+v", noMore.List.Rows)
	}
}

func TestMonthDatesSkipsPast(t *testing.T) {
	now := testClock()()
	days, err := monthDates("2026-03", now)
	if err != nil {
		t.Fatal(err)
	}
	// March 2026 from the 2nd onward.
	if len(days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(days))
	}
	if models.FormatDate(days[0]) != "02-Mar-2026" {
		t.Errorf("first selectable day = %s", models.FormatDate(days[0]))
	}

	if _, err := monthDates("03-2026", now); err == nil {
		t.Error("malformed month must be rejected")
	}
}

func TestPriceDisplay(t *testing.T) {
	if got := priceDisplay("en", 0, "usd"); got != "Free" {
		t.Errorf("zero price = %q", got)
	}
	if got := priceDisplay("en", 4550, "usd"); got != "45.50 USD" {
		t.Errorf("price = %q", got)
	}
}
