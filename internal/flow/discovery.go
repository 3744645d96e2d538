package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/schedule"
)

// DefaultMaxScanDays bounds how many consecutive days the discovery engine
// walks before declaring a date range empty.
const DefaultMaxScanDays = 30

// SlotPageSize is the number of slots per page, leaving room for the
// "show more" row within the list limit.
const SlotPageSize = PageSize

// resetScan seeds the discovery cursor at the given day so the next
// findNextAvailable call starts from scratch.
func resetScan(sess *models.Session, startDate string) {
	sess.Cursors.SlotScan = models.ScanCursor{Date: startDate}
}

// slotQuery assembles the availability lookup for one day from the
// accumulated selection.
func slotQuery(sess *models.Session, date string) schedule.SlotQuery {
	return schedule.SlotQuery{
		ServiceID:  sess.Selection.ServiceID,
		Date:       date,
		Category:   sess.Selection.ServiceCategory,
		StaffID:    sess.Selection.StaffID,
		GroupID:    sess.Selection.GroupID,
		ResourceID: sess.Selection.ResourceID,
	}
}

// findNextAvailable walks day by day from the cursor position, collecting up
// to limit slots before maxDays days past the seed date have been scanned.
// The cursor on the session is advanced in place so a later call resumes
// exactly after the last returned slot: mid-day positions are kept via
// Offset, and the already-fetched day's times are cached on the cursor so
// resuming never refetches a half-consumed day.
//
// hasMore is a heuristic: a full page means more slots may exist, a short
// page means the scan window is exhausted.
func (e *Engine) findNextAvailable(ctx context.Context, sess *models.Session, limit, maxDays int) ([]models.Slot, bool, error) {
	cur := &sess.Cursors.SlotScan
	if cur.Date == "" {
		return nil, false, fmt.Errorf("slot scan cursor not seeded: %w", models.ErrMissingSelection)
	}

	slots := make([]models.Slot, 0, limit)
	for len(slots) < limit && cur.DaysScanned < maxDays {
		if !cur.Fetched {
			times, err := e.provider.AvailableSlots(ctx, sess, slotQuery(sess, cur.Date))
			if err != nil {
				return nil, false, err
			}
			cur.DaySlots = times
			cur.Offset = 0
			cur.Fetched = true
		}

		for cur.Offset < len(cur.DaySlots) && len(slots) < limit {
			t := cur.DaySlots[cur.Offset]
			cur.Counter++
			slots = append(slots, models.Slot{
				ID:   fmt.Sprintf("%s|%s|%d", cur.Date, t, cur.Counter),
				Date: cur.Date,
				Time: t,
			})
			cur.Offset++
		}

		if cur.Offset >= len(cur.DaySlots) {
			day, err := models.ParseDate(cur.Date)
			if err != nil {
				return nil, false, fmt.Errorf("corrupt scan cursor date %q: %w", cur.Date, err)
			}
			cur.Date = models.FormatDate(day.AddDate(0, 0, 1))
			cur.DaysScanned++
			cur.Fetched = false
			cur.DaySlots = nil
			cur.Offset = 0
		}
	}

	hasMore := len(slots) == limit
	slog.Debug("Engine.findNextAvailable: page assembled",
		"userID", sess.UserID, "returned", len(slots), "hasMore", hasMore,
		"cursorDate", cur.Date, "daysScanned", cur.DaysScanned)
	return slots, hasMore, nil
}
