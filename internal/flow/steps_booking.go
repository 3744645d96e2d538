package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/slotline/slotline/internal/i18n"
	"github.com/slotline/slotline/internal/models"
)

var (
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	digitsRe = regexp.MustCompile(`[^0-9]`)
)

// splitSelection breaks "prefix|rest" selection ids apart. rest keeps any
// further pipes so composite slot ids survive intact.
func splitSelection(id string) (prefix, rest string) {
	parts := strings.SplitN(id, "|", 2)
	if len(parts) != 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func pageIndex(rest string) int {
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (e *Engine) handleLanguage(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	choice := strings.ToLower(strings.TrimSpace(ev.Text))
	if ev.Kind == models.EventList {
		if prefix, rest := splitSelection(ev.SelectionID); prefix == "lang" {
			choice = rest
		}
	}
	if !i18n.IsSupported(choice) {
		if sess.BumpAttempts("language") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(locale(sess), "language.invalid")), buildLanguageMenu()), nil
	}
	sess.Language = choice
	sess.ResetAttempts("language")
	sess.Step = models.StepAwaitMain
	return reply(buildMainMenu(choice)), nil
}

func (e *Engine) handleMain(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	switch ev.SelectionID {
	case "main|appointments":
		sess.Step = models.StepAwaitBookingMenu
		return reply(buildBookingMenu(loc)), nil
	case "main|help":
		sess.Step = models.StepAwaitHelpName
		return reply(text(i18n.T(loc, "help.name"))), nil
	default:
		return e.resetToMain(sess), nil
	}
}

func (e *Engine) handleBookingMenu(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	switch ev.SelectionID {
	case "menu|book":
		services, err := e.provider.ListServices(ctx, sess)
		if err != nil {
			return outcome{}, err
		}
		if len(services) == 0 {
			sess.Step = models.StepAwaitMain
			return reply(text(i18n.T(loc, "services.none")), buildMainMenu(loc)), nil
		}
		sess.Step = models.StepAwaitService
		return reply(buildServiceList(loc, services, 0)), nil
	case "menu|cancel":
		sess.Step = models.StepAwaitCancelContact
		return reply(text(i18n.T(loc, "lookup.cancel_prompt"))), nil
	case "menu|reschedule":
		sess.Step = models.StepAwaitRescheduleContact
		return reply(text(i18n.T(loc, "lookup.reschedule_prompt"))), nil
	case "menu|home":
		sess.Selection = models.Selection{}
		sess.Cursors = models.Cursors{}
		return e.resetToMain(sess), nil
	default:
		return e.resetToMain(sess), nil
	}
}

func (e *Engine) handleService(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)

	// The menu only carries ids; the full record is re-resolved on pick so
	// the session never trusts stale row titles.
	services, err := e.provider.ListServices(ctx, sess)
	if err != nil {
		return outcome{}, err
	}

	if prefix == "svcpage" {
		return reply(buildServiceList(loc, services, pageIndex(rest))), nil
	}
	if prefix != "svc" {
		return e.resetToMain(sess), nil
	}

	var picked *models.Service
	for i := range services {
		if services[i].ID == rest {
			picked = &services[i]
			break
		}
	}
	if picked == nil {
		slog.Warn("Engine.handleService: stale service id, re-listing", "serviceID", rest, "userID", sess.UserID)
		return reply(buildServiceList(loc, services, 0)), nil
	}

	sess.Selection.ServiceID = picked.ID
	sess.Selection.ServiceName = picked.Name
	sess.Selection.ServiceCategory = picked.Category
	sess.Selection.PriceCents = picked.PriceCents
	sess.Selection.Currency = picked.Currency
	sess.Selection.DurationRaw = picked.Duration
	sess.Selection.GroupID = picked.GroupID
	sess.Selection.ResourceID = picked.ResourceID

	if picked.Category == models.CategoryIndividual {
		staff, err := e.provider.ListStaff(ctx, sess, picked.ID)
		if err != nil {
			return outcome{}, err
		}
		if len(staff) == 0 {
			return reply(text(i18n.T(loc, "staff.none")), buildServiceList(loc, services, 0)), nil
		}
		sess.Step = models.StepAwaitStaff
		return reply(buildStaffList(loc, staff, 0)), nil
	}
	sess.Step = models.StepAwaitMonth
	return reply(buildMonthList(loc, e.now())), nil
}

func (e *Engine) handleStaff(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	if sess.Selection.ServiceID == "" {
		return outcome{}, fmt.Errorf("staff pick without a service: %w", models.ErrMissingSelection)
	}
	prefix, rest := splitSelection(ev.SelectionID)
	if prefix == "stfpage" {
		staff, err := e.provider.ListStaff(ctx, sess, sess.Selection.ServiceID)
		if err != nil {
			return outcome{}, err
		}
		return reply(buildStaffList(loc, staff, pageIndex(rest))), nil
	}
	if prefix != "stf" || rest == "" {
		return e.resetToMain(sess), nil
	}
	sess.Selection.StaffID = rest
	sess.Step = models.StepAwaitMonth
	return reply(buildMonthList(loc, e.now())), nil
}

func (e *Engine) handleMonth(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)
	if prefix != "month" {
		return e.resetToMain(sess), nil
	}
	days, err := monthDates(rest, e.now())
	if err != nil {
		return outcome{}, err
	}
	if len(days) == 0 {
		return reply(buildMonthList(loc, e.now())), nil
	}
	sess.Selection.Month = rest
	sess.Cursors.DatePage = 0
	sess.Step = models.StepAwaitDate
	return reply(buildDateList(loc, days, 0)), nil
}

func (e *Engine) handleDate(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)

	if prefix == "datepage" {
		if sess.Selection.Month == "" {
			return outcome{}, fmt.Errorf("date page without a month: %w", models.ErrMissingSelection)
		}
		days, err := monthDates(sess.Selection.Month, e.now())
		if err != nil {
			return outcome{}, err
		}
		sess.Cursors.DatePage = pageIndex(rest)
		return reply(buildDateList(loc, days, sess.Cursors.DatePage)), nil
	}
	if prefix != "date" {
		return e.resetToMain(sess), nil
	}
	if _, err := models.ParseDate(rest); err != nil {
		return outcome{}, err
	}

	sess.Selection.Date = rest
	resetScan(sess, rest)
	slots, hasMore, err := e.findNextAvailable(ctx, sess, SlotPageSize, DefaultMaxScanDays)
	if err != nil {
		return outcome{}, err
	}
	if len(slots) == 0 {
		days, derr := monthDates(sess.Selection.Month, e.now())
		if derr != nil {
			return outcome{}, derr
		}
		return reply(text(i18n.T(loc, "slot.none")), buildDateList(loc, days, sess.Cursors.DatePage)), nil
	}
	sess.Step = models.StepAwaitSlot
	return reply(buildSlotList(loc, i18n.T(loc, "slot.prompt"), slots, 1, hasMore)), nil
}

func (e *Engine) handleSlot(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)

	if prefix == "slotpage" {
		slots, hasMore, err := e.findNextAvailable(ctx, sess, SlotPageSize, DefaultMaxScanDays)
		if err != nil {
			return outcome{}, err
		}
		if len(slots) == 0 {
			sess.Step = models.StepAwaitMain
			return reply(text(i18n.T(loc, "slot.none")), buildMainMenu(loc)), nil
		}
		return reply(buildSlotList(loc, i18n.T(loc, "slot.prompt"), slots, pageIndex(rest)+1, hasMore)), nil
	}
	if prefix != "slot" {
		return e.resetToMain(sess), nil
	}

	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return outcome{}, fmt.Errorf("malformed slot id %q: %w", ev.SelectionID, models.ErrMissingSelection)
	}
	sess.Selection.SlotID = rest
	sess.Selection.SlotDate = parts[0]
	sess.Selection.SlotTime = parts[1]
	sess.Step = models.StepAwaitName
	return reply(text(i18n.T(loc, "ask.name"))), nil
}

func (e *Engine) handleName(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	name := strings.TrimSpace(ev.Text)
	if len([]rune(name)) < 2 {
		if sess.BumpAttempts("name") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.name"))), nil
	}
	sess.Selection.Name = name
	sess.ResetAttempts("name")
	sess.Step = models.StepAwaitEmail
	return reply(text(i18n.T(loc, "ask.email", firstName(name)))), nil
}

func (e *Engine) handleEmail(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	email := strings.TrimSpace(ev.Text)
	if !emailRe.MatchString(email) {
		if sess.BumpAttempts("email") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.email"))), nil
	}
	sess.Selection.Email = email
	sess.ResetAttempts("email")
	sess.Step = models.StepAwaitPhone
	return reply(text(i18n.T(loc, "ask.phone"))), nil
}

func (e *Engine) handlePhone(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	digits := digitsRe.ReplaceAllString(ev.Text, "")
	if len(digits) < 6 {
		if sess.BumpAttempts("phone") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.phone"))), nil
	}
	sess.Selection.Phone = digits
	sess.ResetAttempts("phone")

	if sess.Selection.PriceCents > 0 && e.payments != nil {
		link, err := e.payments.CreateLink(ctx, sess.Selection.PriceCents, sess.Selection.Currency, sess.Selection.ServiceName, sess.ID)
		if err != nil {
			return outcome{}, err
		}
		sess.Payment.LinkID = link.ID
		sess.Payment.LinkURL = link.URL
		sess.Step = models.StepAwaitPayment
		return reply(buildPaymentPrompt(loc, sess.Selection.PriceCents, sess.Selection.Currency, link.URL)), nil
	}
	return e.finishBooking(ctx, sess)
}

func (e *Engine) handlePayment(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	if e.payments == nil {
		return e.resetToMain(sess), nil
	}
	switch ev.SelectionID {
	case "pay|done":
		paid, confirmation, err := e.payments.Verify(ctx, sess.Payment.LinkID)
		if err != nil {
			return outcome{}, err
		}
		if !paid {
			if sess.BumpAttempts("payment") >= models.MaxFieldAttempts {
				return terminal(text(i18n.T(loc, "payment.aborted"))), nil
			}
			return reply(
				text(i18n.T(loc, "payment.unpaid")),
				buildPaymentPrompt(loc, sess.Selection.PriceCents, sess.Selection.Currency, sess.Payment.LinkURL),
			), nil
		}
		sess.Payment.ConfirmationID = confirmation
		sess.ResetAttempts("payment")
		return e.finishBooking(ctx, sess)
	case "pay|cancel":
		return terminal(text(i18n.T(loc, "payment.aborted"))), nil
	default:
		return e.resetToMain(sess), nil
	}
}

// finishBooking runs the booking executor and renders the outcome. Success
// and failure are both terminal: the session is destroyed either way, and a
// failure after a confirmed payment keeps the payment reference in front of
// the user instead of silently dropping it.
func (e *Engine) finishBooking(ctx context.Context, sess *models.Session) (outcome, error) {
	loc := locale(sess)
	res, err := e.executeBooking(ctx, sess)
	if err != nil {
		slog.Error("Engine.finishBooking: booking failed", "error", err, "userID", sess.UserID, "serviceID", sess.Selection.ServiceID)
		if sess.Payment.ConfirmationID != "" {
			return terminal(text(i18n.T(loc, "booking.failed_after_paid", sess.Payment.ConfirmationID))), nil
		}
		return terminal(text(i18n.T(loc, "booking.failed"))), nil
	}
	slog.Info("Engine.finishBooking: booking confirmed", "userID", sess.UserID, "ref", res.Ref)
	if res.SummaryURL != "" {
		return terminal(text(i18n.T(loc, "booking.confirmed_link", res.Ref, res.SummaryURL))), nil
	}
	return terminal(text(i18n.T(loc, "booking.confirmed", res.Ref))), nil
}

// firstName extracts the leading name token for the email prompt.
func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
