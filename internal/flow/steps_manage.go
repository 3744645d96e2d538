package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slotline/slotline/internal/i18n"
	"github.com/slotline/slotline/internal/models"
)

// Help branch: four text prompts captured in order, then a support ticket.

func (e *Engine) handleHelpName(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	name := strings.TrimSpace(ev.Text)
	if len([]rune(name)) < 2 {
		if sess.BumpAttempts("help_name") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.name"))), nil
	}
	sess.Selection.Name = name
	sess.ResetAttempts("help_name")
	sess.Step = models.StepAwaitHelpEmail
	return reply(text(i18n.T(loc, "help.email"))), nil
}

func (e *Engine) handleHelpEmail(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	email := strings.TrimSpace(ev.Text)
	if !emailRe.MatchString(email) {
		if sess.BumpAttempts("help_email") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.email"))), nil
	}
	sess.Selection.Email = email
	sess.ResetAttempts("help_email")
	sess.Step = models.StepAwaitHelpPhone
	return reply(text(i18n.T(loc, "help.phone"))), nil
}

func (e *Engine) handleHelpPhone(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	digits := digitsRe.ReplaceAllString(ev.Text, "")
	if len(digits) < 6 {
		if sess.BumpAttempts("help_phone") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "invalid.phone"))), nil
	}
	sess.Selection.Phone = digits
	sess.ResetAttempts("help_phone")
	sess.Step = models.StepAwaitHelpDescription
	return reply(text(i18n.T(loc, "help.description"))), nil
}

func (e *Engine) handleHelpDescription(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	desc := strings.TrimSpace(ev.Text)
	if desc == "" {
		if sess.BumpAttempts("help_description") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "help.description"))), nil
	}
	sess.Selection.HelpDescription = desc
	sess.ResetAttempts("help_description")

	ticket := models.Ticket{
		Name:        sess.Selection.Name,
		Email:       sess.Selection.Email,
		Phone:       sess.Selection.Phone,
		Description: desc,
	}
	if e.tickets == nil {
		slog.Warn("Engine.handleHelpDescription: no ticket sink configured, dropping request", "userID", sess.UserID)
		sess.Step = models.StepAwaitMain
		return reply(text(i18n.T(loc, "help.failed")), buildMainMenu(loc)), nil
	}
	if err := e.tickets.Create(ctx, ticket); err != nil {
		slog.Error("Engine.handleHelpDescription: ticket creation failed", "error", err, "userID", sess.UserID)
		sess.Step = models.StepAwaitMain
		return reply(text(i18n.T(loc, "help.failed")), buildMainMenu(loc)), nil
	}
	slog.Info("Engine.handleHelpDescription: ticket submitted", "userID", sess.UserID)
	return terminal(text(i18n.T(loc, "help.done"))), nil
}

// Cancel and reschedule share the contact-lookup stage: the user sends the
// email or phone they booked with, and the matching appointments are listed.

// contactValue validates and canonicalizes a lookup contact. Emails pass
// through; phone numbers are reduced to digits.
func contactValue(input string) (contact string, isEmail, ok bool) {
	v := strings.TrimSpace(input)
	if emailRe.MatchString(v) {
		return v, true, true
	}
	digits := digitsRe.ReplaceAllString(v, "")
	if len(digits) >= 6 {
		return digits, false, true
	}
	return "", false, false
}

func (e *Engine) lookupAppointments(ctx context.Context, sess *models.Session, ev models.Event, pickStep models.Step) (outcome, error) {
	loc := locale(sess)
	contact, isEmail, ok := contactValue(ev.Text)
	if !ok {
		if sess.BumpAttempts("contact") >= models.MaxFieldAttempts {
			return abort(sess), nil
		}
		return reply(text(i18n.T(loc, "lookup.invalid"))), nil
	}
	sess.ResetAttempts("contact")

	appts, err := e.provider.FindAppointments(ctx, sess, contact)
	if err != nil {
		return outcome{}, err
	}
	if len(appts) == 0 {
		sess.Step = models.StepAwaitMain
		return reply(text(i18n.T(loc, "appointments.none")), buildMainMenu(loc)), nil
	}

	// The canonical contact is kept so pick-stage pagination can re-run the
	// same lookup without asking again.
	if isEmail {
		sess.Selection.Email = contact
	} else {
		sess.Selection.Phone = contact
	}
	sess.Step = pickStep
	return reply(buildAppointmentList(loc, appts, 0)), nil
}

func (e *Engine) handleCancelContact(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	return e.lookupAppointments(ctx, sess, ev, models.StepAwaitCancelPick)
}

func (e *Engine) handleRescheduleContact(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	return e.lookupAppointments(ctx, sess, ev, models.StepAwaitReschedulePick)
}

// lookupContact recovers the canonical contact stored at the lookup stage.
func lookupContact(sess *models.Session) (string, error) {
	if sess.Selection.Email != "" {
		return sess.Selection.Email, nil
	}
	if sess.Selection.Phone != "" {
		return sess.Selection.Phone, nil
	}
	return "", fmt.Errorf("appointment pick without a lookup contact: %w", models.ErrMissingSelection)
}

func (e *Engine) findByContact(ctx context.Context, sess *models.Session) ([]models.Appointment, error) {
	contact, err := lookupContact(sess)
	if err != nil {
		return nil, err
	}
	return e.provider.FindAppointments(ctx, sess, contact)
}

func (e *Engine) handleCancelPick(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)

	if prefix == "apptpage" {
		appts, err := e.findByContact(ctx, sess)
		if err != nil {
			return outcome{}, err
		}
		return reply(buildAppointmentList(loc, appts, pageIndex(rest))), nil
	}
	if prefix != "appt" || rest == "" {
		return e.resetToMain(sess), nil
	}

	res, err := e.executeCancel(ctx, sess, rest)
	if err != nil {
		slog.Error("Engine.handleCancelPick: cancel failed", "error", err, "ref", rest, "userID", sess.UserID)
		return terminal(text(i18n.T(loc, "cancel.failed"))), nil
	}
	return terminal(text(i18n.T(loc, "cancel.confirmed", res.Ref))), nil
}

func (e *Engine) handleReschedulePick(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	loc := locale(sess)
	prefix, rest := splitSelection(ev.SelectionID)

	if prefix == "apptpage" {
		appts, err := e.findByContact(ctx, sess)
		if err != nil {
			return outcome{}, err
		}
		return reply(buildAppointmentList(loc, appts, pageIndex(rest))), nil
	}
	if prefix != "appt" || rest == "" {
		return e.resetToMain(sess), nil
	}

	appts, err := e.findByContact(ctx, sess)
	if err != nil {
		return outcome{}, err
	}
	var picked *models.Appointment
	for i := range appts {
		if appts[i].Ref == rest {
			picked = &appts[i]
			break
		}
	}
	if picked == nil {
		slog.Warn("Engine.handleReschedulePick: stale appointment ref, re-listing", "ref", rest, "userID", sess.UserID)
		return reply(buildAppointmentList(loc, appts, 0)), nil
	}

	// Availability for the replacement slot is scanned with the original
	// appointment's service and assignee, starting from its current day.
	sess.Selection.AppointmentRef = picked.Ref
	sess.Selection.ServiceID = picked.ServiceID
	sess.Selection.ServiceName = picked.ServiceName
	sess.Selection.ServiceCategory = picked.Category
	sess.Selection.StaffID = picked.StaffID
	sess.Selection.GroupID = picked.GroupID
	sess.Selection.ResourceID = picked.ResourceID
	resetScan(sess, picked.Date)

	slots, hasMore, err := e.findNextAvailable(ctx, sess, SlotPageSize, DefaultMaxScanDays)
	if err != nil {
		return outcome{}, err
	}
	if len(slots) == 0 {
		sess.Step = models.StepAwaitMain
		return reply(text(i18n.T(loc, "slot.none")), buildMainMenu(loc)), nil
	}
	sess.Step = models.StepAwaitRescheduleSlot
	return reply(buildSlotList(loc, i18n.T(loc, "reschedule.slot_prompt", picked.ServiceName), slots, 1, hasMore)), nil
}

func (e *Engine) handleRescheduleSlot(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
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
		prompt := i18n.T(loc, "reschedule.slot_prompt", sess.Selection.ServiceName)
		return reply(buildSlotList(loc, prompt, slots, pageIndex(rest)+1, hasMore)), nil
	}
	if prefix != "slot" {
		return e.resetToMain(sess), nil
	}

	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return outcome{}, fmt.Errorf("malformed slot id %q: %w", ev.SelectionID, models.ErrMissingSelection)
	}

	res, err := e.executeReschedule(ctx, sess, parts[0], parts[1])
	if err != nil {
		slog.Error("Engine.handleRescheduleSlot: reschedule failed", "error", err, "ref", sess.Selection.AppointmentRef, "userID", sess.UserID)
		return terminal(text(i18n.T(loc, "reschedule.failed"))), nil
	}
	return terminal(text(i18n.T(loc, "reschedule.confirmed", res.Ref))), nil
}
