// Package flow implements the conversation state machine that drives the
// booking wizard: a dispatch table keyed by (step, event kind), the step
// handlers, the slot-discovery engine and the outbound message builders.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/slotline/slotline/internal/i18n"
	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/schedule"
	"github.com/slotline/slotline/internal/session"
)

// SchedulingProvider is the scheduling-service surface the wizard consumes.
type SchedulingProvider interface {
	ListServices(ctx context.Context, sess *models.Session) ([]models.Service, error)
	ListStaff(ctx context.Context, sess *models.Session, serviceID string) ([]models.Staff, error)
	AvailableSlots(ctx context.Context, sess *models.Session, q schedule.SlotQuery) ([]string, error)
	CreateAppointment(ctx context.Context, sess *models.Session, req schedule.AppointmentRequest) (models.BookingResult, error)
	CancelAppointment(ctx context.Context, sess *models.Session, ref string) (models.BookingResult, error)
	RescheduleAppointment(ctx context.Context, sess *models.Session, ref, date, start string) (models.BookingResult, error)
	FindAppointments(ctx context.Context, sess *models.Session, contact string) ([]models.Appointment, error)
}

// PaymentService creates and verifies payment links for paid services.
type PaymentService interface {
	CreateLink(ctx context.Context, amountCents int64, currency, description, sessionID string) (models.PaymentLink, error)
	Verify(ctx context.Context, linkID string) (bool, string, error)
}

// TicketSink receives support requests from the help branch.
type TicketSink interface {
	Create(ctx context.Context, t models.Ticket) error
}

// handlerFunc processes one inbound event against the session. The returned
// outcome carries the reply messages and whether the session is terminal.
type handlerFunc func(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error)

type outcome struct {
	messages []models.OutboundMessage
	clear    bool
}

func reply(msgs ...models.OutboundMessage) outcome {
	return outcome{messages: msgs}
}

func terminal(msgs ...models.OutboundMessage) outcome {
	return outcome{messages: msgs, clear: true}
}

// Engine is the step-indexed wizard controller.
type Engine struct {
	sessions *session.Manager
	provider SchedulingProvider
	payments PaymentService
	tickets  TicketSink
	handlers map[models.Step]map[models.EventKind]handlerFunc
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the dispatch table. payments may be nil when no payment
// processor is configured; paid services then book without a payment step.
func NewEngine(sessions *session.Manager, provider SchedulingProvider, payments PaymentService, tickets TicketSink, opts ...EngineOption) *Engine {
	e := &Engine{
		sessions: sessions,
		provider: provider,
		payments: payments,
		tickets:  tickets,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[models.Step]map[models.EventKind]handlerFunc{
		models.StepAwaitLanguage: {
			models.EventText: e.handleLanguage,
			models.EventList: e.handleLanguage,
		},
		models.StepAwaitMain: {
			models.EventButton: e.handleMain,
		},
		models.StepAwaitBookingMenu: {
			models.EventList: e.handleBookingMenu,
		},
		models.StepAwaitService: {
			models.EventList: e.handleService,
		},
		models.StepAwaitStaff: {
			models.EventList: e.handleStaff,
		},
		models.StepAwaitMonth: {
			models.EventList: e.handleMonth,
		},
		models.StepAwaitDate: {
			models.EventList: e.handleDate,
		},
		models.StepAwaitSlot: {
			models.EventList: e.handleSlot,
		},
		models.StepAwaitName: {
			models.EventText: e.handleName,
		},
		models.StepAwaitEmail: {
			models.EventText: e.handleEmail,
		},
		models.StepAwaitPhone: {
			models.EventText: e.handlePhone,
		},
		models.StepAwaitPayment: {
			models.EventButton: e.handlePayment,
		},
		models.StepAwaitHelpName: {
			models.EventText: e.handleHelpName,
		},
		models.StepAwaitHelpEmail: {
			models.EventText: e.handleHelpEmail,
		},
		models.StepAwaitHelpPhone: {
			models.EventText: e.handleHelpPhone,
		},
		models.StepAwaitHelpDescription: {
			models.EventText: e.handleHelpDescription,
		},
		models.StepAwaitCancelContact: {
			models.EventText: e.handleCancelContact,
		},
		models.StepAwaitRescheduleContact: {
			models.EventText: e.handleRescheduleContact,
		},
		models.StepAwaitCancelPick: {
			models.EventList: e.handleCancelPick,
		},
		models.StepAwaitReschedulePick: {
			models.EventList: e.handleReschedulePick,
		},
		models.StepAwaitRescheduleSlot: {
			models.EventList: e.handleRescheduleSlot,
		},
	}
	return e
}

// HandleEvent processes one inbound event start-to-finish and returns the
// outbound replies for the delivery channel. Redelivered events produce no
// replies and no state mutation.
func (e *Engine) HandleEvent(ctx context.Context, ev models.Event) ([]models.OutboundMessage, error) {
	sess, created, err := e.sessions.Get(ev.From)
	if err != nil {
		return nil, err
	}
	if !session.ShouldProcess(sess, ev.ID) {
		return nil, nil
	}

	var out outcome
	if created {
		// First contact (or restart after expiry): greet with the language
		// menu regardless of what the user sent.
		out = reply(buildLanguageMenu())
	} else {
		out, err = e.dispatch(ctx, sess, translateNumericReply(sess, ev))
		if err != nil {
			out = e.recoverOutcome(sess, err)
		}
	}

	if out.clear {
		if err := e.sessions.Clear(sess.UserID); err != nil {
			return out.messages, err
		}
		slog.Info("Engine.HandleEvent: session cleared", "userID", sess.UserID, "sessionID", sess.ID)
		return out.messages, nil
	}
	rememberMenu(sess, out.messages)
	if err := e.sessions.Save(sess); err != nil {
		return out.messages, err
	}
	return out.messages, nil
}

// translateNumericReply maps a bare-number text reply onto the matching
// entry of the last menu the user was shown. Channels without interactive
// messages (Twilio) flatten menus to numbered text, so their users answer
// with digits; everyone else's text events pass through untouched.
func translateNumericReply(sess *models.Session, ev models.Event) models.Event {
	if ev.Kind != models.EventText || len(sess.LastMenu) == 0 {
		return ev
	}
	n, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil || n < 1 || n > len(sess.LastMenu) {
		return ev
	}
	opt := sess.LastMenu[n-1]
	slog.Debug("flow.translateNumericReply: numbered reply mapped", "userID", sess.UserID, "n", n, "selectionID", opt.ID)
	ev.Kind = opt.Kind
	ev.SelectionID = opt.ID
	ev.SelectionTitle = opt.Title
	ev.Text = ""
	return ev
}

// rememberMenu records the selectable entries of the latest outbound menu
// for translateNumericReply. A reply carrying no menu clears the record so
// digit answers at free-text stages (phone, description) stay literal.
func rememberMenu(sess *models.Session, msgs []models.OutboundMessage) {
	sess.LastMenu = nil
	for _, m := range msgs {
		switch {
		case m.List != nil:
			opts := make([]models.MenuOption, 0, len(m.List.Rows))
			for _, r := range m.List.Rows {
				opts = append(opts, models.MenuOption{ID: r.ID, Title: r.Title, Kind: models.EventList})
			}
			sess.LastMenu = opts
		case len(m.Buttons) > 0:
			opts := make([]models.MenuOption, 0, len(m.Buttons))
			for _, b := range m.Buttons {
				opts = append(opts, models.MenuOption{ID: b.ID, Title: b.Title, Kind: models.EventButton})
			}
			sess.LastMenu = opts
		}
	}
}

// dispatch routes the event to exactly one handler. An event shape with no
// handler registered for the current step falls through to the default
// handler, which resets to the main menu so the conversation can never
// become permanently stuck.
func (e *Engine) dispatch(ctx context.Context, sess *models.Session, ev models.Event) (outcome, error) {
	if kinds, ok := e.handlers[sess.Step]; ok {
		if h, ok := kinds[ev.Kind]; ok {
			slog.Debug("Engine.dispatch: routing event", "step", sess.Step, "kind", ev.Kind, "userID", sess.UserID)
			return h(ctx, sess, ev)
		}
	}
	slog.Debug("Engine.dispatch: no handler, resetting to main menu", "step", sess.Step, "kind", ev.Kind, "userID", sess.UserID)
	return e.resetToMain(sess), nil
}

// resetToMain moves the wizard back to the main menu without touching the
// accumulated selection; explicit "home" entries wipe it separately.
func (e *Engine) resetToMain(sess *models.Session) outcome {
	sess.Step = models.StepAwaitMain
	return reply(buildMainMenu(locale(sess)))
}

// recoverOutcome translates handler errors into user-facing recovery
// prompts. A missing earlier selection means the wizard state is torn;
// everything else is surfaced as a generic try-again.
func (e *Engine) recoverOutcome(sess *models.Session, err error) outcome {
	loc := locale(sess)
	failedStep := sess.Step
	sess.Step = models.StepAwaitMain
	if errors.Is(err, models.ErrMissingSelection) {
		slog.Warn("Engine.recoverOutcome: torn wizard state", "error", err, "userID", sess.UserID, "step", failedStep)
		return reply(text(i18n.T(loc, "error.start_over")), buildMainMenu(loc))
	}
	slog.Error("Engine.recoverOutcome: handler failed", "error", err, "userID", sess.UserID, "step", failedStep)
	return reply(text(i18n.T(loc, "error.generic")), buildMainMenu(loc))
}

// locale resolves the session's display language.
func locale(sess *models.Session) string {
	if sess.Language != "" {
		return sess.Language
	}
	return i18n.DefaultLocale
}

// abort clears the session after the validation retry budget is exhausted.
func abort(sess *models.Session) outcome {
	slog.Info("flow.abort: validation budget exhausted", "userID", sess.UserID, "step", sess.Step)
	return terminal(text(i18n.T(locale(sess), "common.aborted")))
}
