// Package models defines the core data structures for Slotline.
//
// It includes the per-user conversation session, inbound/outbound message
// shapes, and read-only projections of scheduling-provider data shared
// across modules.
package models

import (
	"errors"
	"time"
)

// Step identifies the current node of the booking wizard for a session.
type Step string

const (
	// StepAwaitLanguage waits for the user to pick a conversation language.
	StepAwaitLanguage Step = "AWAIT_LANGUAGE"
	// StepAwaitMain waits for a main-menu selection.
	StepAwaitMain Step = "AWAIT_MAIN"
	// StepAwaitBookingMenu waits for a booking-menu selection (book, reschedule, cancel).
	StepAwaitBookingMenu Step = "AWAIT_BOOKING_MENU"
	// StepAwaitService waits for a service selection.
	StepAwaitService Step = "AWAIT_SERVICE"
	// StepAwaitStaff waits for a staff selection; skipped for group and resource services.
	StepAwaitStaff Step = "AWAIT_STAFF"
	// StepAwaitMonth waits for a month selection.
	StepAwaitMonth Step = "AWAIT_MONTH"
	// StepAwaitDate waits for a date selection inside the chosen month.
	StepAwaitDate Step = "AWAIT_DATE"
	// StepAwaitSlot waits for a time-slot selection.
	StepAwaitSlot Step = "AWAIT_SLOT"
	// StepAwaitName waits for the customer's name.
	StepAwaitName Step = "AWAIT_NAME"
	// StepAwaitEmail waits for the customer's email address.
	StepAwaitEmail Step = "AWAIT_EMAIL"
	// StepAwaitPhone waits for the customer's phone number.
	StepAwaitPhone Step = "AWAIT_PHONE"
	// StepAwaitPayment waits for payment confirmation on paid services.
	StepAwaitPayment Step = "AWAIT_PAYMENT"

	// StepAwaitHelpName through StepAwaitHelpDescription capture a support ticket.
	StepAwaitHelpName        Step = "AWAIT_HELP_NAME"
	StepAwaitHelpEmail       Step = "AWAIT_HELP_EMAIL"
	StepAwaitHelpPhone       Step = "AWAIT_HELP_PHONE"
	StepAwaitHelpDescription Step = "AWAIT_HELP_DESCRIPTION"

	// StepAwaitCancelContact waits for an email or phone to look up appointments to cancel.
	StepAwaitCancelContact Step = "AWAIT_CANCEL_CONTACT"
	// StepAwaitRescheduleContact waits for an email or phone to look up appointments to move.
	StepAwaitRescheduleContact Step = "AWAIT_RESCHEDULE_CONTACT"
	// StepAwaitCancelPick waits for an appointment selection to cancel.
	StepAwaitCancelPick Step = "AWAIT_APPOINTMENT_LIST_CANCEL"
	// StepAwaitReschedulePick waits for an appointment selection to reschedule.
	StepAwaitReschedulePick Step = "AWAIT_APPOINTMENT_LIST_RESCHEDULE"
	// StepAwaitRescheduleSlot waits for the replacement slot selection.
	StepAwaitRescheduleSlot Step = "AWAIT_RESCHEDULE_SLOT"
)

// IsValidStep checks whether the given step is one of the wizard states.
func IsValidStep(s Step) bool {
	switch s {
	case StepAwaitLanguage, StepAwaitMain, StepAwaitBookingMenu, StepAwaitService,
		StepAwaitStaff, StepAwaitMonth, StepAwaitDate, StepAwaitSlot,
		StepAwaitName, StepAwaitEmail, StepAwaitPhone, StepAwaitPayment,
		StepAwaitHelpName, StepAwaitHelpEmail, StepAwaitHelpPhone, StepAwaitHelpDescription,
		StepAwaitCancelContact, StepAwaitRescheduleContact,
		StepAwaitCancelPick, StepAwaitReschedulePick, StepAwaitRescheduleSlot:
		return true
	default:
		return false
	}
}

// SessionTTL is how long a session survives without activity before a new
// inbound event starts a fresh conversation.
const SessionTTL = 15 * time.Minute

// MaxFieldAttempts bounds consecutive invalid submissions on any
// input-validation stage before the session is aborted.
const MaxFieldAttempts = 3

// Error variables shared across modules.
var (
	ErrSessionExpired     = errors.New("session expired")
	ErrMissingSelection   = errors.New("required selection missing from session")
	ErrEmptyRecipient     = errors.New("recipient cannot be empty")
	ErrProviderUnparsable = errors.New("provider response body is not valid JSON")
	ErrTokenRefresh       = errors.New("credential refresh failed")
)

// Category is the scheduling semantics of a bookable service. It determines
// which identifier type is sent to the scheduling service.
type Category string

const (
	// CategoryIndividual books a single staff member.
	CategoryIndividual Category = "individual"
	// CategoryGroup books a staffed collective session.
	CategoryGroup Category = "group"
	// CategoryResource books a physical resource.
	CategoryResource Category = "resource"
)

// Credential is a cached scheduling-service access token.
type Credential struct {
	AccessToken string    `json:"access_token,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

// Payment tracks the payment-link lifecycle for a paid booking.
type Payment struct {
	LinkID         string `json:"link_id,omitempty"`
	LinkURL        string `json:"link_url,omitempty"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
}

// Selection accumulates the user's wizard choices. Fields are only
// populated once the matching step has been passed; handlers that find an
// expected field absent must treat it as an error, not a crash.
type Selection struct {
	ServiceID       string   `json:"service_id,omitempty"`
	ServiceName     string   `json:"service_name,omitempty"`
	ServiceCategory Category `json:"service_category,omitempty"`
	PriceCents      int64    `json:"price_cents,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	DurationRaw     string   `json:"duration_raw,omitempty"`
	StaffID         string   `json:"staff_id,omitempty"`
	GroupID         string   `json:"group_id,omitempty"`
	ResourceID      string   `json:"resource_id,omitempty"`
	Month           string   `json:"month,omitempty"` // YYYY-MM
	Date            string   `json:"date,omitempty"`  // DD-Mon-YYYY
	SlotID          string   `json:"slot_id,omitempty"`
	SlotDate        string   `json:"slot_date,omitempty"` // DD-Mon-YYYY
	SlotTime        string   `json:"slot_time,omitempty"` // HH:MM
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	// Appointment being cancelled or rescheduled.
	AppointmentRef string `json:"appointment_ref,omitempty"`
	// Support-ticket description captured on the help branch.
	HelpDescription string `json:"help_description,omitempty"`
}

// ScanCursor is the resumable position of the slot-discovery engine so a
// "show more" request continues exactly where the previous page stopped.
type ScanCursor struct {
	Date        string   `json:"date,omitempty"` // DD-Mon-YYYY currently scanned day
	DaysScanned int      `json:"days_scanned,omitempty"`
	Fetched     bool     `json:"fetched,omitempty"`
	DaySlots    []string `json:"day_slots,omitempty"` // normalized HH:MM times for Date
	Offset      int      `json:"offset,omitempty"`    // consumed entries of DaySlots
	Counter     int      `json:"counter,omitempty"`   // running counter for composite slot ids
}

// Cursors holds all pagination positions persisted on the session.
type Cursors struct {
	DatePage int        `json:"date_page,omitempty"`
	SlotScan ScanCursor `json:"slot_scan,omitempty"`
}

// MenuOption is one selectable entry of the most recent outbound menu,
// retained on the session so channels without interactive messages can map
// a numbered text reply back to the selection it stands for.
type MenuOption struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Kind  EventKind `json:"kind"`
}

// Session is the durable-for-TTL conversation state for one user.
type Session struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Step        Step           `json:"step"`
	Language    string         `json:"language,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastEventID string         `json:"last_event_id,omitempty"`
	Attempts    map[string]int `json:"attempts,omitempty"`
	Selection   Selection      `json:"selection"`
	Cursors     Cursors        `json:"cursors"`
	Credential  Credential     `json:"credential"`
	Payment     Payment        `json:"payment"`
	LastMenu    []MenuOption   `json:"last_menu,omitempty"`
}

// Expired reports whether the session has outlived the TTL at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > SessionTTL
}

// BumpAttempts increments and returns the attempt counter for a validation field.
func (s *Session) BumpAttempts(field string) int {
	if s.Attempts == nil {
		s.Attempts = make(map[string]int)
	}
	s.Attempts[field]++
	return s.Attempts[field]
}

// ResetAttempts clears the attempt counter for a validation field.
func (s *Session) ResetAttempts(field string) {
	if s.Attempts != nil {
		delete(s.Attempts, field)
	}
}

// EventKind is the shape of an inbound channel event.
type EventKind string

const (
	// EventText is free-form text typed by the user.
	EventText EventKind = "text"
	// EventButton is a quick-reply button selection.
	EventButton EventKind = "button"
	// EventList is a list-menu row selection.
	EventList EventKind = "list"
)

// Event is one inbound message delivered by the channel. ID is the
// delivery-unique identifier used for idempotent handling.
type Event struct {
	ID             string    `json:"id"`
	From           string    `json:"from"`
	Kind           EventKind `json:"kind"`
	Text           string    `json:"text,omitempty"`
	SelectionID    string    `json:"selection_id,omitempty"`
	SelectionTitle string    `json:"selection_title,omitempty"`
}

// Button is a quick-reply option on an outbound message.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Row is one selectable entry of an outbound list menu.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListMenu is a paged selectable menu. Rows are capped at the platform
// limit by the builders, never here.
type ListMenu struct {
	Button string `json:"button"`
	Rows   []Row  `json:"rows"`
}

// OutboundMessage is a structured message handed to the delivery channel.
// Exactly one of Buttons or List may be set alongside Text.
type OutboundMessage struct {
	Text    string    `json:"text"`
	Buttons []Button  `json:"buttons,omitempty"`
	List    *ListMenu `json:"list,omitempty"`
}

// Service is a read-only projection of a bookable scheduling-service item.
type Service struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	PriceCents int64    `json:"price_cents,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Duration   string   `json:"duration,omitempty"` // free text, e.g. "45 mins"
	GroupID    string   `json:"group_id,omitempty"`
	ResourceID string   `json:"resource_id,omitempty"`
}

// Staff is a read-only projection of a scheduling-service staff member.
type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Slot is a bookable time interval discovered by the scan engine. ID is a
// pagination-stable composite of day, time and a running counter.
type Slot struct {
	ID   string `json:"id"`
	Date string `json:"date"` // DD-Mon-YYYY
	Time string `json:"time"` // HH:MM
}

// Appointment is a read-only projection of an existing booking.
type Appointment struct {
	Ref         string   `json:"ref"`
	ServiceID   string   `json:"service_id"`
	ServiceName string   `json:"service_name"`
	Category    Category `json:"category"`
	StaffID     string   `json:"staff_id,omitempty"`
	GroupID     string   `json:"group_id,omitempty"`
	ResourceID  string   `json:"resource_id,omitempty"`
	Date        string   `json:"date"` // DD-Mon-YYYY
	Time        string   `json:"time"` // HH:MM
}

// BookingResult is the interpreted outcome of a booking mutation.
type BookingResult struct {
	OK         bool   `json:"ok"`
	Ref        string `json:"ref,omitempty"`
	SummaryURL string `json:"summary_url,omitempty"`
}

// Ticket is a support request captured on the help branch.
type Ticket struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// PaymentLink is a provider-issued checkout link correlated to a session.
type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
