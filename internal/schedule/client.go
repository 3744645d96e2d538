package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/models"
)

// Caller abstracts the resilient HTTP client so tests can substitute a fake.
type Caller interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (httpx.Result, error)
}

// Tokener resolves provider access tokens against the session cache.
type Tokener interface {
	Token(ctx context.Context, sess *models.Session) (string, error)
}

// Client talks to the scheduling service. Every call resolves credentials
// first and goes through the resilient HTTP layer.
type Client struct {
	base   string
	caller Caller
	tokens Tokener
}

// NewClient creates a scheduling-service client rooted at the given base URL.
func NewClient(base string, caller Caller, tokens Tokener) *Client {
	return &Client{base: base, caller: caller, tokens: tokens}
}

// envelope is the provider's outer response shape. Success is signalled by
// a nested status string, not the HTTP code alone.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, sess *models.Session, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx, sess)
	if err != nil {
		return nil, err
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	res, err := c.caller.Do(ctx, method, u, headers, payload)
	if err != nil {
		return nil, err
	}
	if !res.ParseOK {
		slog.Warn("schedule.Client: unparsable provider body", "path", path, "status", res.Status)
		return nil, models.ErrProviderUnparsable
	}

	var env envelope
	if err := res.Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode provider envelope: %w", err)
	}
	if res.Status >= 400 || env.Status != "success" {
		return nil, fmt.Errorf("provider call %s failed: http %d, status %q", path, res.Status, env.Status)
	}
	return env.Data, nil
}

// ListServices returns the bookable services.
func (c *Client) ListServices(ctx context.Context, sess *models.Session) ([]models.Service, error) {
	data, err := c.call(ctx, sess, http.MethodGet, "/services", nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Services []models.Service `json:"services"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return out.Services, nil
}

// ListStaff returns the staff members offering the given service.
func (c *Client) ListStaff(ctx context.Context, sess *models.Session, serviceID string) ([]models.Staff, error) {
	q := url.Values{"service_id": {serviceID}}
	data, err := c.call(ctx, sess, http.MethodGet, "/staff", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Staff []models.Staff `json:"staff"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode staff: %w", err)
	}
	return out.Staff, nil
}

// SlotQuery identifies one day's availability lookup. Exactly one of
// StaffID, GroupID or ResourceID is set, matching the service category.
type SlotQuery struct {
	ServiceID  string
	Date       string // DD-Mon-YYYY
	Category   models.Category
	StaffID    string
	GroupID    string
	ResourceID string
}

// AvailableSlots returns the open times on the queried day, normalized to
// 24-hour HH:MM regardless of the provider's display form.
func (c *Client) AvailableSlots(ctx context.Context, sess *models.Session, sq SlotQuery) ([]string, error) {
	q := url.Values{
		"service_id": {sq.ServiceID},
		"date":       {sq.Date},
	}
	switch sq.Category {
	case models.CategoryGroup:
		q.Set("group_id", sq.GroupID)
	case models.CategoryResource:
		q.Set("resource_id", sq.ResourceID)
	default:
		q.Set("staff_id", sq.StaffID)
	}

	data, err := c.call(ctx, sess, http.MethodGet, "/availability", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	times := make([]string, 0, len(out.Slots))
	for _, s := range out.Slots {
		norm, err := models.NormalizeTime(s)
		if err != nil {
			slog.Warn("schedule.AvailableSlots: skipping malformed slot time", "value", s, "date", sq.Date)
			continue
		}
		times = append(times, norm)
	}
	return times, nil
}

// AppointmentRequest carries the finalized booking data for the provider.
// EndTime is start + service duration, computed by the caller.
type AppointmentRequest struct {
	ServiceID  string `json:"service_id"`
	StaffID    string `json:"staff_id,omitempty"`
	GroupID    string `json:"group_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Name       string `json:"customer_name"`
	Email      string `json:"customer_email"`
	Phone      string `json:"customer_phone"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

type bookingData struct {
	Appointment struct {
		Ref        string `json:"reference"`
		SummaryURL string `json:"summary_url"`
	} `json:"appointment"`
}

// CreateAppointment books the appointment and returns the provider's
// reference and summary link.
func (c *Client) CreateAppointment(ctx context.Context, sess *models.Session, req AppointmentRequest) (models.BookingResult, error) {
	data, err := c.call(ctx, sess, http.MethodPost, "/appointments", nil, req)
	if err != nil {
		return models.BookingResult{}, err
	}
	var out bookingData
	if err := json.Unmarshal(data, &out); err != nil {
		return models.BookingResult{}, fmt.Errorf("failed to decode booking result: %w", err)
	}
	return models.BookingResult{OK: true, Ref: out.Appointment.Ref, SummaryURL: out.Appointment.SummaryURL}, nil
}

// CancelAppointment cancels the referenced appointment.
func (c *Client) CancelAppointment(ctx context.Context, sess *models.Session, ref string) (models.BookingResult, error) {
	path := "/appointments/" + url.PathEscape(ref) + "/cancel"
	if _, err := c.call(ctx, sess, http.MethodPost, path, nil, nil); err != nil {
		return models.BookingResult{}, err
	}
	return models.BookingResult{OK: true, Ref: ref}, nil
}

// RescheduleAppointment moves the referenced appointment to a new slot.
func (c *Client) RescheduleAppointment(ctx context.Context, sess *models.Session, ref, date, start string) (models.BookingResult, error) {
	path := "/appointments/" + url.PathEscape(ref) + "/reschedule"
	body := map[string]string{"date": date, "start_time": start}
	data, err := c.call(ctx, sess, http.MethodPost, path, nil, body)
	if err != nil {
		return models.BookingResult{}, err
	}
	var out bookingData
	if err := json.Unmarshal(data, &out); err != nil {
		return models.BookingResult{}, fmt.Errorf("failed to decode reschedule result: %w", err)
	}
	result := models.BookingResult{OK: true, Ref: out.Appointment.Ref, SummaryURL: out.Appointment.SummaryURL}
	if result.Ref == "" {
		result.Ref = ref
	}
	return result, nil
}

// FindAppointments looks up upcoming appointments by contact detail
// (email address or phone number).
func (c *Client) FindAppointments(ctx context.Context, sess *models.Session, contact string) ([]models.Appointment, error) {
	q := url.Values{"contact": {contact}}
	data, err := c.call(ctx, sess, http.MethodGet, "/appointments", q, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	for i := range out.Appointments {
		if norm, err := models.NormalizeTime(out.Appointments[i].Time); err == nil {
			out.Appointments[i].Time = norm
		}
	}
	return out.Appointments, nil
}
