package flow

import (
	"context"
	"fmt"

	"github.com/slotline/slotline/internal/models"
	"github.com/slotline/slotline/internal/schedule"
)

// executeBooking assembles the final appointment request from the
// accumulated selection and books it. The end time is start plus the
// service duration, read out of the provider's free-text duration field.
func (e *Engine) executeBooking(ctx context.Context, sess *models.Session) (models.BookingResult, error) {
	sel := sess.Selection
	if sel.ServiceID == "" || sel.SlotDate == "" || sel.SlotTime == "" ||
		sel.Name == "" || sel.Email == "" || sel.Phone == "" {
		return models.BookingResult{}, fmt.Errorf("booking fields incomplete: %w", models.ErrMissingSelection)
	}

	req := schedule.AppointmentRequest{
		ServiceID:  sel.ServiceID,
		Date:       sel.SlotDate,
		StartTime:  sel.SlotTime,
		Name:       sel.Name,
		Email:      sel.Email,
		Phone:      sel.Phone,
		PaymentRef: sess.Payment.ConfirmationID,
	}
	switch sel.ServiceCategory {
	case models.CategoryGroup:
		if sel.GroupID == "" {
			return models.BookingResult{}, fmt.Errorf("group service without group id: %w", models.ErrMissingSelection)
		}
		req.GroupID = sel.GroupID
	case models.CategoryResource:
		if sel.ResourceID == "" {
			return models.BookingResult{}, fmt.Errorf("resource service without resource id: %w", models.ErrMissingSelection)
		}
		req.ResourceID = sel.ResourceID
	default:
		if sel.StaffID == "" {
			return models.BookingResult{}, fmt.Errorf("individual service without staff id: %w", models.ErrMissingSelection)
		}
		req.StaffID = sel.StaffID
	}

	end, err := models.AddMinutes(sel.SlotTime, models.DurationMinutes(sel.DurationRaw))
	if err != nil {
		return models.BookingResult{}, err
	}
	req.EndTime = end

	return e.provider.CreateAppointment(ctx, sess, req)
}

// executeCancel cancels the referenced appointment.
func (e *Engine) executeCancel(ctx context.Context, sess *models.Session, ref string) (models.BookingResult, error) {
	if ref == "" {
		return models.BookingResult{}, fmt.Errorf("cancel without a reference: %w", models.ErrMissingSelection)
	}
	return e.provider.CancelAppointment(ctx, sess, ref)
}

// executeReschedule moves the picked appointment to the new slot.
func (e *Engine) executeReschedule(ctx context.Context, sess *models.Session, date, start string) (models.BookingResult, error) {
	ref := sess.Selection.AppointmentRef
	if ref == "" {
		return models.BookingResult{}, fmt.Errorf("reschedule without a reference: %w", models.ErrMissingSelection)
	}
	return e.provider.RescheduleAppointment(ctx, sess, ref, date, start)
}
