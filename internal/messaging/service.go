// Package messaging provides the pluggable message delivery abstraction and
// its WhatsApp Cloud API and Twilio implementations.
package messaging

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/slotline/slotline/internal/models"
)

// phoneNumberRegex matches everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message delivery abstraction. Inbound events
// arrive via the channel's webhook and are decoded by ParseWebhook.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each service implements its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage delivers a structured message to a recipient.
	SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error

	// VerifyWebhook answers the channel's GET verification handshake. ok is
	// false when the request does not carry the expected shared secret (or
	// the channel has no handshake).
	VerifyWebhook(r *http.Request) (challenge string, ok bool)

	// ParseWebhook decodes one webhook delivery into inbound events.
	ParseWebhook(contentType string, body []byte) ([]models.Event, error)
}

// canonicalizePhone strips non-digits and validates a minimum length,
// shared by both channel implementations.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	return canonical, nil
}
