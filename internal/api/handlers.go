package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slotline/slotline/internal/models"
)

// webhookHandler serves both halves of the channel webhook: the GET
// verification handshake and POST event deliveries.
//
// Deliveries are always acknowledged with 200 once the payload has been
// parsed; the channel retries non-2xx responses, and a retry storm on a
// persistent processing failure would only duplicate user-visible errors.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		challenge, ok := s.msgService.VerifyWebhook(r)
		if !ok {
			slog.Warn("Server.webhookHandler: verification rejected", "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		slog.Info("Server.webhookHandler: verification handshake accepted")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, challenge); err != nil {
			slog.Error("Server.webhookHandler: failed to write challenge", "error", err)
		}
	case http.MethodPost:
		s.handleDelivery(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("Server.handleDelivery: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read request body"))
		return
	}

	events, err := s.msgService.ParseWebhook(r.Header.Get("Content-Type"), body)
	if err != nil {
		slog.Warn("Server.handleDelivery: unparsable delivery", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid webhook payload"))
		return
	}
	slog.Debug("Server.handleDelivery: delivery parsed", "events", len(events))

	for _, ev := range events {
		s.processEvent(ev)
	}
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// processEvent runs one event through the engine and delivers the replies.
// A panic in a handler must not take down the webhook; it is logged and the
// event is dropped.
func (s *Server) processEvent(ev models.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.processEvent: handler panicked", "panic", rec, "eventID", ev.ID, "from", ev.From)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.eventTimeout)
	defer cancel()

	replies, err := s.engine.HandleEvent(ctx, ev)
	if err != nil {
		slog.Error("Server.processEvent: engine failed", "error", err, "eventID", ev.ID, "from", ev.From)
	}
	for _, msg := range replies {
		if sendErr := s.msgService.SendMessage(ctx, ev.From, msg); sendErr != nil {
			slog.Error("Server.processEvent: reply delivery failed", "error", sendErr, "to", ev.From)
			return
		}
	}
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// debugSessionHandler dumps one user's live session state. Only routed when
// debug endpoints are enabled.
func (s *Server) debugSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/debug/sessions/")
	if userID == "" || s.st == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	sess, err := s.st.GetSession(userID)
	if err != nil {
		slog.Error("Server.debugSessionHandler: lookup failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Session lookup failed"))
		return
	}
	if sess == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}
