// Package handlers – booking API dispatcher
//
// This file implements the single-endpoint API the mobile app consumes: one
// GET route whose ?action= query parameter selects the operation. The shape
// is inherited from the gym's previous backend, which the app was built
// against, so it is preserved verbatim: same action names, same parameter
// names, same response fields.
//
// Handlers stay thin: parameter extraction, service call, error translation.
// All business decisions live in the services package.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liftpisa/go-booking-backend/internal/services"
	"github.com/liftpisa/go-booking-backend/internal/utils"
)

// Handler bundles the services the dispatcher delegates to.
type Handler struct {
	Access   *services.AccessService
	Clients  *services.ClientService
	Bookings *services.BookingService
	Slots    *services.SlotService
	Comms    *services.CommunicationService
}

// New constructs the API handler.
func New(access *services.AccessService, clients *services.ClientService,
	bookings *services.BookingService, slots *services.SlotService,
	comms *services.CommunicationService) *Handler {
	return &Handler{
		Access:   access,
		Clients:  clients,
		Bookings: bookings,
		Slots:    slots,
		Comms:    comms,
	}
}

// Exec dispatches on the action query parameter. An empty action returns the
// status banner the app pings at startup; an unknown one is rejected with
// invalid_action.
func (h *Handler) Exec(c *gin.Context) {
	switch action := c.Query("action"); action {
	case "":
		h.status(c)
	case "sendClientCode":
		h.sendClientCode(c)
	case "getClientDataWithBookings":
		h.clientData(c)
	case "getAvailableSlots":
		h.availableSlots(c)
	case "bookSlot":
		h.bookSlot(c)
	case "cancelBooking":
		h.cancelBooking(c)
	case "getCommunications":
		h.communications(c)
	case "getAppUpdateInfo":
		h.appUpdateInfo(c)
	case "getPaymentLink":
		h.paymentLink(c)
	default:
		fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "Azione non valida: "+action)
	}
}

// status is the liveness banner returned when no action is given.
func (h *Handler) status(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"success":   true,
		"status":    "online",
		"service":   "LIFT Pisa Booking API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) sendClientCode(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Parametro email mancante.")
		return
	}
	if err := h.Access.RequestTemporaryCode(c.Request.Context(), email); err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Codice temporaneo inviato via email! Valido per 24 ore.",
	})
}

// loginCode extracts the access code. The app sends it as clientId; code is
// accepted as an alias for older builds and manual calls.
func loginCode(c *gin.Context) string {
	if v := c.Query("clientId"); v != "" {
		return v
	}
	return c.Query("code")
}

func (h *Handler) clientData(c *gin.Context) {
	st, err := h.Clients.Status(c.Request.Context(), c.Query("email"), loginCode(c))
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

func (h *Handler) availableSlots(c *gin.Context) {
	views, err := h.Slots.Available(c.Request.Context(), c.Query("targetDate"))
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "slots": views})
}

func (h *Handler) bookSlot(c *gin.Context) {
	slotID := utils.AtoiDefault(c.Query("slotId"), 0)
	if slotID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Parametro slotId mancante o non valido.")
		return
	}
	res, err := h.Bookings.Book(c.Request.Context(),
		c.Query("email"), loginCode(c), slotID, c.Query("targetDate"))
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success": true,
		"message": res.Message,
		"booking": res.Booking,
	})
}

// cancelBooking authorizes by (email, bookingId) ownership alone; the app
// does not send an access code on this action.
func (h *Handler) cancelBooking(c *gin.Context) {
	msg, err := h.Bookings.Cancel(c.Request.Context(),
		c.Query("email"), c.Query("bookingId"))
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": msg})
}

func (h *Handler) communications(c *gin.Context) {
	list, err := h.Comms.Active(c.Request.Context())
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "communications": list})
}

func (h *Handler) appUpdateInfo(c *gin.Context) {
	info := h.Comms.AppUpdateInfo(c.Query("currentVersion"))
	ok(c, http.StatusOK, gin.H{
		"success":         true,
		"updateAvailable": info.UpdateAvailable,
		"latestVersion":   info.LatestVersion,
		"expoLink":        info.ExpoLink,
		"mandatory":       info.Mandatory,
	})
}

// paymentLink is email-only like sendClientCode; the payment screen is
// reachable before a login completes.
func (h *Handler) paymentLink(c *gin.Context) {
	info, err := h.Clients.PaymentLink(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.fromServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success":     true,
		"hasPayment":  info.HasPayment,
		"paymentLink": info.PaymentLink,
		"message":     info.Message,
	})
}

// fromServiceError translates service-layer errors into the wire envelope.
// Booking-rule refusals keep their Rejection code and Italian reason; other
// sentinels map to fixed codes and messages.
func (h *Handler) fromServiceError(c *gin.Context, err error) {
	if r, isRejection := services.AsRejection(err); isRejection {
		fail(c, http.StatusConflict, r.Code, r.Reason)
		return
	}
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Email non trovata nel sistema.")
	case errors.Is(err, services.ErrMissingClientID):
		fail(c, http.StatusNotFound, ErrCodeMissingClientID,
			"Codice cliente mancante nel database. Contatta la reception.")
	case errors.Is(err, services.ErrSlotNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Slot non trovato.")
	case errors.Is(err, services.ErrBookingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Prenotazione non trovata.")
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Codice non corretto o scaduto.")
	case errors.Is(err, services.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited,
			"Troppe richieste di codice. Riprova più tardi.")
	case errors.Is(err, services.ErrMailDelivery):
		fail(c, http.StatusBadGateway, ErrCodeEmailFailed,
			"Errore nell'invio dell'email. Riprova più tardi.")
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Parametri non validi.")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Errore interno del server.")
	}
}
