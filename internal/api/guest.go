package api

import (
	"net/http"

	"hotelbook/internal/booking"
	"hotelbook/internal/models"

	"github.com/go-chi/chi/v5"
)

// GET /api/room-types
func (s *Server) handleListRoomTypes(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.DB.ListRoomTypes(r.Context(), false)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.RoomType{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_types": list})
}

// GET /api/room-types/{id}/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	days, err := s.deps.Calendar.Days(r.Context(), id, start, end)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_type_id": id,
		"start":        models.FormatDate(start),
		"end":          models.FormatDate(end),
		"days":         days,
	})
}

// POST /api/bookings
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Formats were checked by the validator.
	checkIn, _ := models.ParseDate(req.CheckIn)
	checkOut, _ := models.ParseDate(req.CheckOut)

	b, err := s.deps.Bookings.Create(r.Context(), booking.CreateRequest{
		RoomTypeID:     req.RoomTypeID,
		GuestName:      req.GuestName,
		GuestEmail:     req.GuestEmail,
		GuestPhone:     req.GuestPhone,
		Message:        req.Message,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		NumberOfGuests: req.NumberOfGuests,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b, false))
}

// GET /api/bookings/{reference}?phone=...
func (s *Server) handleGuestBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Bookings.GetForGuest(r.Context(), chi.URLParam(r, "reference"), r.URL.Query().Get("phone"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, false))
}

// POST /api/bookings/{reference}/cancel
func (s *Server) handleGuestCancel(w http.ResponseWriter, r *http.Request) {
	var req guestCancelRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	b, err := s.deps.Bookings.CancelByGuest(r.Context(), chi.URLParam(r, "reference"), req.Phone)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, false))
}
