package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PUT /api/admin/room-types
func (s *Server) handleUpsertRoomType(w http.ResponseWriter, r *http.Request) {
	var req roomTypeRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rt := &models.RoomType{
		ID:                      req.ID,
		Code:                    strings.TrimSpace(req.Code),
		Name:                    strings.TrimSpace(req.Name),
		DefaultMaxSalesQuantity: req.DefaultMaxSalesQuantity,
		WeekdayPrice:            req.WeekdayPrice,
		WeekendPrice:            req.WeekendPrice,
		Capacity:                req.Capacity,
		IsActive:                active,
	}
	if err := s.deps.DB.UpsertRoomType(r.Context(), rt); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.deps.Calendar.Invalidate(r.Context(), rt.ID)

	stored, err := s.deps.DB.GetRoomType(r.Context(), rt.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.logger.Info().Int64("room_type_id", rt.ID).Str("code", rt.Code).Msg("room type saved")
	writeJSON(w, http.StatusOK, stored)
}

// PUT /api/admin/room-types/{id}/inventory
func (s *Server) handleInventoryOverride(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req inventoryOverrideRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	dates, err := overrideDates(req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	recs, err := s.deps.Ledger.SetOverride(r.Context(), id, dates, models.InventoryOverride{
		IsAvailable:      req.IsAvailable,
		MaxSalesQuantity: req.MaxSalesQuantity,
		WeekdayPrice:     req.WeekdayPrice,
		WeekendPrice:     req.WeekendPrice,
		Reason:           req.Reason,

		ClearMaxSalesQuantity: req.ClearMaxSalesQuantity,
		ClearWeekdayPrice:     req.ClearWeekdayPrice,
		ClearWeekendPrice:     req.ClearWeekendPrice,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_type_id": id,
		"inventory":    toInventoryResponse(recs),
	})
}

func overrideDates(req inventoryOverrideRequest) ([]time.Time, error) {
	verr := domain.NewValidationError()
	if len(req.Dates) > 0 {
		if req.Start != "" || req.End != "" {
			verr.Add("dates", "use either dates or start/end")
			return nil, verr
		}
		out := make([]time.Time, 0, len(req.Dates))
		for _, d := range req.Dates {
			t, err := models.ParseDate(d)
			if err != nil {
				verr.Add("dates", "expected YYYY-MM-DD")
				return nil, verr
			}
			out = append(out, t)
		}
		return out, nil
	}

	start, err := models.ParseDate(req.Start)
	if err != nil {
		verr.Add("start", "required")
	}
	end, err := models.ParseDate(req.End)
	if err != nil {
		verr.Add("end", "required")
	}
	if verr.HasErrors() {
		return nil, verr
	}
	dates := models.DateRange(start, end)
	switch {
	case len(dates) == 0:
		verr.Add("end", "must be after start")
	case len(dates) > 366:
		verr.Add("end", "range cannot exceed 366 days")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return dates, nil
}

// GET /api/admin/bookings?status=&room_type_id=&check_in_from=&check_in_to=&created_before=&limit=&offset=
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseBookingFilter(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	list, err := s.deps.Bookings.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResponse(b, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

func parseBookingFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	verr := domain.NewValidationError()
	filter := models.BookingFilter{Limit: 100}

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := models.BookingStatus(strings.TrimSpace(part))
			if !st.Valid() {
				verr.Add("status", "unknown status "+string(st))
				continue
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if raw := q.Get("room_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("room_type_id", "must be a positive integer")
		}
		filter.RoomTypeID = id
	}

	dateParam := func(name string) *time.Time {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			verr.Add(name, "expected YYYY-MM-DD")
			return nil
		}
		return &d
	}
	filter.CheckInFrom = dateParam("check_in_from")
	filter.CheckInTo = dateParam("check_in_to")
	filter.CheckOutOn = dateParam("check_out_on")

	if raw := q.Get("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			verr.Add("created_before", "expected RFC 3339 timestamp")
		} else {
			filter.CreatedBefore = &t
		}
	}

	intParam := func(name string, dst *int, upper int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > upper {
			verr.Add(name, "must be between 0 and "+strconv.Itoa(upper))
			return
		}
		*dst = n
	}
	intParam("limit", &filter.Limit, 1000)
	intParam("offset", &filter.Offset, 1_000_000)
	if filter.Limit == 0 {
		filter.Limit = 100
	}

	return filter, verr.OrNil()
}

// GET /api/admin/bookings/{id}
func (s *Server) handleAdminBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	b, err := s.deps.Bookings.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, true))
}

// POST /api/admin/bookings/{id}/{action}
func (s *Server) handleBookingAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req bookingActionRequest
	if r.ContentLength != 0 {
		if err := s.decodeJSON(r, &req); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	svc := s.deps.Bookings
	ctx := r.Context()
	var b *models.Booking

	switch chi.URLParam(r, "action") {
	case "confirm":
		b, err = svc.Confirm(ctx, id, req.Memo)
	case "cancel":
		b, err = svc.Cancel(ctx, id, req.Memo)
	case "payment-method":
		if req.PaymentMethod == "" {
			verr := domain.NewValidationError()
			verr.Add("payment_method", "required")
			err = verr
			break
		}
		b, err = svc.SelectPaymentMethod(ctx, id, models.PaymentMethod(req.PaymentMethod), req.Memo)
	case "bank-transfer":
		b, err = svc.ConfirmBankTransfer(ctx, id, req.Memo)
	case "mark-paid":
		b, err = svc.MarkPaid(ctx, id, req.Memo)
	case "complete":
		b, err = svc.Complete(ctx, id, req.Memo)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, true))
}

// DELETE /api/admin/bookings/{id}
func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.deps.Bookings.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/reports/inventory.xlsx?start=&end=
func (s *Server) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Render fully before writing headers so failures still get a JSON error.
	var buf bytes.Buffer
	if err := s.deps.Reports.Write(r.Context(), &buf, start, end); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	name := "inventory_" + models.FormatDate(start) + "_" + models.FormatDate(end) + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
