// Package events broadcasts booking and ledger changes to live observers.
// Delivery is best-effort: observers that are not connected, or are too slow,
// miss events and must re-fetch state.
package events

import (
	"encoding/json"
	"time"
)

// Kind names an event variant on the wire.
type Kind string

const (
	KindBookingCreated          Kind = "booking_created"
	KindBookingStatusChanged    Kind = "booking_status_changed"
	KindBookingDeleted          Kind = "booking_deleted"
	KindRoomAvailabilityChanged Kind = "room_availability_changed"
)

// Event is one of the variants declared in this package.
type Event interface {
	Kind() Kind
	// RoomType returns the room type the event concerns; ordering is kept per room type.
	RoomType() int64
	isEvent()
}

type BookingCreated struct {
	BookingID  int64  `json:"booking_id"`
	Reference  string `json:"reference"`
	RoomTypeID int64  `json:"room_type_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Status     string `json:"status"`
}

type BookingStatusChanged struct {
	BookingID  int64  `json:"booking_id"`
	Reference  string `json:"reference"`
	RoomTypeID int64  `json:"room_type_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type BookingDeleted struct {
	BookingID  int64  `json:"booking_id"`
	Reference  string `json:"reference"`
	RoomTypeID int64  `json:"room_type_id"`
}

// RoomAvailabilityChanged carries the ledger state of one date after a change.
type RoomAvailabilityChanged struct {
	RoomTypeID int64  `json:"room_type_id"`
	Date       string `json:"date"`
	Booked     int    `json:"booked"`
	Max        int    `json:"max"`
	Remaining  int    `json:"remaining"`
	Available  bool   `json:"available"`
}

func (BookingCreated) Kind() Kind          { return KindBookingCreated }
func (BookingStatusChanged) Kind() Kind    { return KindBookingStatusChanged }
func (BookingDeleted) Kind() Kind          { return KindBookingDeleted }
func (RoomAvailabilityChanged) Kind() Kind { return KindRoomAvailabilityChanged }

func (e BookingCreated) RoomType() int64          { return e.RoomTypeID }
func (e BookingStatusChanged) RoomType() int64    { return e.RoomTypeID }
func (e BookingDeleted) RoomType() int64          { return e.RoomTypeID }
func (e RoomAvailabilityChanged) RoomType() int64 { return e.RoomTypeID }

func (BookingCreated) isEvent()          {}
func (BookingStatusChanged) isEvent()    {}
func (BookingDeleted) isEvent()          {}
func (RoomAvailabilityChanged) isEvent() {}

// Envelope is an event stamped by the hub.
type Envelope struct {
	Event     Event
	Timestamp time.Time
	Seq       uint64
}

// MarshalJSON renders {type, ...fields, timestamp}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(e.Event)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(e.Event.Kind())
	ts, _ := json.Marshal(e.Timestamp.UTC().Format(time.RFC3339Nano))
	fields["type"] = kind
	fields["timestamp"] = ts
	return json.Marshal(fields)
}
