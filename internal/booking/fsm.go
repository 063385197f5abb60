// Package booking runs the booking lifecycle and keeps the inventory ledger in
// step with it.
package booking

import (
	"hotelbook/internal/domain"
	"hotelbook/internal/models"
)

// Action is a lifecycle operation requested by a guest or staff.
type Action string

const (
	ActionConfirm         Action = "confirm"
	ActionPayByTransfer   Action = "pay_by_transfer"
	ActionPayOnArrival    Action = "pay_on_arrival"
	ActionConfirmTransfer Action = "confirm_bank_transfer"
	ActionMarkPaid        Action = "mark_paid"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

type rule struct {
	from []models.BookingStatus
	to   models.BookingStatus
}

// FSM holds the allowed booking transitions.
// Deletion is not a transition: staff may delete a booking in any state.
type FSM struct {
	rules map[Action]rule
}

func NewFSM() *FSM {
	return &FSM{
		rules: map[Action]rule{
			ActionConfirm:         {from: []models.BookingStatus{models.StatusPending}, to: models.StatusConfirmed},
			ActionPayByTransfer:   {from: []models.BookingStatus{models.StatusConfirmed}, to: models.StatusPendingPayment},
			ActionPayOnArrival:    {from: []models.BookingStatus{models.StatusConfirmed}, to: models.StatusCashOnSite},
			ActionConfirmTransfer: {from: []models.BookingStatus{models.StatusPendingPayment}, to: models.StatusPaid},
			ActionMarkPaid:        {from: []models.BookingStatus{models.StatusCashOnSite}, to: models.StatusPaid},
			ActionComplete:        {from: []models.BookingStatus{models.StatusPaid}, to: models.StatusCompleted},
			ActionCancel:          {from: []models.BookingStatus{models.StatusPending, models.StatusConfirmed}, to: models.StatusCancelled},
		},
	}
}

// Next returns the status that action leads to from current, or a
// PreconditionError naming the states the action requires.
func (f *FSM) Next(action Action, current models.BookingStatus) (models.BookingStatus, error) {
	r, ok := f.rules[action]
	if !ok {
		return current, &domain.PreconditionError{Action: string(action), Current: string(current)}
	}
	for _, s := range r.from {
		if s == current {
			return r.to, nil
		}
	}
	required := make([]string, 0, len(r.from))
	for _, s := range r.from {
		required = append(required, string(s))
	}
	return current, &domain.PreconditionError{Action: string(action), Current: string(current), Required: required}
}

// CanTransition reports whether any action moves a booking from one status to another.
func (f *FSM) CanTransition(from, to models.BookingStatus) bool {
	for _, r := range f.rules {
		if r.to != to {
			continue
		}
		for _, s := range r.from {
			if s == from {
				return true
			}
		}
	}
	return false
}
