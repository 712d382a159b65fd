// README: Order aggregate and status definitions.
package order

import (
	"strings"
	"time"

	"dispatchdesk/internal/types"
)

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusPaid           Status = "paid"
	StatusProcessing     Status = "processing"
	StatusPrepared       Status = "prepared"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"

	// statusOutForDelivery is written by the driver app; it means the same as shipped.
	statusOutForDelivery Status = "out_for_delivery"
)

// AssignableStatuses are the statuses in which an order can receive a driver.
var AssignableStatuses = []Status{StatusConfirmed, StatusPaid}

// ActiveStatuses count toward a driver's current load.
var ActiveStatuses = []Status{
	StatusConfirmed,
	StatusPaid,
	StatusProcessing,
	StatusPrepared,
	StatusReadyForPickup,
	StatusShipped,
}

type Order struct {
	ID             types.ID    `json:"id"`
	Status         Status      `json:"status"`
	DriverName     *string     `json:"driver_name"`
	DriverPhone    *string     `json:"driver_phone"`
	RestaurantName *string     `json:"restaurant_name"`
	Customer       types.Point `json:"customer"`
	Total          types.Money `json:"total"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
}

// Ref is an order as it was observed; Status is the precondition for a
// conditional update.
type Ref struct {
	ID     types.ID
	Status Status
}

func (o *Order) Ref() Ref {
	return Ref{ID: o.ID, Status: o.Status}
}

// HasDriver reports whether either driver field is set.
func (o *Order) HasDriver() bool {
	return nonEmpty(o.DriverName) || nonEmpty(o.DriverPhone)
}

// Assignable is true while the order is confirmed or paid and carries no driver.
func (o *Order) Assignable() bool {
	return (o.Status == StatusConfirmed || o.Status == StatusPaid) && !o.HasDriver()
}

// NormalizeStatus maps legacy and differently-cased values onto the canonical set.
func NormalizeStatus(s string) Status {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == statusOutForDelivery {
		return StatusShipped
	}
	return st
}

func (s Status) Known() bool {
	switch s {
	case StatusConfirmed, StatusPaid, StatusProcessing, StatusPrepared,
		StatusReadyForPickup, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func IsActive(s Status) bool {
	for _, a := range ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusConfirmed:      {StatusPaid, StatusProcessing, StatusCancelled},
	StatusPaid:           {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusPrepared, StatusShipped, StatusCancelled},
	StatusPrepared:       {StatusReadyForPickup, StatusShipped, StatusCancelled},
	StatusReadyForPickup: {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func statusStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
