// README: Driver record as seen by the dispatcher.
package driver

import "dispatchdesk/internal/types"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type Driver struct {
	ID       types.ID    `json:"id"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Status   Status      `json:"status"`
	Position types.Point `json:"position"`
	// ActiveOrders is derived from the orders table on every fetch.
	ActiveOrders int `json:"active_orders"`
}

func (d Driver) Free() bool {
	return d.ActiveOrders == 0
}
