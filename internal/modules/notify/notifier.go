// README: Notification cues for the dispatch dashboard.
package notify

import (
	"context"
	"log"
	"strings"

	"dispatchdesk/internal/types"
)

// LogNotifier writes cues to the process log. It is used when Firebase
// messaging is not configured.
type LogNotifier struct{}

func (LogNotifier) NewOrders(_ context.Context, ids []types.ID) error {
	log.Printf("notify: %d new order(s): %s", len(ids), joinIDs(ids))
	return nil
}

func (LogNotifier) Assigned(_ context.Context, orderID types.ID, driverName string) error {
	log.Printf("notify: order %s assigned to %s", orderID, driverName)
	return nil
}

func joinIDs(ids []types.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
