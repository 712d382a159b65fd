package matching

import (
	"context"
	"log"
	"time"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

type OrderAssigner interface {
	Assign(ctx context.Context, cmd order.AssignCommand) (order.AssignResult, error)
}

type Notifier interface {
	NewOrders(ctx context.Context, ids []types.ID) error
	Assigned(ctx context.Context, orderID types.ID, driverName string) error
}

type auditRecorder interface {
	RecordAssignment(ctx context.Context, e AuditEntry) error
}

// Committer writes a chosen driver onto orders and plays the assignment cue
// for every order that was actually claimed.
type Committer struct {
	orders   OrderAssigner
	notifier Notifier
	audit    auditRecorder
	now      func() time.Time
}

func NewCommitter(orders OrderAssigner, notifier Notifier, audit auditRecorder) *Committer {
	return &Committer{orders: orders, notifier: notifier, audit: audit, now: time.Now}
}

func (c *Committer) Commit(ctx context.Context, refs []order.Ref, d driver.Driver, src Source) (order.AssignResult, error) {
	res, err := c.orders.Assign(ctx, order.AssignCommand{
		Orders:      refs,
		DriverName:  d.Name,
		DriverPhone: d.Phone,
	})
	for _, id := range res.Assigned {
		if c.notifier != nil {
			if nerr := c.notifier.Assigned(ctx, id, d.Name); nerr != nil {
				log.Printf("matching: assigned cue for order %s: %v", id, nerr)
			}
		}
		if c.audit != nil {
			entry := AuditEntry{OrderID: id, DriverID: d.ID, DriverName: d.Name, Source: src, At: c.now()}
			if aerr := c.audit.RecordAssignment(ctx, entry); aerr != nil {
				log.Printf("matching: audit order %s: %v", id, aerr)
			}
		}
	}
	return res, err
}
