// README: FCM topic notifier; dashboards subscribe to the topic and play the cue.
package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"firebase.google.com/go/v4/messaging"

	"dispatchdesk/internal/types"
)

type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMNotifier struct {
	client sender
	topic  string
}

func NewFCMNotifier(client *messaging.Client, topic string) *FCMNotifier {
	return &FCMNotifier{client: client, topic: topic}
}

func (n *FCMNotifier) NewOrders(ctx context.Context, ids []types.ID) error {
	if len(ids) == 0 {
		return nil
	}
	msg := &messaging.Message{
		Topic: n.topic,
		Data: map[string]string{
			"type":      "new_orders",
			"count":     strconv.Itoa(len(ids)),
			"order_ids": joinIDs(ids),
		},
		Notification: &messaging.Notification{
			Title: "New orders",
			Body:  fmt.Sprintf("%d new order(s) waiting for a driver", len(ids)),
		},
	}
	return n.send(ctx, msg)
}

func (n *FCMNotifier) Assigned(ctx context.Context, orderID types.ID, driverName string) error {
	msg := &messaging.Message{
		Topic: n.topic,
		Data: map[string]string{
			"type":     "order_assigned",
			"order_id": string(orderID),
			"driver":   driverName,
		},
	}
	return n.send(ctx, msg)
}

func (n *FCMNotifier) send(ctx context.Context, msg *messaging.Message) error {
	messageID, err := n.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM to topic %s: %w", n.topic, err)
	}
	log.Printf("FCM %s sent, message_id=%s", msg.Data["type"], messageID)
	return nil
}
