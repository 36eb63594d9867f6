package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskboard-api/models"
)

const actionPaymentSuccess = "payment_success"

// PaymentService handles the payment provider's callbacks.
type PaymentService struct {
	tx  Transactor
	now func() time.Time
}

func NewPaymentService(tx Transactor) *PaymentService {
	return &PaymentService{tx: tx, now: time.Now}
}

// HandleWebhook settles an order reported as PAID. Replaying the same callback
// is a no-op: the payment_success activity record gates the notification.
func (s *PaymentService) HandleWebhook(ctx context.Context, orderID uint, status string) (DispatchReport, error) {
	if !strings.EqualFold(strings.TrimSpace(status), models.PaymentPaid) {
		return DispatchReport{Skipped: true}, nil
	}

	var report DispatchReport
	err := s.tx.InTx(ctx, func(scope TxScope) error {
		order, err := scope.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.PaymentPaid {
			if err := scope.Orders.MarkPaid(ctx, orderID, s.now()); err != nil {
				return err
			}
		}

		report, err = scope.Events.Publish(ctx, Event{
			Kind:    models.KindPaymentSuccess,
			Subject: PaymentSubject{OrderID: orderID, PayerID: order.UserID},
			ActorID: uintPtr(order.UserID),
			Title:   "Payment received",
			Message: fmt.Sprintf("We received your payment of %s %s.", order.Amount, order.Currency),
			Link:    fmt.Sprintf("/billing/orders/%d", orderID),
			Activity: &ActivityEntry{
				Action: actionPaymentSuccess,
				Payload: map[string]any{
					"amount":   order.Amount,
					"currency": order.Currency,
				},
				Dedup: true,
			},
		})
		return err
	})
	return report, err
}
