// Package notify implements the core.Notifier boundary. Delivery
// (email, chat, push) lives outside this repository; the Log notifier
// records each event so an external fan-out can tail it.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/warp/worklog-engine/core"
)

// Log emits one structured log line per event. Never fails the
// originating operation.
type Log struct {
	Logger *logrus.Logger
}

func NewLog(logger *logrus.Logger) *Log {
	return &Log{Logger: logger}
}

func (n *Log) IntervalSubmitted(_ context.Context, iv core.WorkInterval) {
	n.Logger.WithFields(logrus.Fields{
		"event":       "interval_submitted",
		"interval_id": iv.ID,
		"owner_id":    iv.OwnerID,
		"company_id":  iv.CompanyID,
		"date":        iv.Date.String(),
	}).Info("interval submitted for review")
}

func (n *Log) PaymentCreated(_ context.Context, p core.Payment) {
	n.Logger.WithFields(logrus.Fields{
		"event":      "payment_created",
		"payment_id": p.ID,
		"payee_id":   p.PayeeID,
		"amount":     p.Amount.String(),
		"intervals":  len(p.Allocations),
	}).Info("payment created")
}

func (n *Log) PaymentConfirmed(_ context.Context, p core.Payment) {
	n.Logger.WithFields(logrus.Fields{
		"event":      "payment_confirmed",
		"payment_id": p.ID,
		"payee_id":   p.PayeeID,
		"creator_id": p.CreatorID,
	}).Info("payment receipt confirmed")
}
