package core

import "context"

// Notifier receives the observable side effects of the core. Delivery is
// a collaborator concern; failures are logged by implementations and
// never fail the originating operation.
type Notifier interface {
	// IntervalSubmitted fans out to the owning company's reviewers.
	IntervalSubmitted(ctx context.Context, iv WorkInterval)

	// PaymentCreated notifies the payee.
	PaymentCreated(ctx context.Context, p Payment)

	// PaymentConfirmed notifies the payment's creator after the payee
	// confirms receipt.
	PaymentConfirmed(ctx context.Context, p Payment)
}

// NopNotifier drops all events.
type NopNotifier struct{}

func (NopNotifier) IntervalSubmitted(context.Context, WorkInterval) {}
func (NopNotifier) PaymentCreated(context.Context, Payment)        {}
func (NopNotifier) PaymentConfirmed(context.Context, Payment)      {}
