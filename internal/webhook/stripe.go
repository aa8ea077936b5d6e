// Package webhook processes payment gateway events: trade subscription
// lifecycle and the payment-request checkout sessions.
package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/tasks"
)

// Mailer sends the webhook plane's notifications. Failures are logged
// and never fail the webhook response.
type Mailer interface {
	SendTradeLapseWarning(ctx context.Context, tc *domain.TradeCustomer) error
	SendPaymentReceipt(ctx context.Context, order *domain.Order, amount decimal.Decimal) error
	SendRepPaymentNotification(ctx context.Context, repEmail string, order *domain.Order, amount decimal.Decimal) error
}

type Service struct {
	store    *postgres.Store
	provider billing.Provider
	runner   *tasks.Runner
	mailer   Mailer
	logger   zerolog.Logger
}

func NewService(store *postgres.Store, provider billing.Provider, runner *tasks.Runner, mailer Mailer, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		runner:   runner,
		mailer:   mailer,
		logger:   logger.With().Str("component", "webhook").Logger(),
	}
}

// Event payload views. The gateway's full objects carry far more than
// we read, so these decode just the fields the handlers use.
type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	PeriodEnd    int64  `json:"period_end"`
	Lines        struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

type subscriptionPayload struct {
	ID string `json:"id"`
}

type sessionPayload struct {
	ID            string `json:"id"`
	AmountTotal   int64  `json:"amount_total"`
	PaymentIntent string `json:"payment_intent"`
}

// HandleEvent verifies the signature and dispatches the event. Unknown
// event types are acknowledged without action so the gateway stops
// retrying them.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	const op = "webhook.handle"
	event, err := s.provider.ConstructWebhookEvent(payload, signature)
	if err != nil {
		return domain.Unauthenticated(op, "webhook signature verification failed")
	}
	log := s.logger.With().Str("event", string(event.Type)).Str("event_id", event.ID).Logger()

	switch string(event.Type) {
	case "invoice.paid", "invoice.payment_succeeded":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return domain.Invalid(op, "malformed invoice payload")
		}
		return s.invoicePaid(ctx, log, inv)
	case "invoice.payment_failed":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return domain.Invalid(op, "malformed invoice payload")
		}
		return s.invoiceFailed(ctx, log, inv)
	case "customer.subscription.deleted":
		var sub subscriptionPayload
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return domain.Invalid(op, "malformed subscription payload")
		}
		return s.subscriptionDeleted(ctx, log, sub)
	case "checkout.session.completed":
		var sess sessionPayload
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return domain.Invalid(op, "malformed session payload")
		}
		return s.sessionCompleted(ctx, log, sess)
	case "checkout.session.expired":
		var sess sessionPayload
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return domain.Invalid(op, "malformed session payload")
		}
		return s.sessionExpired(ctx, log, sess)
	}
	log.Debug().Msg("ignoring unhandled event type")
	return nil
}

// invoicePaid reactivates the membership and extends its expiry to the
// invoice's billing period end.
func (s *Service) invoicePaid(ctx context.Context, log zerolog.Logger, inv invoicePayload) error {
	if inv.Subscription == "" {
		log.Debug().Msg("invoice has no subscription, skipping")
		return nil
	}
	tc, err := s.store.GetTradeCustomerBySubscription(ctx, inv.Subscription)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			log.Warn().Str("subscription", inv.Subscription).Msg("invoice for unknown subscription")
			return nil
		}
		return err
	}
	end := inv.PeriodEnd
	for _, l := range inv.Lines.Data {
		if l.Period.End > end {
			end = l.Period.End
		}
	}
	expires := time.Now().AddDate(0, 1, 0)
	if end > 0 {
		expires = time.Unix(end, 0)
	}
	if err := s.store.UpdateTradeSubscription(ctx, tc.ID, "active", &expires); err != nil {
		return err
	}
	log.Info().Str("trade", tc.Email).Time("expires", expires).Msg("trade subscription renewed")
	return nil
}

func (s *Service) invoiceFailed(ctx context.Context, log zerolog.Logger, inv invoicePayload) error {
	if inv.Subscription == "" {
		return nil
	}
	tc, err := s.store.GetTradeCustomerBySubscription(ctx, inv.Subscription)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil
		}
		return err
	}
	if err := s.store.UpdateTradeSubscription(ctx, tc.ID, "past_due", tc.ExpiresAt); err != nil {
		return err
	}
	log.Warn().Str("trade", tc.Email).Msg("trade subscription past due")
	if s.mailer != nil {
		s.runner.Go("webhook.lapse_warning", func(ctx context.Context) error {
			return s.mailer.SendTradeLapseWarning(ctx, tc)
		})
	}
	return nil
}

func (s *Service) subscriptionDeleted(ctx context.Context, log zerolog.Logger, sub subscriptionPayload) error {
	tc, err := s.store.GetTradeCustomerBySubscription(ctx, sub.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil
		}
		return err
	}
	if err := s.store.UpdateTradeSubscription(ctx, tc.ID, "cancelled", tc.ExpiresAt); err != nil {
		return err
	}
	log.Info().Str("trade", tc.Email).Msg("trade subscription cancelled")
	return nil
}

// sessionCompleted settles a payment request: the request flips to
// paid, the additional charge lands on the ledger, and amount_paid
// moves in the same transaction. Receipt and rep notification follow
// after commit.
func (s *Service) sessionCompleted(ctx context.Context, log zerolog.Logger, sess sessionPayload) error {
	pr, err := s.store.GetPaymentRequestBySession(ctx, sess.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			log.Debug().Str("session", sess.ID).Msg("completed session has no payment request")
			return nil
		}
		return err
	}
	if pr.Status == domain.PaymentRequestPaid {
		return nil
	}
	amount := pr.Amount
	if sess.AmountTotal > 0 {
		amount = billing.Dollars(sess.AmountTotal)
	}

	var order *domain.Order
	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		o, err := tx.GetOrderForUpdate(ctx, pr.OrderID)
		if err != nil {
			return err
		}
		if err := tx.UpdatePaymentRequestStatus(ctx, pr.ID, domain.PaymentRequestPaid); err != nil {
			return err
		}
		desc := "additional charge via payment request"
		var intentID *string
		if sess.PaymentIntent != "" {
			intentID = &sess.PaymentIntent
		}
		if err := tx.AppendPayment(ctx, &domain.OrderPayment{
			OrderID:                 o.ID,
			PaymentType:             domain.PaymentAdditionalCharge,
			Amount:                  amount,
			StripePaymentIntentID:   intentID,
			StripeCheckoutSessionID: &sess.ID,
			Description:             &desc,
			Status:                  domain.PaymentStatusCompleted,
			InitiatedBy:             "customer:" + pr.Email,
		}); err != nil {
			return err
		}
		if err := tx.AddOrderPaid(ctx, o.ID, amount); err != nil {
			return err
		}
		o.AmountPaid = o.AmountPaid.Add(amount)
		if err := tx.AppendOrderActivity(ctx, o.ID, "payment_received", "system", map[string]any{
			"amount": amount.StringFixed(2),
			"via":    "payment_request",
		}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("order", order.OrderNumber).Str("amount", amount.StringFixed(2)).Msg("payment request paid")

	if s.mailer != nil {
		o := order
		s.runner.Go("webhook.receipt", func(ctx context.Context) error {
			return s.mailer.SendPaymentReceipt(ctx, o, amount)
		})
		if o.SalesRepID != nil {
			repID := *o.SalesRepID
			s.runner.Go("webhook.rep_payment_notice", func(ctx context.Context) error {
				rep, err := s.store.GetSalesRep(ctx, repID)
				if err != nil {
					return err
				}
				return s.mailer.SendRepPaymentNotification(ctx, rep.Email, o, amount)
			})
		}
	}
	return nil
}

func (s *Service) sessionExpired(ctx context.Context, log zerolog.Logger, sess sessionPayload) error {
	pr, err := s.store.GetPaymentRequestBySession(ctx, sess.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil
		}
		return err
	}
	if pr.Status != domain.PaymentRequestPending {
		return nil
	}
	if err := s.store.UpdatePaymentRequestStatus(ctx, pr.ID, domain.PaymentRequestExpired); err != nil {
		return err
	}
	log.Info().Str("session", sess.ID).Msg("payment request expired")
	return nil
}
