package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/dukerupert/terrazzo/internal/billing"
	"github.com/dukerupert/terrazzo/internal/domain"
)

// cannedProvider hands back a fixed event instead of verifying the
// signature.
type cannedProvider struct {
	*billing.MockProvider
	event stripe.Event
}

func (p *cannedProvider) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	return p.event, nil
}

func eventService(t *testing.T, eventType string, raw string) *Service {
	t.Helper()
	provider := &cannedProvider{
		MockProvider: &billing.MockProvider{},
		event: stripe.Event{
			ID:   "evt_test",
			Type: stripe.EventType(eventType),
			Data: &stripe.EventData{Raw: json.RawMessage(raw)},
		},
	}
	return NewService(nil, provider, nil, nil, zerolog.Nop())
}

func TestHandleEventBadSignature(t *testing.T) {
	// The mock provider rejects every signature.
	s := NewService(nil, &billing.MockProvider{}, nil, nil, zerolog.Nop())
	err := s.HandleEvent(context.Background(), []byte("{}"), "t=1,v1=bad")
	assert.Equal(t, domain.EUNAUTHENTICATED, domain.ErrorCode(err))
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	s := eventService(t, "charge.captured", `{}`)
	assert.NoError(t, s.HandleEvent(context.Background(), []byte("{}"), "sig"))
}

func TestHandleEventMalformedPayload(t *testing.T) {
	for _, typ := range []string{
		"invoice.paid",
		"invoice.payment_failed",
		"customer.subscription.deleted",
		"checkout.session.completed",
		"checkout.session.expired",
	} {
		s := eventService(t, typ, `{not json`)
		err := s.HandleEvent(context.Background(), []byte("{}"), "sig")
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err), typ)
	}
}

func TestHandleEventInvoiceWithoutSubscriptionIsSkipped(t *testing.T) {
	// No subscription reference means nothing to renew; the store is
	// never touched.
	s := eventService(t, "invoice.paid", `{"id":"in_1","subscription":""}`)
	assert.NoError(t, s.HandleEvent(context.Background(), []byte("{}"), "sig"))
}

func TestInvoicePayloadDecodesLinePeriods(t *testing.T) {
	raw := `{
		"id": "in_1",
		"subscription": "sub_1",
		"period_end": 100,
		"lines": {"data": [
			{"period": {"end": 200}},
			{"period": {"end": 150}}
		]}
	}`
	var inv invoicePayload
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, "sub_1", inv.Subscription)
	assert.Equal(t, int64(100), inv.PeriodEnd)
	require.Len(t, inv.Lines.Data, 2)
	assert.Equal(t, int64(200), inv.Lines.Data[0].Period.End)
}
