package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// SendTwoFactorCode delivers a staff login verification code.
func (m *Mailer) SendTwoFactorCode(ctx context.Context, to, code string) error {
	return m.Send(ctx, &Message{
		To:      []string{to},
		Subject: "Your verification code",
		TextBody: fmt.Sprintf(
			"Your verification code is %s.\n\nIt expires in 10 minutes. If you did not try to sign in, ignore this email.\n",
			code),
	})
}

// SendOrderConfirmation emails the customer their order summary.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, o *domain.Order, items []domain.OrderItem) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", o.OrderNumber)
	for _, it := range items {
		fmt.Fprintf(&b, "  %s x%d  $%s\n", it.Name, it.NumBoxes, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: $%s\n", o.Subtotal.StringFixed(2))
	if o.Shipping.IsPositive() {
		fmt.Fprintf(&b, "Shipping: $%s\n", o.Shipping.StringFixed(2))
	}
	if o.SampleShipping.IsPositive() {
		fmt.Fprintf(&b, "Sample shipping: $%s\n", o.SampleShipping.StringFixed(2))
	}
	if o.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "Discount: -$%s\n", o.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: $%s\n", o.Total.StringFixed(2))
	return m.Send(ctx, &Message{
		To:       []string{o.Email},
		Subject:  "Order confirmation " + o.OrderNumber,
		TextBody: b.String(),
	})
}

// SendRepOrderNotification tells the assigned rep about a new order.
func (m *Mailer) SendRepOrderNotification(ctx context.Context, repEmail string, o *domain.Order) error {
	return m.Send(ctx, &Message{
		To:      []string{repEmail},
		Subject: "New order " + o.OrderNumber,
		TextBody: fmt.Sprintf(
			"Order %s from %s for $%s has been placed.\n",
			o.OrderNumber, o.Email, o.Total.StringFixed(2)),
	})
}

// SendRefundNotice confirms a refund to the customer.
func (m *Mailer) SendRefundNotice(ctx context.Context, o *domain.Order, amount decimal.Decimal) error {
	return m.Send(ctx, &Message{
		To:      []string{o.Email},
		Subject: "Refund issued for order " + o.OrderNumber,
		TextBody: fmt.Sprintf(
			"A refund of $%s has been issued for order %s. It may take several business days to appear on your statement.\n",
			amount.StringFixed(2), o.OrderNumber),
	})
}

// SendPurchaseOrder emails a PO to the vendor, with the rendered
// document attached.
func (m *Mailer) SendPurchaseOrder(ctx context.Context, to string, po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, attachment []byte, attachmentName string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase order %s", po.PONumber)
	if po.IsRevised {
		fmt.Fprintf(&b, " (revision %d)", po.Revision)
	}
	b.WriteString(" is attached.\n\n")
	for _, it := range items {
		if it.Status == domain.POItemCancelled {
			continue
		}
		fmt.Fprintf(&b, "  %s x%d\n", it.ProductName, it.Qty)
	}
	subject := "Purchase order " + po.PONumber
	if po.IsRevised {
		subject = fmt.Sprintf("Revised purchase order %s (rev %d)", po.PONumber, po.Revision)
	}
	return m.Send(ctx, &Message{
		To:             []string{to},
		Subject:        subject,
		TextBody:       b.String(),
		Attachment:     attachment,
		AttachmentName: attachmentName,
	})
}

// SendQuote delivers a quote summary to the customer.
func (m *Mailer) SendQuote(ctx context.Context, q *domain.Quote, items []domain.QuoteItem) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is your quote %s.\n\n", q.QuoteNumber)
	for _, it := range items {
		fmt.Fprintf(&b, "  %s x%d  $%s\n", it.Name, it.NumBoxes, it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s\n", q.Total.StringFixed(2))
	if q.ExpiresAt != nil {
		fmt.Fprintf(&b, "This quote is valid until %s.\n", q.ExpiresAt.Format("January 2, 2006"))
	}
	return m.Send(ctx, &Message{
		To:       []string{q.Email},
		Subject:  "Your quote " + q.QuoteNumber,
		TextBody: b.String(),
	})
}

// SendScrapeFailure alerts the operations inbox about a failed scrape.
func (m *Mailer) SendScrapeFailure(ctx context.Context, source *domain.VendorSource, job *domain.ScrapeJob, reason string) error {
	if m.cfg.AdminTo == "" {
		return nil
	}
	return m.Send(ctx, &Message{
		To:      []string{m.cfg.AdminTo},
		Subject: "Scrape failed: " + source.Name,
		TextBody: fmt.Sprintf(
			"Scrape job %s for source %s (%s) failed.\n\nReason: %s\n",
			job.ID, source.Name, source.ScraperKey, reason),
	})
}

// SendPaymentReceipt confirms an additional charge to the customer.
func (m *Mailer) SendPaymentReceipt(ctx context.Context, o *domain.Order, amount decimal.Decimal) error {
	return m.Send(ctx, &Message{
		To:      []string{o.Email},
		Subject: "Payment received for order " + o.OrderNumber,
		TextBody: fmt.Sprintf(
			"We received your payment of $%s for order %s. Thank you.\n",
			amount.StringFixed(2), o.OrderNumber),
	})
}

// SendRepPaymentNotification tells the rep a payment request was paid.
func (m *Mailer) SendRepPaymentNotification(ctx context.Context, repEmail string, o *domain.Order, amount decimal.Decimal) error {
	return m.Send(ctx, &Message{
		To:      []string{repEmail},
		Subject: "Payment received on order " + o.OrderNumber,
		TextBody: fmt.Sprintf(
			"A payment of $%s was received on order %s.\n",
			amount.StringFixed(2), o.OrderNumber),
	})
}

// SendRenewalReminder nudges a trade member ahead of their renewal date.
func (m *Mailer) SendRenewalReminder(ctx context.Context, tc *domain.TradeCustomer, daysLeft int) error {
	return m.Send(ctx, &Message{
		To:      []string{tc.Email},
		Subject: "Your trade membership renews soon",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour trade membership renews in %d days. No action is needed if your payment method is current.\n",
			tc.CompanyName, daysLeft),
	})
}

// SendTradeLapseWarning warns a member their membership is at risk.
func (m *Mailer) SendTradeLapseWarning(ctx context.Context, tc *domain.TradeCustomer) error {
	return m.Send(ctx, &Message{
		To:      []string{tc.Email},
		Subject: "Action needed: trade membership payment",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nWe could not process your trade membership payment. Please update your payment method to keep your trade pricing.\n",
			tc.CompanyName),
	})
}

// SendMembershipExpired tells a member their account was deactivated.
func (m *Mailer) SendMembershipExpired(ctx context.Context, tc *domain.TradeCustomer) error {
	return m.Send(ctx, &Message{
		To:      []string{tc.Email},
		Subject: "Your trade membership has expired",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour trade membership has expired and your account has been deactivated. Rejoin any time to restore your trade pricing.\n",
			tc.CompanyName),
	})
}

// SendStockAlert tells a subscriber their product is back in stock.
func (m *Mailer) SendStockAlert(ctx context.Context, to string, sku *domain.Sku, product *domain.Product) error {
	return m.Send(ctx, &Message{
		To:      []string{to},
		Subject: product.Name + " is back in stock",
		TextBody: fmt.Sprintf(
			"Good news: %s (%s) is back in stock. Order soon, quantities may be limited.\n",
			product.Name, sku.VendorSku),
	})
}
