package purchase

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/edi"
	"github.com/dukerupert/terrazzo/internal/postgres"
)

// timeNow is swapped in tests for deterministic EDI envelopes.
var timeNow = time.Now

// Send dispatches a draft PO to its vendor. EDI-enabled vendors get an
// X12 850 over SFTP; everyone else gets email. An EDI failure falls back
// to email when an address is configured; if both channels fail the PO
// stays draft and the error is returned.
func (s *Service) Send(ctx context.Context, poID uuid.UUID, actor string) (*domain.PurchaseOrder, error) {
	const op = "purchase.send"

	po, err := s.store.GetPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(domain.POSent) {
		return nil, domain.Invalid(op, "purchase order cannot be sent from status "+string(po.Status))
	}
	items, err := s.store.ListPOItems(ctx, poID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.Invalid(op, "purchase order has no items")
	}
	vendor, err := s.store.GetVendor(ctx, po.VendorID)
	if err != nil {
		return nil, err
	}

	channel := "email"
	var ediErr error
	if vendor.EDIConfig != nil && vendor.EDIConfig.Enabled {
		ediErr = s.sendEDI(ctx, po, items, vendor)
		if ediErr == nil {
			channel = "edi"
		} else {
			s.logger.Warn().Err(ediErr).
				Str("po", po.PONumber).Str("vendor", vendor.Code).
				Msg("EDI dispatch failed, falling back to email")
		}
	}
	if channel == "email" {
		if vendor.Email == nil || *vendor.Email == "" {
			if ediErr != nil {
				return nil, domain.Upstream(ediErr, op, "EDI dispatch failed and vendor has no email address")
			}
			return nil, domain.Invalid(op, "vendor has no email address")
		}
		if err := s.sendEmail(ctx, po, items, vendor); err != nil {
			return nil, domain.Upstream(err, op, "failed to send purchase order email")
		}
	}

	err = s.store.WithTx(ctx, func(tx *postgres.Store) error {
		locked, err := tx.GetPurchaseOrderForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		locked.Status = domain.POSent
		locked.Revision++
		locked.IsRevised = locked.Revision > 1
		locked.EDIInterchangeID = po.EDIInterchangeID
		if err := tx.UpdatePurchaseOrder(ctx, locked); err != nil {
			return err
		}
		po = locked
		kind := "sent"
		if locked.IsRevised {
			kind = "revised_and_sent"
		}
		return tx.AppendPOActivity(ctx, poID, kind, actor, map[string]any{
			"channel":  channel,
			"revision": locked.Revision,
		})
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Service) sendEDI(ctx context.Context, po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, vendor *domain.Vendor) error {
	control, err := s.store.NextInterchangeControl(ctx)
	if err != nil {
		return err
	}
	doc, err := edi.Build850(po, items, vendor, control, timeNow())
	if err != nil {
		return err
	}

	txn := &domain.EDITransaction{
		PurchaseOrderID:    &po.ID,
		VendorID:           vendor.ID,
		DocumentType:       "850",
		Direction:          "outbound",
		InterchangeControl: doc.InterchangeControl,
		Status:             "pending",
		Payload:            doc.Payload,
	}
	if err := s.store.InsertEDITransaction(ctx, txn); err != nil {
		return err
	}

	if err := s.uploader.Upload(ctx, vendor.EDIConfig, doc); err != nil {
		msg := err.Error()
		_ = s.store.UpdateEDITransactionStatus(ctx, txn.ID, "failed", &msg)
		return err
	}
	if err := s.store.UpdateEDITransactionStatus(ctx, txn.ID, "sent", nil); err != nil {
		return err
	}
	po.EDIInterchangeID = &doc.InterchangeControl
	return nil
}

func (s *Service) sendEmail(ctx context.Context, po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, vendor *domain.Vendor) error {
	html, err := renderPOHTML(po, items, vendor)
	if err != nil {
		return err
	}
	attachment := html
	name := po.PONumber + ".html"
	if s.renderer != nil {
		if pdf, err := s.renderer.RenderPDF(ctx, html); err == nil {
			attachment = pdf
			name = po.PONumber + ".pdf"
		} else {
			s.logger.Warn().Err(err).Str("po", po.PONumber).
				Msg("PDF rendering unavailable, attaching HTML")
		}
	}
	return s.mailer.SendPurchaseOrder(ctx, *vendor.Email, po, items, attachment, name)
}

var poTemplate = template.Must(template.New("po").Parse(`<!DOCTYPE html>
<html><body>
<h1>Purchase Order {{.Number}}</h1>
<p>Vendor: {{.VendorName}}</p>
{{if .Revised}}<p><strong>REVISED (revision {{.Revision}})</strong></p>{{end}}
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Product</th><th>Vendor SKU</th><th>Qty</th><th>Cost/Box</th><th>Subtotal</th></tr>
{{range .Rows}}<tr>
<td>{{.Name}}</td>
<td>{{.VendorSku}}</td>
<td>{{.Qty}}</td>
<td>${{.Cost}}</td>
<td>${{.Subtotal}}</td>
</tr>{{end}}
</table>
<p>Total: ${{.Total}}</p>
</body></html>`))

type poRow struct {
	Name      string
	VendorSku string
	Qty       int
	Cost      string
	Subtotal  string
}

func renderPOHTML(po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, vendor *domain.Vendor) ([]byte, error) {
	rows := make([]poRow, len(items))
	for i, it := range items {
		rows[i] = poRow{
			Name:     it.ProductName,
			Qty:      it.Qty,
			Cost:     it.CostPerBox.StringFixed(2),
			Subtotal: it.Subtotal.StringFixed(2),
		}
		if it.VendorSku != nil {
			rows[i].VendorSku = *it.VendorSku
		}
	}
	var buf bytes.Buffer
	err := poTemplate.Execute(&buf, map[string]any{
		"Number":     po.PONumber,
		"VendorName": vendor.Name,
		"Revised":    po.IsRevised,
		"Revision":   po.Revision,
		"Rows":       rows,
		"Total":      po.Subtotal.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
