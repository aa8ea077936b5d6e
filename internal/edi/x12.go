// Package edi generates outbound X12 documents and delivers them to
// vendor SFTP inboxes.
package edi

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/terrazzo/internal/domain"
)

const (
	segmentTerminator = "~"
	elementSeparator  = "*"

	senderQualifier = "ZZ"
	senderID        = "TERRAZZO"

	// X12 version for the 850.
	versionID = "004010"
)

// Document is a rendered interchange ready for upload.
type Document struct {
	// InterchangeControl is the 9-digit ISA13 value.
	InterchangeControl string
	Filename           string
	Payload            []byte
}

// Build850 renders a purchase order as an X12 850 interchange. The control
// number is the caller-supplied sequence value reduced modulo 1e9, so a
// given sequence value always renders the same document for a given clock.
func Build850(po *domain.PurchaseOrder, items []domain.PurchaseOrderItem, vendor *domain.Vendor, control int64, now time.Time) (*Document, error) {
	if vendor.EDIConfig == nil {
		return nil, fmt.Errorf("vendor %s has no EDI config", vendor.Code)
	}
	icn := fmt.Sprintf("%09d", control%1_000_000_000)
	date6 := now.Format("060102")
	date8 := now.Format("20060102")
	time4 := now.Format("1504")

	recvQual := vendor.EDIConfig.ReceiverQual
	if recvQual == "" {
		recvQual = "ZZ"
	}
	recvID := vendor.EDIConfig.ReceiverID
	if recvID == "" {
		recvID = vendor.Code
	}

	var b strings.Builder
	seg := func(elems ...string) {
		b.WriteString(strings.Join(elems, elementSeparator))
		b.WriteString(segmentTerminator)
		b.WriteString("\n")
	}

	// ISA fixed-width elements are space-padded per the X12 envelope rules.
	seg("ISA",
		"00", strings.Repeat(" ", 10),
		"00", strings.Repeat(" ", 10),
		senderQualifier, pad(senderID, 15),
		recvQual, pad(recvID, 15),
		date6, time4,
		"U", "00401", icn, "0", "P", ">")
	seg("GS", "PO", senderID, recvID, date8, time4, icn, "X", versionID)
	seg("ST", "850", "0001")
	seg("BEG", "00", "SA", po.PONumber, "", date8)
	seg("REF", "VR", vendor.Code)
	seg("DTM", "002", date8)
	seg("N1", "ST", senderID)

	// Line numbering counts live lines only, so a cancelled item never
	// leaves a gap on the wire.
	lineCount := 0
	for _, it := range items {
		if it.Status == domain.POItemCancelled {
			continue
		}
		lineCount++
		sku := ""
		if it.VendorSku != nil {
			sku = *it.VendorSku
		}
		seg("PO1",
			fmt.Sprintf("%d", lineCount),
			fmt.Sprintf("%d", it.Qty),
			unitCode(it.SellBy),
			it.CostPerBox.StringFixed(2),
			"", "VP", sku)
		seg("PID", "F", "", "", "", truncate(it.ProductName, 80))
	}

	seg("CTT", fmt.Sprintf("%d", lineCount))
	// SE count: ST..SE inclusive = ST+BEG+REF+DTM+N1 + 2 per line + CTT + SE.
	seg("SE", fmt.Sprintf("%d", 5+2*lineCount+2), "0001")
	seg("GE", "1", icn)
	seg("IEA", "1", icn)

	return &Document{
		InterchangeControl: icn,
		Filename:           fmt.Sprintf("850_%s_%s.edi", po.PONumber, icn),
		Payload:            []byte(b.String()),
	}, nil
}

func unitCode(sellBy string) string {
	if sellBy == domain.SellBySqft {
		return "SF"
	}
	return "EA"
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
