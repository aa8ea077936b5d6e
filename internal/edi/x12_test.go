package edi

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/terrazzo/internal/domain"
)

func testVendor() *domain.Vendor {
	return &domain.Vendor{
		Code: "SHAW",
		EDIConfig: &domain.VendorEDIConfig{
			Enabled:      true,
			ReceiverID:   "SHAWFLOORS",
			ReceiverQual: "01",
		},
	}
}

func testPO() (*domain.PurchaseOrder, []domain.PurchaseOrderItem) {
	sku := "SW-1234"
	po := &domain.PurchaseOrder{PONumber: "PO-SHAW-0042"}
	items := []domain.PurchaseOrderItem{
		{ProductName: "Cancelled Line", Qty: 3, CostPerBox: decimal.RequireFromString("10.00"), Status: domain.POItemCancelled},
		{ProductName: "Oak Classic", VendorSku: &sku, Qty: 12, CostPerBox: decimal.RequireFromString("45.50"), SellBy: domain.SellByUnit},
	}
	return po, items
}

// seCount parses SE01 and counts the actual ST..SE segments so the two
// can be compared.
func seCount(t *testing.T, body string) (claimed string, actual int) {
	t.Helper()
	segs := strings.Split(strings.TrimSpace(body), "\n")
	counting := false
	for _, s := range segs {
		if strings.HasPrefix(s, "ST*") {
			counting = true
		}
		if counting {
			actual++
		}
		if strings.HasPrefix(s, "SE*") {
			claimed = strings.Split(s, "*")[1]
			break
		}
	}
	return claimed, actual
}

func TestBuild850Deterministic(t *testing.T) {
	po, items := testPO()
	now := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)

	a, err := Build850(po, items, testVendor(), 42, now)
	require.NoError(t, err)
	b, err := Build850(po, items, testVendor(), 42, now)
	require.NoError(t, err)
	assert.Equal(t, a.Payload, b.Payload)
	assert.Equal(t, "000000042", a.InterchangeControl)
	assert.Equal(t, "850_PO-SHAW-0042_000000042.edi", a.Filename)
}

func TestBuild850Envelope(t *testing.T) {
	po, items := testPO()
	now := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)
	doc, err := Build850(po, items, testVendor(), 7, now)
	require.NoError(t, err)

	body := string(doc.Payload)
	lines := strings.Split(strings.TrimSpace(body), "\n")

	assert.True(t, strings.HasPrefix(lines[0], "ISA*"))
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "~"))
	assert.Contains(t, body, "BEG*00*SA*PO-SHAW-0042**20250314~")
	// The live line is numbered 1 even though a cancelled line precedes
	// it in the source order.
	assert.Contains(t, body, "PO1*1*12*EA*45.50**VP*SW-1234~")
	assert.NotContains(t, body, "Cancelled Line", "cancelled lines stay off the wire")
	assert.Contains(t, body, "CTT*1~", "line count excludes cancelled items")
	// ST..SE inclusive: ST+BEG+REF+DTM+N1 + 2 for the single line + CTT + SE = 9.
	assert.Contains(t, body, "SE*9*0001~")
	assert.Contains(t, body, "GE*1*000000007~")
	assert.Contains(t, body, "IEA*1*000000007~")
}

func TestBuild850TransactionSegmentCount(t *testing.T) {
	po, items := testPO()
	doc, err := Build850(po, items, testVendor(), 7, time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC))
	require.NoError(t, err)

	claimed, actual := seCount(t, string(doc.Payload))
	assert.Equal(t, "9", claimed)
	assert.Equal(t, 9, actual, "SE01 must equal the ST..SE inclusive segment count")
}

func TestBuild850ControlRollsOver(t *testing.T) {
	po, items := testPO()
	doc, err := Build850(po, items, testVendor(), 1_000_000_003, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "000000003", doc.InterchangeControl)
}

func TestBuild850RequiresEDIConfig(t *testing.T) {
	po, items := testPO()
	_, err := Build850(po, items, &domain.Vendor{Code: "X"}, 1, time.Now())
	require.Error(t, err)
}
