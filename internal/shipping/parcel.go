package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ShippoClient rates small-parcel shipments through the Shippo REST API.
type ShippoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewShippoClient(baseURL, apiKey string) *ShippoClient {
	if baseURL == "" {
		baseURL = "https://api.goshippo.com"
	}
	return &ShippoClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Quote implements ParcelRater.
func (c *ShippoClient) Quote(ctx context.Context, originZip, destZip string, weightLbs decimal.Decimal) ([]ParcelQuote, error) {
	payload := map[string]any{
		"address_from": map[string]string{"zip": originZip, "country": "US"},
		"address_to":   map[string]string{"zip": destZip, "country": "US"},
		"parcels": []map[string]string{{
			"weight":        weightLbs.String(),
			"mass_unit":     "lb",
			"length":        "12",
			"width":         "12",
			"height":        "6",
			"distance_unit": "in",
		}},
		"async": false,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parcel rater: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("parcel rater returned %d", resp.StatusCode)
	}

	var out struct {
		Rates []struct {
			Provider     string          `json:"provider"`
			ServiceLevel struct{ Name string } `json:"servicelevel"`
			Amount       decimal.Decimal `json:"amount"`
			Days         int             `json:"estimated_days"`
		} `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	quotes := make([]ParcelQuote, len(out.Rates))
	for i, r := range out.Rates {
		quotes[i] = ParcelQuote{
			Carrier:     r.Provider,
			Service:     r.ServiceLevel.Name,
			Cost:        r.Amount,
			TransitDays: r.Days,
		}
	}
	return quotes, nil
}
