package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// FreightviewClient rates LTL shipments through the FreightView REST API.
// OAuth client-credentials tokens are cached in-process until expiry.
type FreightviewClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewFreightviewClient(baseURL, clientID, clientSecret string) *FreightviewClient {
	return &FreightviewClient{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *FreightviewClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2.0/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("freightview token endpoint returned %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	c.token = out.AccessToken
	// Refresh a minute early so in-flight requests never carry a token
	// that expires mid-call.
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return c.token, nil
}

type fvQuoteRequest struct {
	PickupDate  string        `json:"pickupDate"`
	Origin      fvAddress     `json:"origin"`
	Destination fvAddress     `json:"destination"`
	Items       []fvQuoteItem `json:"items"`
	Liftgate    bool          `json:"liftgateDelivery"`
	Residential bool          `json:"residentialDelivery"`
}

type fvAddress struct {
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type fvQuoteItem struct {
	FreightClass int   `json:"freightClass"`
	Weight       int64 `json:"weight"`
}

type fvRate struct {
	Carrier     string          `json:"carrierName"`
	Service     string          `json:"serviceDescription"`
	Total       decimal.Decimal `json:"total"`
	TransitDays int             `json:"transitDays"`
}

// Quote implements FreightRater.
func (c *FreightviewClient) Quote(ctx context.Context, freight FreightRequest) ([]FreightQuote, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("freightview auth: %w", err)
	}

	payload := fvQuoteRequest{
		PickupDate:  freight.PickupDate.Format("2006-01-02"),
		Origin:      fvAddress{PostalCode: freight.OriginZip, Country: "US"},
		Destination: fvAddress{PostalCode: freight.DestinationZip, Country: "US"},
		Liftgate:    freight.Liftgate,
		Residential: freight.Residential,
	}
	for _, l := range freight.Lines {
		payload.Items = append(payload.Items, fvQuoteItem{FreightClass: l.FreightClass, Weight: l.WeightLbs})
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2.0/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freightview quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freightview quote endpoint returned %d", resp.StatusCode)
	}

	var rates []fvRate
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, err
	}
	out := make([]FreightQuote, len(rates))
	for i, r := range rates {
		out[i] = FreightQuote{
			Carrier:     r.Carrier,
			Service:     r.Service,
			Cost:        r.Total,
			TransitDays: r.TransitDays,
		}
	}
	return out, nil
}
