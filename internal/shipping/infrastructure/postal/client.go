// Package postal resolves postal codes through a ViaCEP-compatible lookup
// service.
package postal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/shipping/application"
	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	CEP        string   `json:"cep"`
	Logradouro string   `json:"logradouro"`
	Bairro     string   `json:"bairro"`
	Localidade string   `json:"localidade"`
	UF         string   `json:"uf"`
	Erro       notFound `json:"erro"`
}

// notFound is the service's "erro" marker, sent as true or "true".
type notFound bool

func (n *notFound) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	*n = notFound(bytes.EqualFold(b, []byte("true")))
	return nil
}

func (c *Client) Lookup(ctx context.Context, postalCode string) (domain.AddressInfo, error) {
	postalCode = domain.NormalizePostalCode(postalCode)
	if len(postalCode) != 8 {
		return domain.AddressInfo{}, application.ErrPostalCodeNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ws/%s/json/", c.baseURL, postalCode), nil)
	if err != nil {
		return domain.AddressInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.AddressInfo{}, fmt.Errorf("postal lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.AddressInfo{}, application.ErrPostalCodeNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.AddressInfo{}, fmt.Errorf("postal lookup: status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.AddressInfo{}, fmt.Errorf("postal lookup: decode: %w", err)
	}
	if body.Erro {
		return domain.AddressInfo{}, application.ErrPostalCodeNotFound
	}

	pc := domain.NormalizePostalCode(body.CEP)
	if pc == "" {
		pc = postalCode
	}
	return domain.AddressInfo{
		PostalCode:   pc,
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}
