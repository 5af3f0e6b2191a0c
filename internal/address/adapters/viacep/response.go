package viacep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"formcheck/internal/address/models"
)

// erroFlag is the service's "not found" indicator. It has been sent both as
// a JSON boolean and as the string "true".
type erroFlag bool

func (f *erroFlag) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true", `"true"`:
		*f = true
	default:
		*f = false
	}
	return nil
}

type response struct {
	CEP         string   `json:"cep"`
	Logradouro  string   `json:"logradouro"`
	Complemento string   `json:"complemento"`
	Bairro      string   `json:"bairro"`
	Localidade  string   `json:"localidade"`
	UF          string   `json:"uf"`
	Erro        erroFlag `json:"erro"`
}

var strictPolicy = bluemonday.StrictPolicy()

// clean strips markup from a third-party value before it can reach a field.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// parseResponse maps an HTTP status and body to an address, models.ErrNotFound
// or a categorized error.
func parseResponse(providerID string, status int, body []byte, now time.Time) (*models.Address, error) {
	switch {
	case status == http.StatusBadRequest:
		// The service answers 400 for codes it cannot interpret.
		return nil, models.ErrNotFound
	case status == http.StatusTooManyRequests:
		return nil, NewLookupError(ErrorRateLimited, providerID, "rate limited", nil)
	case status >= http.StatusInternalServerError:
		return nil, NewLookupError(ErrorProviderOutage, providerID, fmt.Sprintf("unexpected status %d", status), nil)
	case status != http.StatusOK:
		return nil, NewLookupError(ErrorBadData, providerID, fmt.Sprintf("unexpected status %d", status), nil)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewLookupError(ErrorBadData, providerID, "malformed response", err)
	}
	if resp.Erro {
		return nil, models.ErrNotFound
	}

	return &models.Address{
		PostalCode:   clean(resp.CEP),
		Street:       clean(resp.Logradouro),
		Neighborhood: clean(resp.Bairro),
		City:         clean(resp.Localidade),
		Region:       clean(resp.UF),
		Source:       providerID,
		CheckedAt:    now,
	}, nil
}
