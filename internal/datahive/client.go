package datahive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"noticerecon/internal/platform/config"
	"noticerecon/pkg/platform/sentinel"
)

const wireDateLayout = "2006-01-02"

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient constructs an HTTP gateway from config. The timeout bounds the
// whole request so one slow lookup cannot stall a batch worker.
func NewClient(cfg config.LookupConfig, log *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type personPayload struct {
	IDNo        string `json:"id_no"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	LifeStatus  string `json:"life_status,omitempty"`
	DateOfDeath string `json:"date_of_death,omitempty"`

	BlockNo    string `json:"block_no,omitempty"`
	Street     string `json:"street,omitempty"`
	FloorNo    string `json:"floor_no,omitempty"`
	UnitNo     string `json:"unit_no,omitempty"`
	Building   string `json:"building,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *Client) Lookup(ctx context.Context, idNo string) (*Record, error) {
	endpoint := c.baseURL + "/v1/persons/" + url.PathEscape(idNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("person lookup failed", "id_no", idNo, "error", err)
		return nil, fmt.Errorf("person lookup: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("person %q: %w", idNo, sentinel.ErrNotFound)
	default:
		c.log.Warn("person lookup unexpected status", "id_no", idNo, "status", resp.StatusCode)
		return nil, fmt.Errorf("person lookup status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var payload personPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode person payload: %w", err)
	}
	return payload.toRecord()
}

func (p personPayload) toRecord() (*Record, error) {
	rec := &Record{
		IDNo:       p.IDNo,
		Name:       p.Name,
		LifeStatus: p.LifeStatus,
		BlockNo:    p.BlockNo,
		Street:     p.Street,
		FloorNo:    p.FloorNo,
		UnitNo:     p.UnitNo,
		Building:   p.Building,
		PostalCode: p.PostalCode,
		Phone:      p.Phone,
		Email:      p.Email,
	}
	var err error
	if rec.DateOfBirth, err = parseWireDate(p.DateOfBirth); err != nil {
		return nil, fmt.Errorf("date of birth: %w", err)
	}
	if rec.DateOfDeath, err = parseWireDate(p.DateOfDeath); err != nil {
		return nil, fmt.Errorf("date of death: %w", err)
	}
	return rec, nil
}

func parseWireDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(wireDateLayout, s)
}
