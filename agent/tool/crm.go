package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	contractx "github.com/looktown/booking-assistant/agent/contract"
)

// Config for the salon CRM HTTP API.
type Config struct {
	BaseURL    string        `envconfig:"CRM_BASE_URL" required:"true"`
	Token      string        `envconfig:"CRM_TOKEN" required:"true"`
	CompanyID  int           `envconfig:"CRM_COMPANY_ID" required:"true"`
	Timeout    time.Duration `envconfig:"CRM_TIMEOUT" default:"10s"`
	MaxRetries uint64        `envconfig:"CRM_MAX_RETRIES" default:"3"`
}

// CRMClient talks to the salon CRM and implements the catalog, slot and
// booking operations the stage handlers need.
type CRMClient struct {
	cfg    Config
	client *http.Client
}

var _ contractx.Toolset = (*CRMClient)(nil)

func NewCRMClient(cfg Config) *CRMClient {
	return &CRMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type crmEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *CRMClient) Categories(ctx context.Context) ([]contractx.Category, error) {
	var out []contractx.Category
	err := c.getJSON(ctx, "/book_services/"+strconv.Itoa(c.cfg.CompanyID), nil, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %v", contractx.ErrToolCall, err)
	}
	return out, nil
}

func (c *CRMClient) Search(ctx context.Context, query, masterName string) ([]contractx.Service, error) {
	params := url.Values{}
	if query != "" {
		params.Set("title", query)
	}
	if masterName != "" {
		params.Set("staff_name", masterName)
	}
	var out []contractx.Service
	err := c.getJSON(ctx, "/book_services/"+strconv.Itoa(c.cfg.CompanyID)+"/search", params, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: service search: %v", contractx.ErrToolCall, err)
	}
	return out, nil
}

func (c *CRMClient) FindSlots(ctx context.Context, q contractx.SlotQuery) ([]contractx.SlotOption, error) {
	params := url.Values{}
	params.Set("service_id", strconv.Itoa(q.ServiceID))
	if q.Date != "" {
		params.Set("date", q.Date)
	}
	if q.StartMin != 0 || q.EndMin != 0 {
		params.Set("time_from", minutesToClock(q.StartMin))
		params.Set("time_to", minutesToClock(q.EndMin))
	}
	if q.MasterID != 0 {
		params.Set("staff_id", strconv.Itoa(q.MasterID))
	}
	if q.MasterName != "" {
		params.Set("staff_name", q.MasterName)
	}
	var out []contractx.SlotOption
	err := c.getJSON(ctx, "/book_times/"+strconv.Itoa(c.cfg.CompanyID), params, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: find slots: %v", contractx.ErrToolCall, err)
	}
	return out, nil
}

func (c *CRMClient) Create(ctx context.Context, req contractx.CreateBookingRequest) (contractx.BookingResult, error) {
	datetime, err := NormalizeDatetime(req.SlotTime)
	if err != nil {
		return contractx.BookingResult{}, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	payload := map[string]any{
		"phone":    NormalizePhone(req.ClientPhone),
		"fullname": req.ClientName,
		"appointments": []map[string]any{
			{
				"services": []int{req.ServiceID},
				"datetime": datetime,
			},
		},
	}
	if req.MasterID != nil {
		payload["appointments"].([]map[string]any)[0]["staff_id"] = *req.MasterID
	}

	var result contractx.BookingResult
	if err := c.postJSON(ctx, "/book_record/"+strconv.Itoa(c.cfg.CompanyID), payload, &result); err != nil {
		// A failed write to the CRM needs a human to pick it up.
		return contractx.BookingResult{}, &contractx.Escalation{
			Reply: "К сожалению, не удалось оформить запись автоматически. Я передала вашу заявку менеджеру, с вами свяжутся в ближайшее время.",
			Alert: fmt.Sprintf("booking create failed: %v", err),
		}
	}
	return result, nil
}

func (c *CRMClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, out)
}

func (c *CRMClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func (c *CRMClient) doWithRetry(ctx context.Context, build func() (*http.Request, error), out any) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			log.Warn().Err(err).Str("url", req.URL.Path).Msg("crm request failed, retrying")
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("crm status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("crm status %d: %s", resp.StatusCode, truncateBody(raw)))
		}

		var env crmEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode envelope: %w", err))
		}
		if !env.Success {
			return backoff.Permanent(fmt.Errorf("crm error: %s", env.Message))
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode data: %w", err))
		}
		return nil
	}, policy)
}

func minutesToClock(m int) string {
	if m >= wholeDayEnd {
		m = wholeDayEnd - 1
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
