package hospitalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cliniclink/record-bridge/pkg/config"
)

// Client queries the hospital record system's read-only bridge API. The bridge
// exposes snapshot reads over the legacy registration and schedule tables; it
// has no change feed and no write surface.
type Client interface {
	ListRegistrations(ctx context.Context, doctorID string, date time.Time) ([]RegistrationRow, error)
	GetRegistration(ctx context.Context, registrationID string) (*RegistrationRow, error)
	ListScheduleSlots(ctx context.Context, doctorID string) ([]ScheduleSlotRow, error)
	ListRegistrationDates(ctx context.Context, doctorID string, from time.Time) ([]string, error)
}

// RegistrationRow mirrors one row of the legacy registration table
type RegistrationRow struct {
	RegistrationID string  `json:"registrationId"`
	DoctorID       string  `json:"doctorId"`
	PatientID      string  `json:"patientId"`
	PatientName    string  `json:"patientName"`
	PatientPhone   string  `json:"patientPhone"`
	ScheduledAt    string  `json:"scheduledAt"`
	BookedAt       *string `json:"bookedAt,omitempty"`
	Status         string  `json:"status"`
	LocationCode   string  `json:"locationCode"`
}

// ScheduleSlotRow mirrors one row of the legacy weekly schedule table
type ScheduleSlotRow struct {
	DoctorID     string `json:"doctorId"`
	DayOfWeek    int    `json:"dayOfWeek"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	LocationCode string `json:"locationCode"`
	Quota        int    `json:"quota"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// HTTPClient is the production Client implementation
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the hospital bridge API
func NewHTTPClient(cfg *config.HospitalAPIConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListRegistrations returns every registration for the doctor on the date,
// cancellations included.
func (c *HTTPClient) ListRegistrations(ctx context.Context, doctorID string, date time.Time) ([]RegistrationRow, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID)
	q.Set("date", date.Format("2006-01-02"))

	var resp listResponse[RegistrationRow]
	if err := c.get(ctx, "/api/v1/registrations", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetRegistration is a point lookup by registration ID
func (c *HTTPClient) GetRegistration(ctx context.Context, registrationID string) (*RegistrationRow, error) {
	var row RegistrationRow
	path := "/api/v1/registrations/" + url.PathEscape(registrationID)
	if err := c.get(ctx, path, nil, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListScheduleSlots returns the doctor's full weekly recurrence
func (c *HTTPClient) ListScheduleSlots(ctx context.Context, doctorID string) ([]ScheduleSlotRow, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID)

	var resp listResponse[ScheduleSlotRow]
	if err := c.get(ctx, "/api/v1/schedules", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListRegistrationDates returns distinct registration dates (YYYY-MM-DD) for
// the doctor on or after from, ascending.
func (c *HTTPClient) ListRegistrationDates(ctx context.Context, doctorID string, from time.Time) ([]string, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID)
	q.Set("from", from.Format("2006-01-02"))

	var resp listResponse[string]
	if err := c.get(ctx, "/api/v1/registrations/dates", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ErrNotFound is returned for 404 responses
var ErrNotFound = fmt.Errorf("hospital api: record not found")

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hospital api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("hospital api error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode hospital api response: %w", err)
	}
	return nil
}
