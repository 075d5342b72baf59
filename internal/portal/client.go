package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"worktime-tracker-backend/config"
	"worktime-tracker-backend/internal/attendance"
)

var (
	// ErrUnauthorized is returned when the portal rejects the bearer token.
	ErrUnauthorized = errors.New("portal: unauthorized")
	// ErrUnavailable covers network failures, unexpected statuses and
	// responses that do not match the expected schema.
	ErrUnavailable = errors.New("portal: unavailable")
)

const dateLayout = "2006-01-02"

// Client reads attendance, holiday and leave data from the HR portal.
type Client struct {
	baseURL   string
	endpoints config.PortalEndpoints
	headers   map[string]string
	loc       *time.Location
	client    *http.Client
	holidays  *cache.Cache
}

// NewClient creates a portal client. Timestamps without an offset are read
// in loc.
func NewClient(cfg *config.PortalConfig, loc *time.Location) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Portal client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	holidayTTL := cfg.HolidayCacheTTL
	if holidayTTL <= 0 {
		holidayTTL = 6 * time.Hour
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		endpoints: cfg.Endpoints,
		headers:   cfg.Headers,
		loc:       loc,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		holidays: cache.New(holidayTTL, 2*holidayTTL),
	}
}

// FetchAttendance returns attendance records in the order the portal sends
// them, today last. A zero forDate asks for the portal's default range.
func (c *Client) FetchAttendance(ctx context.Context, token string, forDate time.Time) ([]attendance.Day, error) {
	var records []attendanceRecord
	if err := c.getData(ctx, token, c.endpoints.Attendance, dateQuery(forDate), &records); err != nil {
		return nil, err
	}

	days := make([]attendance.Day, 0, len(records))
	for _, r := range records {
		d, err := r.toDay(c.loc)
		if err != nil {
			log.Printf("Warning: skipping attendance record: %v", err)
			continue
		}
		days = append(days, d)
	}
	return days, nil
}

// FetchHolidays returns the company holidays. Results are cached per
// forDate for the configured TTL.
func (c *Client) FetchHolidays(ctx context.Context, token string, forDate time.Time) ([]attendance.Holiday, error) {
	key := "holidays:" + dateKey(forDate)
	if cached, found := c.holidays.Get(key); found {
		return cached.([]attendance.Holiday), nil
	}

	var records []holidayRecord
	if err := c.getData(ctx, token, c.endpoints.Holidays, dateQuery(forDate), &records); err != nil {
		return nil, err
	}

	holidays := make([]attendance.Holiday, 0, len(records))
	for _, r := range records {
		h, err := r.toHoliday(c.loc)
		if err != nil {
			log.Printf("Warning: skipping %v", err)
			continue
		}
		holidays = append(holidays, h)
	}
	c.holidays.Set(key, holidays, cache.DefaultExpiration)
	return holidays, nil
}

// FetchLeaveSummary returns the leave ledger as of date.
func (c *Client) FetchLeaveSummary(ctx context.Context, token string, date time.Time) ([]attendance.Leave, error) {
	var summary leaveSummary
	if err := c.getData(ctx, token, c.endpoints.LeaveSummary, dateQuery(date), &summary); err != nil {
		return nil, err
	}

	leaves := make([]attendance.Leave, 0, len(summary.LeaveHistory))
	for _, e := range summary.LeaveHistory {
		l, err := e.toLeave(c.loc)
		if err != nil {
			log.Printf("Warning: skipping %v", err)
			continue
		}
		leaves = append(leaves, l)
	}
	return leaves, nil
}

// FetchRangeSummary returns the portal's totals for [from, to].
func (c *Client) FetchRangeSummary(ctx context.Context, token string, from, to time.Time) (*attendance.RangeSummary, error) {
	q := url.Values{}
	q.Set("fromDate", from.Format(dateLayout))
	q.Set("toDate", to.Format(dateLayout))

	var summary rangeSummary
	if err := c.getData(ctx, token, c.endpoints.RangeSummary, q, &summary); err != nil {
		return nil, err
	}
	if summary.TotalEffectiveHours < 0 || summary.WorkingDays < 0 || summary.AverageHoursPerDay < 0 {
		return nil, fmt.Errorf("%w: negative range summary values", ErrUnavailable)
	}
	return &attendance.RangeSummary{
		TotalEffectiveHours: summary.TotalEffectiveHours,
		WorkingDays:         summary.WorkingDays,
		AverageHoursPerDay:  summary.AverageHoursPerDay,
	}, nil
}

// getData performs an authenticated GET and decodes the "data" member of
// the response into out.
func (c *Client) getData(ctx context.Context, token, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", ErrUnauthorized, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}
	if env.Data == nil {
		return fmt.Errorf("%w: %s response has no data", ErrUnavailable, path)
	}
	if err := json.Unmarshal(*env.Data, out); err != nil {
		return fmt.Errorf("%w: unexpected %s payload: %v", ErrUnavailable, path, err)
	}
	return nil
}

func dateQuery(date time.Time) url.Values {
	if date.IsZero() {
		return nil
	}
	q := url.Values{}
	q.Set("forDate", date.Format(dateLayout))
	return q
}

func dateKey(date time.Time) string {
	if date.IsZero() {
		return "current"
	}
	return date.Format(dateLayout)
}
