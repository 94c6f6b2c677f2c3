// Package mtrace provides a client for the national livestock traceability
// and carcass-grading lookup service.
package mtrace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrNotFound indicates the service has no record for the trace number.
var ErrNotFound = eris.New("mtrace: no record for trace number")

// Client defines the grading lookup operations.
type Client interface {
	// Lookup resolves one 12-digit traceability number. The number must
	// already be normalized (hyphens and spaces stripped). A certificate
	// with issue data but no grade detail is still a success; the gap is
	// reported via Certificate.PendingNotice.
	Lookup(ctx context.Context, traceNo string) (*Certificate, error)
}

// Option configures the mtrace client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPaths overrides the issue-info and grade-detail endpoint paths.
func WithPaths(issuePath, detailPath string) Option {
	return func(c *httpClient) {
		if issuePath != "" {
			c.issuePath = issuePath
		}
		if detailPath != "" {
			c.detailPath = detailPath
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	issuePath  string
	detailPath string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a grading lookup client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    "https://data.ekape.or.kr/openapi-data/service/user/animalTrace",
		issuePath:  "/traceNoSearch",
		detailPath: "/gradeInfo",
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, traceNo string) (*Certificate, error) {
	issues, err := c.fetchIssues(ctx, traceNo)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		TraceNo: traceNo,
		Issues:  issues,
	}

	// Grade detail is served by a separate, access-gated endpoint. Issue
	// data alone is still displayable, so detail failures never fail the
	// lookup; they surface as a pending notice instead.
	grades, err := c.fetchGrades(ctx, traceNo)
	switch {
	case err != nil:
		cert.PendingNotice = fmt.Sprintf("grade detail unavailable: %v", err)
	case len(grades) == 0:
		cert.PendingNotice = "grade detail pending authorization"
	default:
		cert.Grades = grades
	}

	return cert, nil
}

func (c *httpClient) fetchIssues(ctx context.Context, traceNo string) ([]Issue, error) {
	var resp issueResponse
	if err := c.getXML(ctx, c.issuePath, traceNo, &resp); err != nil {
		return nil, err
	}

	if err := checkHeader(resp.Header); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "trace number %s", traceNo)
	}

	issues := make([]Issue, 0, len(resp.Items))
	for _, it := range resp.Items {
		issues = append(issues, Issue{
			IssueNo:      it.IssueNo,
			IssueDate:    it.IssueDate,
			FacilityName: it.FacilityName,
			Sex:          it.Sex,
			JudgeDate:    it.JudgeDate,
		})
	}
	return issues, nil
}

func (c *httpClient) fetchGrades(ctx context.Context, traceNo string) ([]GradeDetail, error) {
	var resp gradeResponse
	if err := c.getXML(ctx, c.detailPath, traceNo, &resp); err != nil {
		return nil, err
	}

	if err := checkHeader(resp.Header); err != nil {
		return nil, err
	}

	grades := make([]GradeDetail, 0, len(resp.Items))
	for _, it := range resp.Items {
		grades = append(grades, GradeDetail{
			Breed:           it.Breed,
			CarcassWeightKg: it.CarcassWeight,
			QualityGrade:    it.QualityGrade,
			MarblingScore:   it.Marbling,
			YieldGrade:      it.YieldGrade,
			BackfatMM:       it.Backfat,
		})
	}
	return grades, nil
}

func (c *httpClient) getXML(ctx context.Context, path, traceNo string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "mtrace: rate limiter")
		}
	}

	q := url.Values{}
	q.Set("serviceKey", c.apiKey)
	q.Set("traceNo", traceNo)
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "mtrace: create request")
	}
	req.Header.Set("Accept", "application/xml")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return eris.Wrap(err, "mtrace: request failed")
	}

	if statusCode == http.StatusNotFound {
		return eris.Wrapf(ErrNotFound, "trace number %s", traceNo)
	}
	if statusCode != http.StatusOK {
		return eris.Errorf("mtrace: unexpected status %d: %s", statusCode, truncate(body, 200))
	}

	if err := decodeXML(body, out); err != nil {
		return eris.Wrap(err, "mtrace: decode response")
	}
	return nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a request with exponential backoff on transient failures.
// Returns the response body and status code, or the last error after
// exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := readBody(resp)
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "mtrace: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("mtrace: status %d: %s", resp.StatusCode, truncate(body, 200))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
