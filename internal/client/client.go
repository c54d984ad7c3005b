// Package client is the HTTP/JSON client for the clinic backend. It
// implements the workflow engine's Backend contract and the offline
// syncer's Submitter contract against the service's envelope responses.
package client

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

	"github.com/polmed/mobiclinic/internal/offline"
	"github.com/polmed/mobiclinic/internal/workflow"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Permanent reports whether the failure is a client error that retrying the
// same payload cannot fix.
func (e *APIError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}

// Client talks to one clinic backend with one bearer token.
type Client struct {
	baseURL  string
	token    string
	deviceID string
	http     *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithDeviceID sets the device identifier sent with offline sync batches.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// New builds a client for the backend at baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the backend's uniform success wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var failure struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &failure) == nil {
			apiErr.Message = failure.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// CreateVisit lazily creates an encounter and returns its identifier.
func (c *Client) CreateVisit(ctx context.Context, patientID string, v workflow.NewVisit) (string, error) {
	var out workflow.Visit
	if err := c.do(ctx, http.MethodPost, "/api/patients/"+patientID+"/visits", nil, v, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// LatestVisit returns the patient's most recent visit, or nil when the
// patient has none.
func (c *Client) LatestVisit(ctx context.Context, patientID string) (*workflow.Visit, error) {
	var out struct {
		Items []workflow.Visit `json:"items"`
	}
	q := url.Values{"limit": {"1"}}
	if err := c.do(ctx, http.MethodGet, "/api/patients/"+patientID+"/visits", q, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	visit := out.Items[0]
	return &visit, nil
}

// AddVitals persists one vitals record against a visit.
func (c *Client) AddVitals(ctx context.Context, visitID string, v workflow.VitalSigns) error {
	return c.do(ctx, http.MethodPost, "/api/visits/"+visitID+"/vitals", nil, v, nil)
}

// VisitVitals returns the visit's vitals summary for form prefill.
func (c *Client) VisitVitals(ctx context.Context, visitID string) (*workflow.VitalsSummary, error) {
	var out workflow.VitalsSummary
	if err := c.do(ctx, http.MethodGet, "/api/visits/"+visitID+"/vitals", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkflowStatus fetches the authoritative per-stage completion record.
func (c *Client) WorkflowStatus(ctx context.Context, visitID string) (workflow.Snapshot, error) {
	var out struct {
		Stages workflow.Snapshot `json:"stages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/visits/"+visitID+"/workflow-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Stages, nil
}

// CreateNote persists one typed clinical note.
func (c *Client) CreateNote(ctx context.Context, visitID string, n workflow.NewNote) error {
	return c.do(ctx, http.MethodPost, "/api/visits/"+visitID+"/notes", nil, n, nil)
}

// VisitNotes lists a visit's clinical notes, newest first.
func (c *Client) VisitNotes(ctx context.Context, visitID string) ([]workflow.Note, error) {
	var out []workflow.Note
	if err := c.do(ctx, http.MethodGet, "/api/visits/"+visitID+"/notes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReferral files a referral for the patient.
func (c *Client) CreateReferral(ctx context.Context, patientID string, r workflow.NewReferral) (*workflow.Referral, error) {
	var out workflow.Referral
	if err := c.do(ctx, http.MethodPost, "/api/patients/"+patientID+"/referrals", nil, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Referrals lists the patient's referrals.
func (c *Client) Referrals(ctx context.Context, patientID string) ([]workflow.Referral, error) {
	var out []workflow.Referral
	if err := c.do(ctx, http.MethodGet, "/api/patients/"+patientID+"/referrals", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchICD10 runs a ranked diagnostic code search.
func (c *Client) SearchICD10(ctx context.Context, query string, limit int) ([]workflow.ICD10Match, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []workflow.ICD10Match
	if err := c.do(ctx, http.MethodGet, "/api/icd10/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitPending ships a batch of offline records to the sync intake and
// returns the server's per-record verdicts.
func (c *Client) SubmitPending(ctx context.Context, records []offline.Record) ([]offline.Result, error) {
	body := struct {
		DeviceID string           `json:"device_id,omitempty"`
		Records  []offline.Record `json:"records"`
	}{DeviceID: c.deviceID, Records: records}

	var out struct {
		Results []offline.Result `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/pending", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
