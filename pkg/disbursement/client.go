package disbursement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
)

const (
	defaultExecutePath        = "/payouts/execute"
	responseBodyReadLimit     = 1024
	defaultHTTPTimeout        = 60 * time.Second
	idempotencyKeyPrefix      = "payout-"
	receiptStatusAccepted     = "accepted"
	headerIdempotencyKey      = "Idempotency-Key"
	headerAuthorization       = "Authorization"
	headerContentType         = "Content-Type"
	contentTypeJSON           = "application/json"
	providerStatusDetailField = "provider_status"
)

var (
	ErrNotFound         = errors.New("payout job unknown to provider")
	ErrAlreadyProcessed = errors.New("payout job already processed by provider")
	ErrUnauthorized     = errors.New("provider rejected credentials")
	ErrProvider         = errors.New("provider failure")
	ErrOutcomeUnknown   = errors.New("provider outcome unknown")

	errBaseURLRequired = errors.New("disbursement base url is required")
	errAPIKeyRequired  = errors.New("disbursement api key is required")
)

// Client calls the external payout execution endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	executePath string
	apiKey      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithExecutePath overrides the execution endpoint path.
func WithExecutePath(path string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			c.executePath = trimmed
		}
	}
}

// NewClient builds a disbursement client. The HTTP client timeout is only a
// backstop; callers bound each call with their own context deadline.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		baseURL:     trimmedURL,
		apiKey:      trimmedKey,
		executePath: defaultExecutePath,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Receipt is the provider's acknowledgement of an execution request.
type Receipt struct {
	PayoutJobID       uuid.UUID `json:"payout_job_id"`
	Status            string    `json:"status"`
	ProviderReference string    `json:"provider_reference,omitempty"`
	AcceptedAt        time.Time `json:"accepted_at"`
}

type executeRequest struct {
	PayoutJobID uuid.UUID `json:"payout_job_id"`
}

type executeResponse struct {
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	PayoutID  string     `json:"payout_id"`
	Accepted  *time.Time `json:"accepted_at"`
}

// Execute asks the provider to run the payout job. The provider owns the
// pending to paid transition; a successful return only means it accepted the
// request.
func (c *Client) Execute(ctx context.Context, jobID uuid.UUID) (*Receipt, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "disbursement client not configured")
	}
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout job id is required")
	}

	payload, err := json.Marshal(executeRequest{PayoutJobID: jobID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal execute request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(c.executePath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build execute request")
	}
	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	httpReq.Header.Set(headerIdempotencyKey, IdempotencyKey(jobID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnknownOutcome, fmt.Errorf("%w: %v", ErrOutcomeUnknown, err), "payout request timed out; verify job status before retrying").
				WithDetails(map[string]any{"payout_job_id": jobID.String(), "unknown_outcome": true})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrProvider, err), "execute payout request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, classifyStatus(jobID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var apiResp executeResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnknownOutcome, fmt.Errorf("%w: %v", ErrOutcomeUnknown, err), "read execute response").
			WithDetails(map[string]any{"payout_job_id": jobID.String(), "unknown_outcome": true})
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &apiResp); err != nil {
			// 2xx means accepted; the receipt body is optional
			apiResp = executeResponse{}
		}
	}

	receipt := &Receipt{
		PayoutJobID: jobID,
		Status:      strings.TrimSpace(apiResp.Status),
		AcceptedAt:  time.Now().UTC(),
	}
	if receipt.Status == "" {
		receipt.Status = receiptStatusAccepted
	}
	if apiResp.Reference != "" {
		receipt.ProviderReference = apiResp.Reference
	} else {
		receipt.ProviderReference = apiResp.PayoutID
	}
	if apiResp.Accepted != nil && !apiResp.Accepted.IsZero() {
		receipt.AcceptedAt = apiResp.Accepted.UTC()
	}
	return receipt, nil
}

// IdempotencyKey is the provider-side dedupe key for a payout job.
func IdempotencyKey(jobID uuid.UUID) string {
	return idempotencyKeyPrefix + jobID.String()
}

func classifyStatus(jobID uuid.UUID, status int, body string) error {
	details := map[string]any{
		"payout_job_id":           jobID.String(),
		providerStatusDetailField: status,
	}
	cause := fmt.Errorf("status %d: %s", status, body)

	switch {
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, fmt.Errorf("%w: %v", ErrNotFound, cause), "payout job not found by provider").WithDetails(details)
	case status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeAlreadyProcessed, fmt.Errorf("%w: %v", ErrAlreadyProcessed, cause), "payout job already processed").WithDetails(details)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, fmt.Errorf("%w: %v", ErrUnauthorized, cause), "not permitted to trigger payouts").WithDetails(details)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		details["unknown_outcome"] = true
		return pkgerrors.Wrap(pkgerrors.CodeUnknownOutcome, fmt.Errorf("%w: %v", ErrOutcomeUnknown, cause), "payout request timed out; verify job status before retrying").WithDetails(details)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %v", ErrProvider, cause), "payout provider failed").WithDetails(details)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
