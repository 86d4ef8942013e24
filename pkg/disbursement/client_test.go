package disbursement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://payouts.test/v1/", "secret-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestExecuteSendsJobAndHeaders(t *testing.T) {
	jobID := uuid.New()
	accepted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var capturedURL string
	var capturedHeaders http.Header
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()
		if req.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", req.Method)
		}
		var payload map[string]any
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload["payout_job_id"] != jobID.String() {
			t.Fatalf("unexpected payout job id %v", payload["payout_job_id"])
		}
		return respond(http.StatusAccepted, `{"status":"processing","reference":"tr_123","accepted_at":"2026-03-01T12:00:00Z"}`), nil
	})

	receipt, err := client.Execute(context.Background(), jobID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if capturedURL != "http://payouts.test/v1/payouts/execute" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer secret-key" {
		t.Fatalf("authorization header missing")
	}
	if capturedHeaders.Get("Idempotency-Key") != "payout-"+jobID.String() {
		t.Fatalf("unexpected idempotency key %q", capturedHeaders.Get("Idempotency-Key"))
	}
	if receipt.PayoutJobID != jobID || receipt.Status != "processing" || receipt.ProviderReference != "tr_123" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if !receipt.AcceptedAt.Equal(accepted) {
		t.Fatalf("unexpected accepted_at %v", receipt.AcceptedAt)
	}
}

func TestExecuteEmptyBodyDefaultsReceipt(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, ""), nil
	})

	receipt, err := client.Execute(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Status != receiptStatusAccepted {
		t.Fatalf("expected default status, got %q", receipt.Status)
	}
	if receipt.AcceptedAt.IsZero() {
		t.Fatalf("expected accepted_at to be set")
	}
}

func TestExecuteClassifiesProviderStatus(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		code     pkgerrors.Code
		sentinel error
	}{
		{"not found", http.StatusNotFound, pkgerrors.CodeNotFound, ErrNotFound},
		{"already processed", http.StatusConflict, pkgerrors.CodeAlreadyProcessed, ErrAlreadyProcessed},
		{"unauthorized", http.StatusUnauthorized, pkgerrors.CodeForbidden, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, pkgerrors.CodeForbidden, ErrUnauthorized},
		{"gateway timeout", http.StatusGatewayTimeout, pkgerrors.CodeUnknownOutcome, ErrOutcomeUnknown},
		{"server error", http.StatusInternalServerError, pkgerrors.CodeDependency, ErrProvider},
		{"bad request", http.StatusBadRequest, pkgerrors.CodeDependency, ErrProvider},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
				return respond(tc.status, `{"error":"nope"}`), nil
			})

			_, err := client.Execute(context.Background(), uuid.New())
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := pkgerrors.CodeOf(err); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v in chain, got %v", tc.sentinel, err)
			}
		})
	}
}

func TestExecuteDeadlineIsUnknownOutcome(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Execute(ctx, uuid.New())
	if err == nil {
		t.Fatalf("expected error")
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnknownOutcome {
		t.Fatalf("expected unknown outcome, got %v", err)
	}
	if !errors.Is(err, ErrOutcomeUnknown) {
		t.Fatalf("expected ErrOutcomeUnknown in chain")
	}
}

func TestExecuteTransportFailureIsProviderError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.Execute(context.Background(), uuid.New())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider in chain")
	}
}

func TestNewClientRequiresSettings(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Fatalf("expected base url error")
	}
	if _, err := NewClient("http://payouts.test", " "); err == nil {
		t.Fatalf("expected api key error")
	}
}

func TestWithExecutePathOverridesDefault(t *testing.T) {
	var capturedPath string
	client, err := NewClient("http://payouts.test", "key",
		WithExecutePath("/functions/v1/execute-payout"),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			capturedPath = req.URL.Path
			return respond(http.StatusOK, `{}`), nil
		})}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Execute(context.Background(), uuid.New()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if capturedPath != "/functions/v1/execute-payout" {
		t.Fatalf("unexpected path %q", capturedPath)
	}
}
