package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithPayoutJobID(ctx, "job-1")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"payout_job_id\":\"job-1\"")) {
		t.Fatalf("expected payout_job_id field; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("did not expect stack when warn stack disabled")
	}
}

func TestWithFieldsDoesNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := context.Background()
	_ = log.WithFields(parent, map[string]any{"retailer_id": "r-1"})
	log.Info(parent, "plain")

	if bytes.Contains(buf.Bytes(), []byte("retailer_id")) {
		t.Fatalf("child fields leaked into parent; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerStampsServiceAndInstance(t *testing.T) {
	t.Setenv("DYNO", "web.2")
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Format: FormatJSON, Output: buf})
	log.Info(context.Background(), "payout.dispatched")

	if !bytes.Contains(buf.Bytes(), []byte("\"service\":\"api\"")) {
		t.Fatalf("expected service field; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"instance\":\"web.2\"")) {
		t.Fatalf("expected instance field; entry=%s", buf.String())
	}
}

func TestLoggerConsoleFormatFromEnv(t *testing.T) {
	t.Setenv("TAPIFY_LOG_FORMAT", "console")
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "migrate", Output: buf})
	log.Info(context.Background(), "migrations applied")

	if bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
		t.Fatalf("expected console output, got json: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("migrations applied")) {
		t.Fatalf("expected message in console output: %s", buf.String())
	}
}

func TestWithFieldsEmptyKeepsContext(t *testing.T) {
	log := New(Options{ServiceName: "test", Output: &bytes.Buffer{}})
	ctx := log.WithRetailerID(context.Background(), "r-1")
	if got := log.WithFields(ctx, nil); got != ctx {
		t.Fatal("expected the same context for empty fields")
	}
}
