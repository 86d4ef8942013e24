package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tapify/tapify-backend/api/responses"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
	"github.com/tapify/tapify-backend/pkg/logger"
	pkgredis "github.com/tapify/tapify-backend/pkg/redis"
)

const (
	defaultPayoutIdempotencyTTL     = 24 * time.Hour
	defaultCommissionIdempotencyTTL = time.Hour

	headerIdempotencyKey = "Idempotency-Key"

	maxPendingTTL = 5 * time.Minute
)

// IdempotencyTTLs sets how long stored responses are replayed per route family.
type IdempotencyTTLs struct {
	Payouts    time.Duration
	Commission time.Duration
}

func (t IdempotencyTTLs) withDefaults() IdempotencyTTLs {
	if t.Payouts <= 0 {
		t.Payouts = defaultPayoutIdempotencyTTL
	}
	if t.Commission <= 0 {
		t.Commission = defaultCommissionIdempotencyTTL
	}
	return t
}

type routeMatcher func(string) bool

type routeFamily int

const (
	familyPayouts routeFamily = iota
	familyCommission
)

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	family  routeFamily
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/payouts/trigger"), family: familyPayouts},
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/payouts/trigger-batch"), family: familyPayouts},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/retailers/", "/payouts/pay-all"), family: familyPayouts},
	{method: http.MethodPost, matcher: matchExact("/api/admin/v1/vendors/commission"), family: familyCommission},
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the write routes listed in idempotencyRules. The key is reserved before the
// handler runs, so a concurrent duplicate gets a 409 and never overwrites the
// first request's answer. Retryable failures release the key.
func Idempotency(store pkgredis.IdempotencyStore, ttls IdempotencyTTLs, logg *logger.Logger) func(http.Handler) http.Handler {
	ttls = ttls.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path, ttls)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
			if idempotencyKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			placeholder, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation"))
				return
			}
			reserved, err := store.SetNX(r.Context(), key, string(placeholder), pendingTTL(ttl))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayOrReject(w, r, store, key, requestHash, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// settle even if the client has gone away
			settleCtx := context.WithoutCancel(r.Context())
			status := defaultStatus(rec.status)
			if !shouldPersist(status) {
				if delErr := store.Del(settleCtx, key); delErr != nil {
					logError(r.Context(), logg, "release idempotency reservation", delErr)
				}
				return
			}

			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(r.Context(), logg, "marshal idempotency record", marshalErr)
				_ = store.Del(settleCtx, key)
				return
			}
			if setErr := store.Set(settleCtx, key, string(payload), ttl); setErr != nil {
				logError(r.Context(), logg, "persist idempotency record", setErr)
			}
		})
	}
}

// replayOrReject answers a request whose key is already reserved: a finished
// record is replayed, a pending one is refused without touching the store.
func replayOrReject(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, requestHash string, logg *logger.Logger) {
	stored, err := store.Get(r.Context(), key)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if stored == "" {
		// released between SetNX and Get; the client may retry
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	record, err := decodeRecord(stored)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.Pending {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	if logg != nil {
		logg.Info(r.Context(), "idempotency.replay")
	}
	writeStoredResponse(w, record)
}

// pendingTTL bounds how long a crashed request can hold its key.
func pendingTTL(ttl time.Duration) time.Duration {
	if ttl < maxPendingTTL {
		return ttl
	}
	return maxPendingTTL
}

// shouldPersist keeps every final answer, including an unknown provider
// outcome. Retryable failures and 409s, which describe some other request's
// state, are dropped.
func shouldPersist(status int) bool {
	switch {
	case status == http.StatusGatewayTimeout:
		return true
	case status == http.StatusTooManyRequests, status == http.StatusConflict:
		return false
	case status >= http.StatusInternalServerError:
		return false
	default:
		return true
	}
}

func buildScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routeTTL(method, path string, ttls IdempotencyTTLs) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if !rule.matcher(path) {
			continue
		}
		if rule.family == familyCommission {
			return ttls.Commission, true
		}
		return ttls.Payouts, true
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(candidate string) bool {
		return candidate == path
	}
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(candidate string) bool {
		return strings.HasPrefix(candidate, prefix) && strings.HasSuffix(candidate, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
