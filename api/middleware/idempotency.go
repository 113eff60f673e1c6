package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amaiabotanic/storefront/api/responses"
	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
	"github.com/amaiabotanic/storefront/pkg/logger"
	pkgredis "github.com/amaiabotanic/storefront/pkg/redis"
)

const (
	// IdempotencyHeader lets a client replay a request without repeating its
	// side effects.
	IdempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replay"
)

// Routes whose successful responses are replayable, with how long the
// response is kept. Orders are kept for a week.
var replayable = map[string]time.Duration{
	http.MethodPost + " /api/v1/cart/items": 24 * time.Hour,
	http.MethodPost + " /api/v1/checkout":   7 * 24 * time.Hour,
}

// IdempotencyStore persists replayable responses.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, key string) string
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

type replayer struct {
	store IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response when a covered route is called
// again by the same session with the same Idempotency-Key and body. Only 2xx
// responses are stored, so failed attempts can be retried under the same key.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	rp := &replayer{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := replayable[r.Method+" "+r.URL.Path]
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !covered || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := rp.serve(w, r, next, clientKey, ttl); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

func (rp *replayer) serve(w http.ResponseWriter, r *http.Request, next http.Handler, clientKey string, ttl time.Duration) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body could not be read")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintOf(body)
	key := rp.store.IdempotencyKey(
		SessionIDFromContext(r.Context())+"|"+r.Method+"|"+r.URL.Path, clientKey)

	prior, found, err := rp.lookup(r.Context(), key)
	if err != nil {
		return err
	}
	if found {
		if prior.Fingerprint != fingerprint {
			return pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body")
		}
		prior.writeTo(w)
		return nil
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	if capture.status < 200 || capture.status >= 300 {
		return nil
	}
	rp.remember(r.Context(), key, ttl, storedResponse{
		Status:      capture.status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
	return nil
}

func (rp *replayer) lookup(ctx context.Context, key string) (storedResponse, bool, error) {
	var prior storedResponse
	raw, err := rp.store.Get(ctx, key)
	switch {
	case pkgredis.IsMiss(err):
		return prior, false, nil
	case err != nil:
		return prior, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	case len(raw) == 0:
		return prior, false, nil
	}
	if err := json.Unmarshal(raw, &prior); err != nil {
		return prior, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return prior, true, nil
}

// remember stores the response. The client already has its answer, so
// failures are only logged.
func (rp *replayer) remember(ctx context.Context, key string, ttl time.Duration, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		_, err = rp.store.SetNX(ctx, key, string(payload), ttl)
	}
	if err != nil {
		rp.logg.Error(rp.logg.WithField(ctx, "idempotency_key", key), "idempotency record not stored", err)
	}
}

func (s storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(bytes.TrimSpace(body))
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
