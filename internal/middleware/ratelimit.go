package middleware

import (
    "bytes"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "io"
    "math"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services/internal/config"
    "github.com/iliyamo/home-services/internal/metrics"
)

// Bucket names, used in Redis keys and as the metrics label.
const (
    BucketLogin    = "login"
    BucketRegister = "register"
)

// maxPeek bounds how much of a request body is read to find the email.
const maxPeek = 64 << 10

// CredentialLimit throttles credential submissions per client IP and
// submitted email, so one address cannot hammer one account while other
// accounts behind the same NAT keep working.  The body is read to find the
// email and then restored for the handler.  Limiter errors fail open.
func CredentialLimit(l Limiter, bucket string, b config.Bucket, cfg config.RateLimitConfig, m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := credentialKey(cfg.Prefix, bucket, c.RealIP(), peekEmail(c.Request()))
            v, err := l.Take(c.Request().Context(), key, b)
            if err != nil {
                c.Logger().Warnf("%v; letting request through", err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(b.Burst))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(v.Remaining))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if v.Allowed {
                return next(c)
            }

            m.RateLimited(bucket)
            secs := int(math.Ceil(v.RetryAfter.Seconds()))
            if secs < 1 {
                secs = 1
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many attempts, try again later",
                "retry_after": secs,
            })
        }
    }
}

// credentialKey builds <prefix>:<bucket>:<ip>:<email digest>.  The email is
// hashed so addresses never appear in Redis.
func credentialKey(prefix, bucket, ip, email string) string {
    if ip == "" {
        ip = "unknown"
    }
    sum := sha256.Sum256([]byte(email))
    return strings.Join([]string{prefix, bucket, ip, hex.EncodeToString(sum[:8])}, ":")
}

// peekEmail returns the normalized "email" field of a JSON body, or "" when
// there is none.  The body is always left readable from the start.
func peekEmail(r *http.Request) string {
    if r.Body == nil || r.Body == http.NoBody {
        return ""
    }
    raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeek))
    r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
    if err != nil {
        return ""
    }
    var body struct {
        Email string `json:"email"`
    }
    if json.Unmarshal(raw, &body) != nil {
        return ""
    }
    return strings.ToLower(strings.TrimSpace(body.Email))
}
