package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/metrics"
	"github.com/sahilchouksey/lessionprm-api/utils/ratelimit"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// RateLimitConfig configures RateLimit
type RateLimitConfig struct {
	Store          ratelimit.Store
	SkipPaths      []string
	TrustedProxies []string // peers whose X-User-ID header is believed
	Now            func() time.Time
}

// ClientKey identifies the caller for rate limiting. An authenticated user id
// wins; X-User-ID only counts when the connecting peer is a trusted proxy.
func ClientKey(c *fiber.Ctx, trustedProxies []string) string {
	if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	if isTrustedPeer(c, trustedProxies) {
		if userID := strings.TrimSpace(c.Get("X-User-ID")); userID != "" {
			return "user:" + userID
		}
	}
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return "ip:" + first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return "ip:" + realIP
	}
	return "ip:" + c.IP()
}

func isTrustedPeer(c *fiber.Ctx, trustedProxies []string) bool {
	peer := c.Context().RemoteIP().String()
	for _, p := range trustedProxies {
		if p == peer {
			return true
		}
	}
	return false
}

// RateLimit answers 429 once a client has used up its window quota
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SkipPaths == nil {
		cfg.SkipPaths = []string{"/health", "/metrics"}
	}

	return func(c *fiber.Ctx) error {
		for _, p := range cfg.SkipPaths {
			if c.Path() == p {
				return c.Next()
			}
		}

		key := ClientKey(c, cfg.TrustedProxies)
		res, err := cfg.Store.Take(c.UserContext(), key)
		if err != nil {
			logger.FromFiber(c).Warn().Err(err).Str("client", key).Msg("rate limit store unavailable")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(res.RetryAfter(cfg.Now()).Seconds() + 0.999)
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			metrics.RateLimitRejections.Inc()
			return response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
		}

		return c.Next()
	}
}
