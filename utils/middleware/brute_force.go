package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/utils/cache"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

const loginAttemptWindow = 15 * time.Minute

// lockoutFor maps the failed-attempt count inside the window to a lockout duration
func lockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// LoginGuard locks out clients that keep failing to log in. Redis errors never block a login.
type LoginGuard struct {
	cache *cache.RedisCache
}

func NewLoginGuard(c *cache.RedisCache) *LoginGuard {
	return &LoginGuard{cache: c}
}

func attemptKey(ip string) string { return "login:attempts:" + ip }
func lockKey(ip string) string    { return "login:lock:" + ip }

// Check rejects locked out clients before the login handler runs
func (g *LoginGuard) Check() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		ip := c.IP()

		locked, err := g.cache.Exists(ctx, lockKey(ip))
		if err != nil {
			logger.FromFiber(c).Warn().Err(err).Msg("login lockout check skipped")
			return c.Next()
		}
		if !locked {
			return c.Next()
		}

		retryAfter := 60
		if ttl, err := g.cache.TTL(ctx, lockKey(ip)); err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, "Too many failed login attempts. Try again in "+strconv.Itoa(retryAfter)+" seconds")
	}
}

// RecordFailure counts a failed login and applies a progressive lockout
func (g *LoginGuard) RecordFailure(ctx context.Context, ip string) {
	attempts, _, err := g.cache.IncrementWindow(ctx, attemptKey(ip), loginAttemptWindow)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to record login attempt")
		return
	}

	if d := lockoutFor(attempts); d > 0 {
		if err := g.cache.Set(ctx, lockKey(ip), "locked", d); err != nil {
			logger.Warn(ctx).Err(err).Msg("failed to apply login lockout")
			return
		}
		logger.Info(ctx).Str("ip", ip).Int64("attempts", attempts).Dur("lockout", d).Msg("login lockout applied")
	}
}

// RecordSuccess clears the counters of ip
func (g *LoginGuard) RecordSuccess(ctx context.Context, ip string) {
	if err := g.cache.Delete(ctx, attemptKey(ip), lockKey(ip)); err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to clear login attempts")
	}
}
