package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/courierloop/courierloop-backend/api/responses"
	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
	"github.com/courierloop/courierloop-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy defines the throttling parameters for a traffic surface.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	actorLimit int
}

// NewRateLimitPolicy builds a policy with the supplied window and limits.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, actorLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		actorLimit: actorLimit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.actorLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

func (p RateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:%s:%s", p.normalizedName(), ip)
}

func (p RateLimitPolicy) actorKey(userID string) string {
	if userID == "" {
		return ""
	}
	return fmt.Sprintf("rl:actor:%s:%s", p.normalizedName(), userID)
}

// RateLimit enforces per-IP and per-actor counters for write-heavy endpoints
// such as location pings and road-condition reports.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if key := policy.ipKey(clientIP(r)); key != "" {
					allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit))
					if err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.actorLimit > 0 {
				if key := policy.actorKey(UserIDFromContext(ctx)); key != "" {
					allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.actorLimit))
					if err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if !allowed {
						respondRateLimited(ctx, logg, w, policy, "actor", count, policy.actorLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, scope string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
