package utils

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/countessevian/konchamar/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// AdminOnlyMiddleware ensures the requester has admin or super_admin role
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	role := claims.Role
	if role != "admin" && role != "super_admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "forbidden", "message": "admin access required"})
		return
	}
	// Ensure userID is available to downstream handlers
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// SuperAdminOnlyMiddleware ensures only super admins can access
func SuperAdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	if claims.Role != "super_admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "forbidden", "message": "super_admin access required"})
		return
	}
	ctx.Next()
}

// RateLimitMiddleware counts requests per client IP in Redis. The window and
// ceiling follow RATE_LIMIT_WINDOW_MS / RATE_LIMIT_MAX_REQUESTS, matching the
// limiter the public site runs in front of /api.
func RateLimitMiddleware(ctx iris.Context) {
	if storage.Redis == nil {
		ctx.Next()
		return
	}

	windowMs := 15 * 60 * 1000
	if v := os.Getenv("RATE_LIMIT_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			windowMs = n
		}
	}
	maxRequests := 100
	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxRequests = n
		}
	}

	key := "ratelimit:" + ClientIP(ctx)
	bg := context.Background()

	count, err := storage.Redis.Incr(bg, key).Result()
	if err != nil {
		// Redis down: let traffic through rather than failing closed
		ctx.Next()
		return
	}
	if count == 1 {
		storage.Redis.Expire(bg, key, time.Duration(windowMs)*time.Millisecond)
	}

	if count > int64(maxRequests) {
		ctx.StatusCode(iris.StatusTooManyRequests)
		ctx.JSON(iris.Map{"error": "rate_limited", "message": "Too many requests, please try again later"})
		return
	}

	ctx.Next()
}

func ClientIP(ctx iris.Context) string {
	if ip := ctx.GetHeader("X-Forwarded-For"); ip != "" {
		return ip
	}
	ip, _, _ := net.SplitHostPort(ctx.RemoteAddr())
	return ip
}
