package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	visitorIdleTimeout = 3 * time.Minute
	visitorSweepEvery  = time.Minute
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter; idle visitors are swept until ctx is cancelled
func NewRateLimiter(ctx context.Context, r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}
	go rl.sweep(ctx)
	return rl
}

// GetLimiter returns the bucket for ip, creating it on first use
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(visitorSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > visitorIdleTimeout {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimitMiddleware rejects clients that exhaust their bucket
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			log.Printf("[WARN] rate limit exceeded for %s on %s", ip, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Please slow down your requests",
			})
			return
		}
		c.Next()
	}
}

// ScrapeCooldownMiddleware allows one request per interval per auction link.
// Requests without a link share one global slot.
func ScrapeCooldownMiddleware(interval time.Duration) gin.HandlerFunc {
	var (
		mu   sync.Mutex
		last = make(map[string]time.Time)
	)

	return func(c *gin.Context) {
		key := c.Query("link")

		mu.Lock()
		if t, seen := last[key]; seen && time.Since(t) < interval {
			mu.Unlock()
			remaining := (interval - time.Since(t)).Round(time.Second)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Scrape too frequent",
				"message": fmt.Sprintf("Please wait %s before scraping this auction again", remaining),
			})
			return
		}
		last[key] = time.Now()
		mu.Unlock()

		c.Next()

		// Failed scrapes do not consume the slot
		if c.Writer.Status() >= http.StatusBadRequest {
			mu.Lock()
			delete(last, key)
			mu.Unlock()
		}
	}
}

// SecurityHeaders adds the usual hardening headers
func SecurityHeaders() gin.HandlerFunc {
	csp := buildCSPPolicy()

	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", csp)
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Server", "")

		// Write endpoints must never be cached
		if c.Request.Method != http.MethodGet {
			c.Header("Cache-Control", "no-store")
		}

		c.Next()
	}
}

// AdminKeyMiddleware checks the X-Admin-Key header against a bcrypt hash.
// An empty hash disables every protected route.
func AdminKeyMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Admin access is not configured",
			})
			return
		}

		key := c.GetHeader("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			log.Printf("[WARN] rejected admin request from %s: %s %s", c.ClientIP(), c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Admin access required",
			})
			return
		}

		c.Next()
	}
}

// SecurityScanDetection logs probes for well-known sensitive paths so fail2ban can pick them up
func SecurityScanDetection() gin.HandlerFunc {
	probes := []string{
		".env", ".git", "wp-admin", "wp-login", "phpmyadmin", ".htaccess",
		"config.php", ".ssh", "id_rsa", ".sql", ".bak",
	}

	return func(c *gin.Context) {
		path := strings.ToLower(c.Request.URL.Path)
		for _, p := range probes {
			if strings.Contains(path, p) {
				log.Printf("[WARN] security scan attempt from %s: %s %s", c.ClientIP(), c.Request.Method, c.Request.URL.Path)
				break
			}
		}
		c.Next()
	}
}

// HTTPMethodFilter answers 405 for methods the API never serves
func HTTPMethodFilter(allowedMethods ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedMethods))
	for _, m := range allowedMethods {
		allowed[m] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[c.Request.Method]; !ok {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}
		c.Next()
	}
}

// buildCSPPolicy is strict in release mode and relaxed for the swagger UI otherwise
func buildCSPPolicy() string {
	if os.Getenv("GIN_MODE") != "release" {
		return "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data: https:; " +
			"connect-src 'self';"
	}

	return "default-src 'none'; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"base-uri 'none'; " +
		"form-action 'none'; " +
		"frame-ancestors 'none';"
}
