package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lessonchain/observability"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the correlation id attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RateLimit bounds requests per client address. Forwarding headers are only
// honoured when the direct peer matches an entry of TrustedProxies, given as
// IP addresses or CIDR ranges.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
	TrustedProxies    []string
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limit    RateLimit
	trusted  []*net.IPNet
	mu       sync.Mutex
	visitors map[string]*rateEntry
	clockNow func() time.Time
	idleTTL  time.Duration
}

func NewRateLimiter(limit RateLimit) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		trusted:  parseTrustedProxies(limit.TrustedProxies),
		visitors: make(map[string]*rateEntry),
		clockNow: time.Now,
		idleTTL:  5 * time.Minute,
	}
}

// Allow reports whether id may issue another request now.
func (r *RateLimiter) Allow(id string) bool {
	now := r.clockNow()
	return r.obtainLimiter(id, now).AllowN(now, 1)
}

func (r *RateLimiter) obtainLimiter(id string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.visitors {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.visitors, key)
		}
	}
	entry, ok := r.visitors[id]
	if ok {
		entry.lastSeen = now
		return entry.limiter
	}
	perSecond := r.limit.RequestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := r.limit.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	r.visitors[id] = &rateEntry{limiter: limiter, lastSeen: now}
	return limiter
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow(r.clientSource(req)) {
			observability.ModuleMetrics().RecordThrottle("rate_limit")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(RPCResponse{
				JSONRPC: jsonRPCVersion,
				Error:   &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"},
			})
			return
		}
		next.ServeHTTP(w, req)
	})
}

// ParseTrustedProxy parses one trusted proxy entry, an IP address or a CIDR
// range.
func ParseTrustedProxy(entry string) (*net.IPNet, error) {
	trimmed := strings.TrimSpace(entry)
	if strings.Contains(trimmed, "/") {
		_, network, err := net.ParseCIDR(trimmed)
		return network, err
	}
	ip := net.ParseIP(trimmed)
	if ip == nil {
		return nil, fmt.Errorf("invalid proxy address %q", entry)
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

func parseTrustedProxies(entries []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if network, err := ParseTrustedProxy(entry); err == nil {
			networks = append(networks, network)
		}
	}
	return networks
}

func (r *RateLimiter) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range r.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientSource identifies the client a request is accounted to. Requests from
// untrusted peers are keyed by the peer address alone. Behind a trusted proxy
// the nearest untrusted hop of X-Forwarded-For wins, then X-Real-IP.
func (r *RateLimiter) clientSource(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if !r.isTrusted(net.ParseIP(host)) {
		return host
	}
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !r.isTrusted(ip) {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(req.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return host
}
