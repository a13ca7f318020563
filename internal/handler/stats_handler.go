package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"routemap/internal/cache"
	"routemap/internal/hub"
	"routemap/internal/middleware"
	"routemap/internal/resolver"
)

// Stats tracks server-wide counters
type Stats struct {
	startTime     time.Time
	requestCount  atomic.Int64
	wsConnections atomic.Int64
	wsMessagesIn  atomic.Int64
	wsMessagesOut atomic.Int64
}

var ServerStats = &Stats{
	startTime: time.Now(),
}

func (s *Stats) IncRequests()      { s.requestCount.Add(1) }
func (s *Stats) IncWSConnections() { s.wsConnections.Add(1) }
func (s *Stats) DecWSConnections() { s.wsConnections.Add(-1) }
func (s *Stats) IncWSMessagesIn()  { s.wsMessagesIn.Add(1) }
func (s *Stats) IncWSMessagesOut() { s.wsMessagesOut.Add(1) }

type StatsHandler struct {
	hub      *hub.Hub
	resolver *resolver.Resolver
	cache    *cache.CachedFetcher
	redis    *cache.RedisCache
	limiter  *middleware.RateLimiter
}

// NewStatsHandler wires the stats sources. The cache arguments are nil when
// Redis is disabled.
func NewStatsHandler(h *hub.Hub, r *resolver.Resolver, c *cache.CachedFetcher, rc *cache.RedisCache, l *middleware.RateLimiter) *StatsHandler {
	return &StatsHandler{
		hub:      h,
		resolver: r,
		cache:    c,
		redis:    rc,
		limiter:  l,
	}
}

type StatsResponse struct {
	Server    ServerStatsResponse    `json:"server"`
	Sessions  SessionStatsResponse   `json:"sessions"`
	Resolver  resolver.StatsSnapshot `json:"resolver"`
	Cache     *cache.FetcherStats    `json:"cache,omitempty"`
	Redis     *RedisStatsResponse    `json:"redis,omitempty"`
	WebSocket WebSocketStatsResponse `json:"websocket"`
	Go        GoStatsResponse        `json:"go"`
}

type ServerStatsResponse struct {
	Uptime        string    `json:"uptime"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
	RequestCount  int64     `json:"request_count"`
	RateLimited   int64     `json:"rate_limited"`
	Version       string    `json:"version"`
}

type SessionStatsResponse struct {
	Active       int `json:"active"`
	ActiveLayers int `json:"active_layers"`
}

type RedisStatsResponse struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type WebSocketStatsResponse struct {
	Connections int64 `json:"connections"`
	MessagesIn  int64 `json:"messages_in"`
	MessagesOut int64 `json:"messages_out"`
}

type GoStatsResponse struct {
	Goroutines  int     `json:"goroutines"`
	HeapAlloc   uint64  `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	GoVersion   string  `json:"go_version"`
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ServerStats.IncRequests()

	uptime := time.Since(ServerStats.startTime)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response := StatsResponse{
		Server: ServerStatsResponse{
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			StartTime:     ServerStats.startTime,
			RequestCount:  ServerStats.requestCount.Load(),
			Version:       "1.0.0",
		},
		Sessions: SessionStatsResponse{
			Active:       h.hub.ClientCount(),
			ActiveLayers: h.hub.LayerCount(),
		},
		Resolver: h.resolver.Stats(),
		WebSocket: WebSocketStatsResponse{
			Connections: ServerStats.wsConnections.Load(),
			MessagesIn:  ServerStats.wsMessagesIn.Load(),
			MessagesOut: ServerStats.wsMessagesOut.Load(),
		},
		Go: GoStatsResponse{
			Goroutines:  runtime.NumGoroutine(),
			HeapAlloc:   mem.HeapAlloc,
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			NumGC:       mem.NumGC,
			GoVersion:   runtime.Version(),
		},
	}

	if h.cache != nil {
		cs := h.cache.Stats()
		response.Cache = &cs
	}
	if h.redis != nil {
		ps := h.redis.PoolStats()
		response.Redis = &RedisStatsResponse{
			Hits:       ps.Hits,
			Misses:     ps.Misses,
			Timeouts:   ps.Timeouts,
			TotalConns: ps.TotalConns,
			IdleConns:  ps.IdleConns,
		}
	}
	if h.limiter != nil {
		response.Server.RateLimited = h.limiter.Stats().Blocked
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(response)
}
