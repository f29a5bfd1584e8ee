package monitoring

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"fraudcheck/fraud"
)

// MetricsCollector 检测结果计数器，实现 fraud.Sink
type MetricsCollector struct {
	checks     atomic.Int64
	fraud      atomic.Int64
	legitimate atomic.Int64
	failures   atomic.Int64
	cacheHits  atomic.Int64
	lastCheck  atomic.Int64 // unix nanos

	startTime time.Time
	now       func() time.Time
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	Checks        int64     `json:"checks"`
	Fraud         int64     `json:"fraud"`
	Legitimate    int64     `json:"legitimate"`
	Failures      int64     `json:"failures"`
	CacheHits     int64     `json:"cache_hits"`
	FraudRate     float64   `json:"fraud_rate"`
	LastCheck     time.Time `json:"last_check,omitempty"`
	StartTime     time.Time `json:"start_time"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	HeapAllocMB   float64   `json:"heap_alloc_mb"`
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Record 记录一次检测结果
func (mc *MetricsCollector) Record(_ context.Context, outcome fraud.Outcome) error {
	mc.checks.Add(1)
	switch {
	case !outcome.OK():
		mc.failures.Add(1)
	case outcome.Verdict == fraud.VerdictFraud:
		mc.fraud.Add(1)
	default:
		mc.legitimate.Add(1)
	}
	if outcome.Cached {
		mc.cacheHits.Add(1)
	}
	mc.lastCheck.Store(outcome.CheckedAt.UnixNano())
	return nil
}

// Snapshot 获取当前指标
func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := MetricsSnapshot{
		Checks:        mc.checks.Load(),
		Fraud:         mc.fraud.Load(),
		Legitimate:    mc.legitimate.Load(),
		Failures:      mc.failures.Load(),
		CacheHits:     mc.cacheHits.Load(),
		StartTime:     mc.startTime,
		UptimeSeconds: mc.now().Sub(mc.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / 1024 / 1024,
	}
	if rendered := s.Fraud + s.Legitimate; rendered > 0 {
		s.FraudRate = float64(s.Fraud) / float64(rendered)
	}
	if last := mc.lastCheck.Load(); last != 0 {
		s.LastCheck = time.Unix(0, last).UTC()
	}
	return s
}
