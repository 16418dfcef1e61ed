package metrics

import (
	"sync"
)

var (
	global *Metrics
	mu     sync.RWMutex
)

// SetGlobal 设置全局指标实例
func SetGlobal(m *Metrics) {
	mu.Lock()
	defer mu.Unlock()
	global = m
}

// Global returns the process-wide instance, or nil when metrics are off.
func Global() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
