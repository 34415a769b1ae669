package resilience

import (
	"math/rand"
	"sync"
	"time"
)

type instance struct {
	failures  int
	successes int
	lastCheck time.Time
	healthy   bool
}

// InstanceHealthRegistry tracks per-URL health for pools of interchangeable
// mirror instances (Invidious, Piped). This gates endpoints within a method;
// the circuit breaker gates the method itself.
type InstanceHealthRegistry struct {
	mu            sync.Mutex
	instances     map[string]*instance
	failThreshold int
	recheckAfter  time.Duration
	now           func() time.Time
	shuffle       func(n int, swap func(i, j int))
}

// NewInstanceHealthRegistry creates a registry. Non-positive arguments select
// the defaults of 3 consecutive failures and a 600s re-check interval.
func NewInstanceHealthRegistry(failThreshold int, recheckAfter time.Duration) *InstanceHealthRegistry {
	if failThreshold <= 0 {
		failThreshold = 3
	}
	if recheckAfter <= 0 {
		recheckAfter = 600 * time.Second
	}
	return &InstanceHealthRegistry{
		instances:     make(map[string]*instance),
		failThreshold: failThreshold,
		recheckAfter:  recheckAfter,
		now:           time.Now,
		shuffle:       rand.Shuffle,
	}
}

func (r *InstanceHealthRegistry) get(url string) *instance {
	inst, ok := r.instances[url]
	if !ok {
		inst = &instance{healthy: true}
		r.instances[url] = inst
	}
	return inst
}

// RecordSuccess resets the consecutive failure count and marks the URL healthy.
func (r *InstanceHealthRegistry) RecordSuccess(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst := r.get(url)
	inst.successes++
	inst.failures = 0
	inst.healthy = true
	inst.lastCheck = r.now()
}

// RecordFailure counts a failure; the URL is demoted once consecutive
// failures reach the threshold.
func (r *InstanceHealthRegistry) RecordFailure(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst := r.get(url)
	inst.failures++
	inst.lastCheck = r.now()
	if inst.failures >= r.failThreshold {
		inst.healthy = false
	}
}

// IsHealthy reports the current health of a URL, auto-reactivating it when
// the re-check interval has elapsed since its last recorded failure.
func (r *InstanceHealthRegistry) IsHealthy(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.healthyLocked(r.get(url))
}

func (r *InstanceHealthRegistry) healthyLocked(inst *instance) bool {
	if inst.healthy {
		return true
	}
	if r.now().Sub(inst.lastCheck) >= r.recheckAfter {
		inst.healthy = true
		inst.failures = 0
		return true
	}
	return false
}

// HealthyFirst orders the given URLs with healthy instances first (shuffled
// to spread load) followed by unhealthy ones as a last resort.
func (r *InstanceHealthRegistry) HealthyFirst(urls []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	healthy := make([]string, 0, len(urls))
	unhealthy := make([]string, 0)
	for _, url := range urls {
		if r.healthyLocked(r.get(url)) {
			healthy = append(healthy, url)
		} else {
			unhealthy = append(unhealthy, url)
		}
	}

	r.shuffle(len(healthy), func(i, j int) {
		healthy[i], healthy[j] = healthy[j], healthy[i]
	})

	return append(healthy, unhealthy...)
}
