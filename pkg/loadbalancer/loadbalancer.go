// Package loadbalancer rotates requests across replicas of a backend
// service. The gateway uses it when more than one ingest instance is
// configured.
package loadbalancer

import "sync"

type LoadBalancer struct {
	targets []string
	mu      sync.Mutex
	current int
}

func New(targets []string) *LoadBalancer {
	return &LoadBalancer{targets: targets}
}

// NextTarget returns the next backend base URL round robin. A single-target
// balancer always returns that target.
func (lb *LoadBalancer) NextTarget() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if len(lb.targets) == 0 {
		return ""
	}
	target := lb.targets[lb.current]
	lb.current = (lb.current + 1) % len(lb.targets)
	return target
}

func (lb *LoadBalancer) Targets() []string {
	return lb.targets
}
