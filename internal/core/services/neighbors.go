package services

import (
	"context"
	"sync"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
)

// NeighborRegistry tracks the statically configured direct-neighbor
// topology and its liveness. The liveness map is read by every query
// dispatch and written only by the background heartbeat loop, so reads
// take the shared lock.
type NeighborRegistry struct {
	client    driven.FederationClient
	interval  time.Duration
	threshold int

	mu        sync.RWMutex
	neighbors map[string]*domain.ServerNode

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewNeighborRegistry creates a registry over the static topology.
// threshold is how many consecutive missed heartbeats mark a neighbor
// DOWN.
func NewNeighborRegistry(
	nodes []domain.ServerNode,
	client driven.FederationClient,
	interval time.Duration,
	threshold int,
) *NeighborRegistry {
	neighbors := make(map[string]*domain.ServerNode, len(nodes))
	for i := range nodes {
		node := nodes[i]
		node.Liveness = domain.LivenessUnknown
		neighbors[node.ID] = &node
	}
	return &NeighborRegistry{
		client:    client,
		interval:  interval,
		threshold: threshold,
		neighbors: neighbors,
	}
}

// Start begins the heartbeat loop. Blocks until the context is
// cancelled or Stop is called.
func (r *NeighborRegistry) Start(ctx context.Context) error {
	r.runMu.Lock()
	if r.running {
		r.runMu.Unlock()
		return nil // Already running
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.runMu.Unlock()

	// First sweep immediately so fan-out does not run blind until the
	// first tick.
	r.HeartbeatOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			r.HeartbeatOnce(ctx)
		}
	}
}

// Stop gracefully shuts down the heartbeat loop.
func (r *NeighborRegistry) Stop() error {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	r.runMu.Unlock()
	return nil
}

// HeartbeatOnce pings every neighbor concurrently and updates
// liveness, returning once the sweep settles. Exposed for triggering
// an immediate sweep.
func (r *NeighborRegistry) HeartbeatOnce(ctx context.Context) {
	r.mu.RLock()
	targets := make([]domain.ServerNode, 0, len(r.neighbors))
	for _, node := range r.neighbors {
		targets = append(targets, *node)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target domain.ServerNode) {
			defer wg.Done()
			if err := r.client.Ping(ctx, target.Address); err != nil {
				r.recordMiss(target.ID)
			} else {
				r.recordSuccess(target.ID)
			}
		}(target)
	}
	wg.Wait()
}

// recordSuccess restores a neighbor to UP on the first good heartbeat.
func (r *NeighborRegistry) recordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.neighbors[id]
	if !ok {
		return
	}
	if node.Liveness == domain.LivenessDown {
		logger.Info("Neighbor %s restored to UP", id)
	}
	node.Liveness = domain.LivenessUp
	node.MissedHeartbeats = 0
	node.LastSeen = time.Now()
}

// recordMiss counts a failed heartbeat, marking the neighbor DOWN at
// the threshold.
func (r *NeighborRegistry) recordMiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.neighbors[id]
	if !ok {
		return
	}
	node.MissedHeartbeats++
	if node.MissedHeartbeats >= r.threshold && node.Liveness != domain.LivenessDown {
		node.Liveness = domain.LivenessDown
		logger.Warn("Neighbor %s marked DOWN after %d missed heartbeats",
			id, node.MissedHeartbeats)
	}
}

// UpNeighbors returns the neighbors eligible for fan-out: everything
// not marked DOWN. Unknown counts as eligible so a freshly started
// server is not mute until its first heartbeat sweep.
func (r *NeighborRegistry) UpNeighbors() []domain.ServerNode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]domain.ServerNode, 0, len(r.neighbors))
	for _, node := range r.neighbors {
		if node.Liveness != domain.LivenessDown {
			nodes = append(nodes, *node)
		}
	}
	return nodes
}

// Snapshot returns the full neighbor list with current liveness.
func (r *NeighborRegistry) Snapshot() []domain.ServerNode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]domain.ServerNode, 0, len(r.neighbors))
	for _, node := range r.neighbors {
		nodes = append(nodes, *node)
	}
	return nodes
}

// SetLiveness forces a neighbor's liveness state. Test helper.
func (r *NeighborRegistry) SetLiveness(id string, liveness domain.Liveness) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if node, ok := r.neighbors[id]; ok {
		node.Liveness = liveness
	}
}
