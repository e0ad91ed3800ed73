package loadgen

import (
	"sync/atomic"
	"time"
)

const (
	ActionBrowseProducts = "browse_products"
	ActionViewProduct    = "view_product"
	ActionAddToCart      = "add_to_cart"
	ActionViewCart       = "view_cart"
	ActionCheckout       = "checkout"
	ActionViewOrders     = "view_orders"
	ActionViewAllOrders  = "view_all_orders"
	ActionViewOrder      = "view_order"
)

var actions = []string{
	ActionBrowseProducts,
	ActionViewProduct,
	ActionAddToCart,
	ActionViewCart,
	ActionCheckout,
	ActionViewOrders,
	ActionViewAllOrders,
	ActionViewOrder,
}

// Stats counts requests without locks. The action map is fixed at
// construction and only its counters change.
type Stats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	latencyMS atomic.Int64

	byAction map[string]*atomic.Int64
}

func NewStats() *Stats {
	s := &Stats{byAction: make(map[string]*atomic.Int64, len(actions))}
	for _, a := range actions {
		s.byAction[a] = new(atomic.Int64)
	}
	return s
}

// Record counts a finished request. Latency and the per-action breakdown only
// include successful requests.
func (s *Stats) Record(action string, latency time.Duration, ok bool) {
	s.total.Add(1)

	if !ok {
		s.failed.Add(1)
		return
	}

	s.succeeded.Add(1)
	s.latencyMS.Add(latency.Milliseconds())
	if c, found := s.byAction[action]; found {
		c.Add(1)
	}
}

func (s *Stats) Reset() {
	s.total.Store(0)
	s.succeeded.Store(0)
	s.failed.Store(0)
	s.latencyMS.Store(0)
	for _, c := range s.byAction {
		c.Store(0)
	}
}

type Snapshot struct {
	TotalRequests       int64            `json:"totalRequests"`
	SuccessfulRequests  int64            `json:"successfulRequests"`
	FailedRequests      int64            `json:"failedRequests"`
	AverageResponseTime int64            `json:"averageResponseTime"`
	SuccessRate         float64          `json:"successRate"`
	ActionBreakdown     map[string]int64 `json:"actionBreakdown"`
}

func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:      s.total.Load(),
		SuccessfulRequests: s.succeeded.Load(),
		FailedRequests:     s.failed.Load(),
		ActionBreakdown:    make(map[string]int64, len(s.byAction)),
	}

	if snap.TotalRequests > 0 {
		snap.AverageResponseTime = s.latencyMS.Load() / snap.TotalRequests
		snap.SuccessRate = float64(snap.SuccessfulRequests) * 100 / float64(snap.TotalRequests)
	}
	for a, c := range s.byAction {
		snap.ActionBreakdown[a] = c.Load()
	}

	return snap
}
