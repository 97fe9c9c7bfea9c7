package session

import "context"

// Collector is the single consumer of the dispatcher's results. It is the
// only place AI outcomes are merged back into sessions.
type Collector struct {
	results <-chan Result
	apply   func(Result)
}

// NewCollector creates a collector that hands every result to apply.
func NewCollector(results <-chan Result, apply func(Result)) *Collector {
	return &Collector{results: results, apply: apply}
}

// Run drains results until ctx is cancelled or the channel is closed.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-c.results:
			if !ok {
				return
			}
			c.apply(res)
		}
	}
}
