package marketsim

import (
	"sync"

	"coinvest/internal/weighted"
)

func newTierChooser() *weighted.Chooser[Tier] {
	tiers := TraderTiers()
	choices := make([]weighted.Choice[Tier], 0, len(tiers))
	for _, tier := range tiers {
		choices = append(choices, weighted.Choice[Tier]{Weight: tier.Weight, Value: tier})
	}
	return weighted.NewChooser(choices)
}

// ringBuffer retains the most recent trades for one token.
type ringBuffer struct {
	mu      sync.Mutex
	entries []Trade
	next    int
	count   int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{entries: make([]Trade, size)}
}

func (b *ringBuffer) push(trade Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = trade
	b.next = (b.next + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// recent returns the buffered trades newest first.
func (b *ringBuffer) recent() []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	trades := make([]Trade, 0, b.count)
	for i := 1; i <= b.count; i++ {
		index := (b.next - i + len(b.entries)) % len(b.entries)
		trades = append(trades, b.entries[index])
	}
	return trades
}
