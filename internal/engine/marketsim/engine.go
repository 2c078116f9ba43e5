// Package marketsim fabricates a continuous stream of order-book trades for
// the supported tokens. The output is decorative: no matching, no price
// impact, no real counterparties.
package marketsim

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"coinvest/internal/money"
	"coinvest/internal/store"
	"coinvest/internal/weighted"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemUserID owns every synthetic trade record. Seeded by migration.
const SystemUserID = "00000000-0000-0000-0000-000000000001"

// buyBias skews generated flow mildly bullish.
const buyBias = 0.55

const bufferSize = 50

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

type Trade struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Side      string    `json:"side"`
	Tier      string    `json:"tier"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// band is one generator's reschedule window. Each firing draws a fresh
// delay from [min, max).
type band struct {
	name string
	min  time.Duration
	max  time.Duration
}

func (b band) delay(rng *rand.Rand) time.Duration {
	return b.min + time.Duration(rng.Int63n(int64(b.max-b.min)))
}

func defaultBands() []band {
	return []band{
		{name: "fast", min: 2 * time.Second, max: 5 * time.Second},
		{name: "medium", min: 5 * time.Second, max: 10 * time.Second},
		{name: "slow", min: 15 * time.Second, max: 30 * time.Second},
	}
}

type Engine struct {
	exec         store.Execer
	transactions TransactionStore
	tokens       []Token
	tiers        *weighted.Chooser[Tier]
	bands        []band
	buffers      map[string]*ringBuffer

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func New(exec store.Execer, transactions TransactionStore) *Engine {
	tokens := DefaultTokens()
	buffers := make(map[string]*ringBuffer, len(tokens))
	for _, token := range tokens {
		buffers[token.Symbol] = newRingBuffer(bufferSize)
	}
	return &Engine{
		exec:         exec,
		transactions: transactions,
		tokens:       tokens,
		tiers:        newTierChooser(),
		bands:        defaultBands(),
		buffers:      buffers,
	}
}

func (e *Engine) Tokens() []Token {
	return e.tokens
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()

	for i, b := range e.bands {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		e.wg.Add(1)
		go e.runGenerator(runCtx, b, rng)
	}

	log.Printf("market simulation started with %d generators over %d tokens", len(e.bands), len(e.tokens))
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Printf("market simulation stopped")
	return nil
}

// runGenerator produces one trade per firing, then reschedules itself with a
// fresh delay from its band. Not a fixed-period ticker.
func (e *Engine) runGenerator(ctx context.Context, b band, rng *rand.Rand) {
	defer e.wg.Done()
	timer := time.NewTimer(b.delay(rng))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := e.GenerateTrade(ctx, rng); err != nil {
				log.Printf("market sim %s generator: %v", b.name, err)
			}
			timer.Reset(b.delay(rng))
		}
	}
}

// GenerateTrade fabricates and persists a single synthetic trade using the
// supplied randomness source.
func (e *Engine) GenerateTrade(ctx context.Context, rng *rand.Rand) (Trade, error) {
	token := e.tokens[rng.Intn(len(e.tokens))]
	tier := e.tiers.Pick(rng)

	base := token.MinAmount + rng.Float64()*(token.MaxAmount-token.MinAmount)
	amount := decimal.NewFromFloat(base * tier.Multiplier)

	side := "sell"
	txType := "trade_sell"
	if rng.Float64() < buyBias {
		side = "buy"
		txType = "trade_buy"
	}

	trade := Trade{
		ID:        uuid.NewString(),
		Token:     token.Symbol,
		Side:      side,
		Tier:      tier.Name,
		Amount:    money.FormatToken(amount, token.Precision),
		CreatedAt: time.Now(),
	}

	err := e.transactions.Create(ctx, e.exec, store.TransactionInput{
		ID:     trade.ID,
		UserID: SystemUserID,
		Type:   txType,
		Status: "completed",
		Amount: trade.Amount,
		Notes:  tradeNote(trade),
	})
	if err != nil {
		return Trade{}, err
	}

	e.buffers[token.Symbol].push(trade)
	return trade, nil
}

// RecentTrades returns the buffered trades for a token, newest first. The
// buffer holds at most the last 50 trades; older flow lives only in the
// transaction log.
func (e *Engine) RecentTrades(symbol string) []Trade {
	buffer, ok := e.buffers[strings.ToUpper(symbol)]
	if !ok {
		return nil
	}
	return buffer.recent()
}

// tradeNote names the token and amount so the transaction log can be
// filtered per token with a substring match.
func tradeNote(trade Trade) string {
	return "Market " + strings.ToUpper(trade.Side) + " " + trade.Amount + " " + trade.Token
}
