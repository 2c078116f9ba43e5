package marketsim

// Token describes a supported market with the base range a single synthetic
// trade draws from and the decimal precision its amounts are quoted at.
type Token struct {
	Symbol    string
	MinAmount float64
	MaxAmount float64
	Precision int32
}

func DefaultTokens() []Token {
	return []Token{
		{Symbol: "BTC", MinAmount: 0.0005, MaxAmount: 0.02, Precision: 8},
		{Symbol: "ETH", MinAmount: 0.01, MaxAmount: 0.5, Precision: 6},
		{Symbol: "USDT", MinAmount: 250, MaxAmount: 10000, Precision: 4},
		{Symbol: "BNB", MinAmount: 0.1, MaxAmount: 5, Precision: 4},
		{Symbol: "SOL", MinAmount: 1, MaxAmount: 50, Precision: 4},
		{Symbol: "XRP", MinAmount: 100, MaxAmount: 5000, Precision: 4},
	}
}

// Tier classifies the synthetic counterparty size. Weights are relative
// shares of generated trades; the multiplier scales the base amount.
type Tier struct {
	Name       string
	Weight     float64
	Multiplier float64
}

func TraderTiers() []Tier {
	return []Tier{
		{Name: "whale", Weight: 5, Multiplier: 5.0},
		{Name: "large", Weight: 15, Multiplier: 2.5},
		{Name: "medium", Weight: 30, Multiplier: 1.0},
		{Name: "small", Weight: 50, Multiplier: 0.3},
	}
}
