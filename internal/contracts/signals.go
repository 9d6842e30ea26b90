package contracts

import "time"

// EntryQuality grades the entry sub-score of a buy signal
type EntryQuality string

const (
	EntryGood     EntryQuality = "Good"
	EntryExtended EntryQuality = "Extended"
	EntryPoor     EntryQuality = "Poor"
)

// Severity grades a sell signal
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// BuyDetails keeps the sub-scores and the intermediate values behind a buy score
type BuyDetails struct {
	TrendScore       float64      `json:"trend_score"`
	Breakout         BreakoutType `json:"breakout,omitempty"`
	FundamentalScore float64      `json:"fundamental_score"`
	VolumeScore      float64      `json:"volume_score"`
	AvgVolumeUp      *float64     `json:"avg_vol_up,omitempty"`
	AvgVolumeDown    *float64     `json:"avg_vol_down,omitempty"`
	UpDownRatio      *float64     `json:"up_down_ratio,omitempty"`
	RSScore          float64      `json:"rs_score"`
	RSSlope          *float64     `json:"rs_slope,omitempty"`
	RRScore          float64      `json:"rr_score"`
	EntryScore       float64      `json:"entry_score"`
}

// BuySignal is the buy scorer output. Score ranges over [0, 110].
type BuySignal struct {
	Ticker          string       `json:"ticker"`
	IsBuy           bool         `json:"is_buy"`
	Score           float64      `json:"score"`
	Phase           Phase        `json:"phase"`
	BreakoutPrice   *float64     `json:"breakout_price,omitempty"`
	StopLoss        *float64     `json:"stop_loss,omitempty"`
	RiskRewardRatio float64      `json:"risk_reward_ratio"`
	EntryQuality    EntryQuality `json:"entry_quality,omitempty"`
	Reasons         []string     `json:"reasons"`
	Details         BuyDetails   `json:"details"`
}

// SellDetails keeps the sub-scores behind a sell score
type SellDetails struct {
	BreakdownScore float64  `json:"breakdown_score"`
	VolumeScore    float64  `json:"volume_score"`
	VolumeRatio    *float64 `json:"volume_ratio,omitempty"`
	RSScore        float64  `json:"rs_score"`
	RSSlope        *float64 `json:"rs_slope,omitempty"`
}

// SellSignal is the sell scorer output. Score ranges over [0, 100].
type SellSignal struct {
	Ticker         string      `json:"ticker"`
	IsSell         bool        `json:"is_sell"`
	Score          float64     `json:"score"`
	Severity       Severity    `json:"severity"`
	Phase          Phase       `json:"phase"`
	BreakdownLevel *float64    `json:"breakdown_level,omitempty"`
	Reasons        []string    `json:"reasons"`
	Details        SellDetails `json:"details"`
}

// Evaluation bundles every engine output for one ticker on one date
type Evaluation struct {
	Ticker        string              `json:"ticker"`
	AsOf          time.Time           `json:"as_of"`
	Price         float64             `json:"price"`
	Phase         PhaseInfo           `json:"phase"`
	TrendTemplate TrendTemplateResult `json:"trend_template"`
	Breakout      BreakoutInfo        `json:"breakout"`
	RSSlope       float64             `json:"rs_slope"`
	Buy           *BuySignal          `json:"buy,omitempty"`
	Sell          *SellSignal         `json:"sell,omitempty"`
}

// MarketBreadth summarises phases across a scanned universe
type MarketBreadth struct {
	Total          int               `json:"total"`
	PhaseCounts    map[Phase]int     `json:"phase_counts"`
	PhasePercent   map[Phase]float64 `json:"phase_percent"`
	PctAboveSMA50  float64           `json:"pct_above_sma50"`
	PctAboveSMA200 float64           `json:"pct_above_sma200"`
}

// TickerFailure records a ticker a scan could not evaluate
type TickerFailure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// ScanResult is the outcome of one universe scan
type ScanResult struct {
	RunID          string          `json:"run_id"`
	AsOf           time.Time       `json:"as_of"`
	Benchmark      string          `json:"benchmark"`
	BenchmarkPhase PhaseInfo       `json:"benchmark_phase"`
	BuysGated      bool            `json:"buys_gated"`
	ProfileHash    string          `json:"profile_hash,omitempty"`
	Total          int             `json:"total"`
	Breadth        MarketBreadth   `json:"breadth"`
	Evaluations    []Evaluation    `json:"evaluations"`
	Buys           []BuySignal     `json:"buys"`
	Sells          []SellSignal    `json:"sells"`
	Filtered       []string        `json:"filtered,omitempty"`
	Failures       []TickerFailure `json:"failures,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// ActionableBuys returns the buys that cleared the threshold
func (r *ScanResult) ActionableBuys() []BuySignal {
	out := make([]BuySignal, 0, len(r.Buys))
	for _, b := range r.Buys {
		if b.IsBuy {
			out = append(out, b)
		}
	}
	return out
}

// ActionableSells returns the sells that cleared the threshold
func (r *ScanResult) ActionableSells() []SellSignal {
	out := make([]SellSignal, 0, len(r.Sells))
	for _, s := range r.Sells {
		if s.IsSell {
			out = append(out, s)
		}
	}
	return out
}
