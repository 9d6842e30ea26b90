package contracts

import "fmt"

// Phase is the Weinstein market stage of a ticker
type Phase int

const (
	PhaseUnknown          Phase = -1 // no previous classification
	PhaseInsufficientData Phase = 0
	PhaseBaseBuilding     Phase = 1
	PhaseUptrend          Phase = 2
	PhaseDistribution     Phase = 3
	PhaseDowntrend        Phase = 4
)

var phaseNames = map[Phase]string{
	PhaseUnknown:          "Unknown",
	PhaseInsufficientData: "Insufficient Data",
	PhaseBaseBuilding:     "Base Building",
	PhaseUptrend:          "Uptrend/Breakout",
	PhaseDistribution:     "Distribution/Top",
	PhaseDowntrend:        "Downtrend",
}

// Name returns the human readable phase name
func (p Phase) Name() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase %d", int(p))
}

func (p Phase) String() string {
	return fmt.Sprintf("Phase %d", int(p))
}

// VolatilityContraction describes whether recent volatility is shrinking
// relative to the preceding window.
type VolatilityContraction struct {
	IsContracting      bool    `json:"is_contracting"`
	ContractionQuality float64 `json:"contraction_quality"` // 0-100
	CurrentVolatility  float64 `json:"current_volatility"`
	ContractionRatio   float64 `json:"contraction_ratio"`
}

// PhaseInfo is the classifier output. Averages and distances are rounded to
// 2 decimals, slopes to 4.
type PhaseInfo struct {
	Phase      Phase    `json:"phase"`
	PhaseName  string   `json:"phase_name"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`

	CurrentPrice float64 `json:"current_price"`
	SMA50        float64 `json:"sma_50"`
	SMA150       float64 `json:"sma_150"`
	SMA200       float64 `json:"sma_200"`
	Slope50      float64 `json:"slope_50"`
	Slope200     float64 `json:"slope_200"`

	DistanceFrom50SMA  float64 `json:"distance_from_50sma"`
	DistanceFrom200SMA float64 `json:"distance_from_200sma"`

	Week52High float64 `json:"week_52_high"`
	Week52Low  float64 `json:"week_52_low"`

	VolumeRatio float64               `json:"volume_ratio"`
	Volatility  VolatilityContraction `json:"volatility"`
}

// BreakoutType names the level a breakout cleared
type BreakoutType string

const (
	BreakoutNone  BreakoutType = ""
	BreakoutBase  BreakoutType = "Base Breakout"
	BreakoutPivot BreakoutType = "Pivot Breakout"
	BreakoutSMA50 BreakoutType = "50 SMA Breakout"
)

// BreakoutInfo is the breakout detector output
type BreakoutInfo struct {
	IsBreakout    bool         `json:"is_breakout"`
	BreakoutLevel *float64     `json:"breakout_level,omitempty"`
	BreakoutType  BreakoutType `json:"breakout_type,omitempty"`
}

// TrendTemplateCriteria holds each criterion of the trend template plus the
// two 52-week percentages behind criteria 6 and 7.
type TrendTemplateCriteria struct {
	PriceAboveSMA150And200 bool `json:"price_above_150_200"`
	SMA150AboveSMA200      bool `json:"sma150_above_sma200"`
	SMA200Rising           bool `json:"sma200_rising"`
	SMA50AboveSMA150       bool `json:"sma50_above_sma150"`
	PriceAboveSMA50        bool `json:"price_above_sma50"`
	AboveWeek52Low         bool `json:"above_52w_low"`
	NearWeek52High         bool `json:"near_52w_high"`
	InUptrendPhase         bool `json:"in_uptrend_phase"`

	PctAboveWeek52Low float64 `json:"pct_above_52w_low"`
	PctFromWeek52High float64 `json:"pct_from_52w_high"`
}

// Passed returns the number of satisfied criteria
func (c TrendTemplateCriteria) Passed() int {
	n := 0
	for _, ok := range []bool{
		c.PriceAboveSMA150And200,
		c.SMA150AboveSMA200,
		c.SMA200Rising,
		c.SMA50AboveSMA150,
		c.PriceAboveSMA50,
		c.AboveWeek52Low,
		c.NearWeek52High,
		c.InUptrendPhase,
	} {
		if ok {
			n++
		}
	}
	return n
}

// TrendTemplateResult is the eight-point trend template checklist
type TrendTemplateResult struct {
	PassesTemplate  bool                  `json:"passes_template"`
	CriteriaPassed  int                   `json:"criteria_passed"`
	TemplateScore   float64               `json:"template_score"`
	CriteriaDetails TrendTemplateCriteria `json:"criteria_details"`
}
