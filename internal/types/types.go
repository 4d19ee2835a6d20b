package types

// Bar is one OHLCV sample. Ts is epoch milliseconds.
type Bar struct {
	Ts     int64    `json:"ts"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume float64  `json:"volume"`
	Amount *float64 `json:"amount,omitempty"`
}

type Regime string

const (
	RegimeTrend Regime = "TREND"
	RegimeRange Regime = "RANGE"
	RegimePanic Regime = "PANIC"
)

// Regimes lists every regime in classification priority order.
var Regimes = []Regime{RegimePanic, RegimeTrend, RegimeRange}

func (r Regime) Valid() bool {
	for _, known := range Regimes {
		if r == known {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type StrategyID string

const (
	StrategyTSMOM         StrategyID = "TSMOM"
	StrategyMeanReversion StrategyID = "MEAN_REVERSION"
	StrategyRiskOff       StrategyID = "RISK_OFF"
)

type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe60m Timeframe = "60m"
	Timeframe1d  Timeframe = "1d"
)

// Intraday reports whether a realtime tape window exists for the timeframe.
func (tf Timeframe) Intraday() bool {
	return tf == Timeframe1m || tf == Timeframe5m
}

// NewsItem is the lite news projection consumed by the engine.
type NewsItem struct {
	Ts                  int64    `json:"ts"`
	Title               string   `json:"title"`
	Source              string   `json:"source,omitempty"`
	URL                 string   `json:"url,omitempty"`
	Content             string   `json:"content,omitempty"`
	FeedName            string   `json:"feedName,omitempty"`
	FeedID              string   `json:"feedId,omitempty"`
	MarketLinked        bool     `json:"marketLinked,omitempty"`
	SentimentScore      *float64 `json:"sentimentScore,omitempty"`
	SentimentConfidence *float64 `json:"sentimentConfidence,omitempty"`
	ImpactScore         *float64 `json:"impactScore,omitempty"`
	Region              string   `json:"region,omitempty"`
	EventType           string   `json:"eventType,omitempty"`
	Tags                []string `json:"tags,omitempty"`
}

// TapeSample is one realtime trade-tape aggregate for (instrument, timeframe).
type TapeSample struct {
	Ts             int64     `json:"ts"`
	Timeframe      Timeframe `json:"timeframe"`
	Volume         float64   `json:"volume"`
	Amount         float64   `json:"amount"`
	ExpectedVolume *float64  `json:"expectedVolume,omitempty"`
	ExpectedAmount *float64  `json:"expectedAmount,omitempty"`
	VolSurprise    *float64  `json:"volSurprise,omitempty"`
	AmtSurprise    *float64  `json:"amtSurprise,omitempty"`
}

type Scores struct {
	Trend float64 `json:"trend"`
	Range float64 `json:"range"`
	Panic float64 `json:"panic"`
}

type NewsSignalRef struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Ts         int64    `json:"ts"`
	Sources    []string `json:"sources,omitempty"`
	TopTitles  []string `json:"topTitles,omitempty"`
}

type RealtimeRef struct {
	VolSurprise *float64 `json:"volSurprise,omitempty"`
	AmtSurprise *float64 `json:"amtSurprise,omitempty"`
	Ts          int64    `json:"ts"`
}

type ExternalSignals struct {
	News     *NewsSignalRef `json:"news,omitempty"`
	Realtime *RealtimeRef   `json:"realtime,omitempty"`
}

// Decision is created once per evaluation and never mutated afterwards.
type Decision struct {
	Timestamp        int64              `json:"timestamp"`
	Owner            string             `json:"owner"`
	Instrument       string             `json:"instrument"`
	Timeframe        Timeframe          `json:"timeframe"`
	Regime           Regime             `json:"regime"`
	PriorRegime      Regime             `json:"prior_regime,omitempty"`
	RegimeConfidence float64            `json:"regime_confidence"`
	Strategy         StrategyID         `json:"strategy"`
	Action           Action             `json:"action"`
	Confidence       float64            `json:"confidence"`
	PositionCap      float64            `json:"position_cap"`
	FusedScore       float64            `json:"fused_score"`
	Scores           Scores             `json:"scores"`
	Metrics          map[string]float64 `json:"metrics"`
	ExternalSignals  ExternalSignals    `json:"external_signals"`
	Reasons          []string           `json:"reasons"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
