package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidConfig = errors.New("invalid strategy config")
	ErrNotFound      = errors.New("not found")
)

type Weights struct {
	Trend    float64 `json:"w_trend" default:"0.6" validate:"finite,gte=0,lte=1"`
	Range    float64 `json:"w_range" default:"0.4" validate:"finite,gte=0,lte=1"`
	Panic    float64 `json:"w_panic" default:"0.9" validate:"finite,gte=0,lte=1"`
	News     float64 `json:"w_news" default:"0.4" validate:"finite,gte=0,lte=1"`
	Realtime float64 `json:"w_realtime" default:"0.6" validate:"finite,gte=0,lte=1"`
}

type Thresholds struct {
	TrendScoreThreshold     float64  `json:"trendScoreThreshold" default:"0.6" validate:"finite,gte=0,lte=1"`
	PanicVolRatio           float64  `json:"panicVolRatio" default:"2.2" validate:"finite,gte=0.1,lte=10"`
	PanicDrawdown           float64  `json:"panicDrawdown" default:"0.08" validate:"finite,gte=0,lte=1"`
	VolRatioLow             float64  `json:"volRatioLow" default:"0.6" validate:"finite,gte=0,lte=5"`
	VolRatioHigh            float64  `json:"volRatioHigh" default:"1.6" validate:"finite,gte=0,lte=10"`
	MinLiquidityAmountRatio float64  `json:"minLiquidityAmountRatio" default:"0.3" validate:"finite,gte=0,lte=5"`
	MinLiquidityVolumeRatio *float64 `json:"minLiquidityVolumeRatio,omitempty" validate:"omitempty,finite,gte=0,lte=5"`
	RealtimeVolSurprise     float64  `json:"realtimeVolSurprise" default:"0.8" validate:"finite,gte=0,lte=10"`
	RealtimeAmtSurprise     float64  `json:"realtimeAmtSurprise" default:"0.8" validate:"finite,gte=0,lte=10"`
	NewsPanicThreshold      float64  `json:"newsPanicThreshold" default:"0.35" validate:"finite,gte=0,lte=1"`
	NewsTrendThreshold      float64  `json:"newsTrendThreshold" default:"0.35" validate:"finite,gte=0,lte=1"`
	HysteresisThreshold     float64  `json:"hysteresisThreshold" default:"0.15" validate:"finite,gte=0,lte=1"`
}

// VolumeLiquidityFloor is the volume-ratio floor of the liquidity veto. It
// falls back to the amount floor when no volume floor is configured.
func (t Thresholds) VolumeLiquidityFloor() float64 {
	if t.MinLiquidityVolumeRatio != nil {
		return *t.MinLiquidityVolumeRatio
	}
	return t.MinLiquidityAmountRatio
}

type PositionCaps struct {
	Trend float64 `json:"trend" default:"1" validate:"finite,gte=0,lte=1"`
	Range float64 `json:"range" default:"0.5" validate:"finite,gte=0,lte=1"`
	Panic float64 `json:"panic" default:"0.2" validate:"finite,gte=0,lte=1"`
}

// StrategyConfig is a value type: every mutation returns a new copy.
type StrategyConfig struct {
	Owner        string       `json:"owner" validate:"required"`
	Instrument   string       `json:"instrument" validate:"required"`
	Weights      Weights      `json:"weights"`
	Thresholds   Thresholds   `json:"thresholds"`
	PositionCaps PositionCaps `json:"positionCaps"`
}

// DefaultStrategyConfig builds a fresh default config for (owner, instrument).
func DefaultStrategyConfig(owner, instrument string) StrategyConfig {
	cfg := StrategyConfig{Owner: owner, Instrument: instrument}
	if err := defaults.Set(&cfg); err != nil {
		// tags are static; a failure here is a programming error
		panic(fmt.Sprintf("store: default strategy config: %v", err))
	}
	return cfg
}

type WeightsPatch struct {
	Trend    *float64 `json:"w_trend,omitempty"`
	Range    *float64 `json:"w_range,omitempty"`
	Panic    *float64 `json:"w_panic,omitempty"`
	News     *float64 `json:"w_news,omitempty"`
	Realtime *float64 `json:"w_realtime,omitempty"`
}

type ThresholdsPatch struct {
	TrendScoreThreshold     *float64 `json:"trendScoreThreshold,omitempty"`
	PanicVolRatio           *float64 `json:"panicVolRatio,omitempty"`
	PanicDrawdown           *float64 `json:"panicDrawdown,omitempty"`
	VolRatioLow             *float64 `json:"volRatioLow,omitempty"`
	VolRatioHigh            *float64 `json:"volRatioHigh,omitempty"`
	MinLiquidityAmountRatio *float64 `json:"minLiquidityAmountRatio,omitempty"`
	MinLiquidityVolumeRatio *float64 `json:"minLiquidityVolumeRatio,omitempty"`
	RealtimeVolSurprise     *float64 `json:"realtimeVolSurprise,omitempty"`
	RealtimeAmtSurprise     *float64 `json:"realtimeAmtSurprise,omitempty"`
	NewsPanicThreshold      *float64 `json:"newsPanicThreshold,omitempty"`
	NewsTrendThreshold      *float64 `json:"newsTrendThreshold,omitempty"`
	HysteresisThreshold     *float64 `json:"hysteresisThreshold,omitempty"`

	// legacy names
	TrendScore        *float64 `json:"trendScore,omitempty"`
	MinLiquidityRatio *float64 `json:"minLiquidityRatio,omitempty"`
}

// migrate moves legacy fields onto their current names. The current name
// wins when both are present.
func (p *ThresholdsPatch) migrate() {
	if p.TrendScoreThreshold == nil && p.TrendScore != nil {
		p.TrendScoreThreshold = p.TrendScore
	}
	if p.MinLiquidityAmountRatio == nil && p.MinLiquidityRatio != nil {
		p.MinLiquidityAmountRatio = p.MinLiquidityRatio
	}
	p.TrendScore = nil
	p.MinLiquidityRatio = nil
}

type PositionCapsPatch struct {
	Trend *float64 `json:"trend,omitempty"`
	Range *float64 `json:"range,omitempty"`
	Panic *float64 `json:"panic,omitempty"`
}

// ConfigPatch is a merge-patch: nil fields leave the current value alone.
type ConfigPatch struct {
	Weights      *WeightsPatch      `json:"weights,omitempty"`
	Thresholds   *ThresholdsPatch   `json:"thresholds,omitempty"`
	PositionCaps *PositionCapsPatch `json:"positionCaps,omitempty"`
}

func set(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// Apply returns c with p merged in, or an error when the result is invalid.
// c itself is never modified.
func (c StrategyConfig) Apply(p ConfigPatch) (StrategyConfig, error) {
	out := c
	if c.Thresholds.MinLiquidityVolumeRatio != nil {
		v := *c.Thresholds.MinLiquidityVolumeRatio
		out.Thresholds.MinLiquidityVolumeRatio = &v
	}
	if w := p.Weights; w != nil {
		set(&out.Weights.Trend, w.Trend)
		set(&out.Weights.Range, w.Range)
		set(&out.Weights.Panic, w.Panic)
		set(&out.Weights.News, w.News)
		set(&out.Weights.Realtime, w.Realtime)
	}
	if p.Thresholds != nil {
		t := *p.Thresholds
		t.migrate()
		th := &out.Thresholds
		set(&th.TrendScoreThreshold, t.TrendScoreThreshold)
		set(&th.PanicVolRatio, t.PanicVolRatio)
		set(&th.PanicDrawdown, t.PanicDrawdown)
		set(&th.VolRatioLow, t.VolRatioLow)
		set(&th.VolRatioHigh, t.VolRatioHigh)
		set(&th.MinLiquidityAmountRatio, t.MinLiquidityAmountRatio)
		if t.MinLiquidityVolumeRatio != nil {
			v := *t.MinLiquidityVolumeRatio
			th.MinLiquidityVolumeRatio = &v
		}
		set(&th.RealtimeVolSurprise, t.RealtimeVolSurprise)
		set(&th.RealtimeAmtSurprise, t.RealtimeAmtSurprise)
		set(&th.NewsPanicThreshold, t.NewsPanicThreshold)
		set(&th.NewsTrendThreshold, t.NewsTrendThreshold)
		set(&th.HysteresisThreshold, t.HysteresisThreshold)
	}
	if pc := p.PositionCaps; pc != nil {
		set(&out.PositionCaps.Trend, pc.Trend)
		set(&out.PositionCaps.Range, pc.Range)
		set(&out.PositionCaps.Panic, pc.Panic)
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// LoadStrategyConfig reads a stored document, which may use legacy field
// names, and merges it onto fresh defaults.
func LoadStrategyConfig(raw []byte, owner, instrument string) (StrategyConfig, error) {
	base := DefaultStrategyConfig(owner, instrument)
	if len(raw) == 0 {
		return base, nil
	}
	var p ConfigPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return StrategyConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return base.Apply(p)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

func (c StrategyConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "finite":
		return fmt.Sprintf("%s must be a finite number", field)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
