package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sepa/internal/alert"
	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/indicator"
	"github.com/newthinker/sepa/internal/pattern/catalog"
	"github.com/newthinker/sepa/internal/pattern/cup_handle"
	"github.com/newthinker/sepa/internal/pattern/double_bottom"
	"github.com/newthinker/sepa/internal/pattern/high_tight_flag"
	"github.com/newthinker/sepa/internal/pattern/stage"
	"github.com/newthinker/sepa/internal/pattern/trend_template"
	"github.com/newthinker/sepa/internal/pattern/vcp"
	"github.com/newthinker/sepa/internal/risk"
	"github.com/newthinker/sepa/internal/storage/archive"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SEPA_RISK_MAX_POSITIONS.
const EnvPrefix = "SEPA"

type Config struct {
	Backtest    BacktestConfig    `mapstructure:"backtest"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Indicators  IndicatorConfig   `mapstructure:"indicators"`
	Patterns    PatternsConfig    `mapstructure:"patterns"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Data        DataConfig        `mapstructure:"data"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Log         LogConfig         `mapstructure:"log"`
}

type BacktestConfig struct {
	InitialCapital       float64 `mapstructure:"initial_capital"`
	ConfidenceFloor      float64 `mapstructure:"confidence_floor"`
	Start                string  `mapstructure:"start"` // YYYY-MM-DD, empty for the first bar
	End                  string  `mapstructure:"end"`
	Workers              int     `mapstructure:"workers"`
	CorrelationThreshold float64 `mapstructure:"correlation_threshold"`
	CorrelationLookback  int     `mapstructure:"correlation_lookback"`
}

type RiskConfig struct {
	MaxPositions       int     `mapstructure:"max_positions"`
	PositionSizePct    float64 `mapstructure:"position_size_pct"`
	MaxRiskPerTradePct float64 `mapstructure:"max_risk_per_trade_pct"`
	MaxDrawdownPct     float64 `mapstructure:"max_drawdown_pct"`
	InitialStopPct     float64 `mapstructure:"initial_stop_pct"`
	TrailingTriggerPct float64 `mapstructure:"trailing_trigger_pct"`
	ATRMultiplier      float64 `mapstructure:"atr_multiplier"`
	TakeProfitPct      float64 `mapstructure:"take_profit_pct"`
}

type IndicatorConfig struct {
	SMAPeriods      []int `mapstructure:"sma_periods"`
	EMAPeriods      []int `mapstructure:"ema_periods"`
	RSIPeriod       int   `mapstructure:"rsi_period"`
	MACDFast        int   `mapstructure:"macd_fast"`
	MACDSlow        int   `mapstructure:"macd_slow"`
	MACDSignal      int   `mapstructure:"macd_signal"`
	ATRPeriod       int   `mapstructure:"atr_period"`
	HighLowWindow   int   `mapstructure:"high_low_window"`
	VolumePeriod    int   `mapstructure:"volume_period"`
	RSSmoothing     int   `mapstructure:"rs_smoothing"`
	RSNormalization int   `mapstructure:"rs_normalization"`
}

// PatternsConfig enables detectors by name and carries their thresholds.
type PatternsConfig struct {
	Enabled       []string            `mapstructure:"enabled"`
	TrendTemplate TrendTemplateConfig `mapstructure:"trend_template"`
	VCP           VCPConfig           `mapstructure:"vcp"`
	Stage         StageConfig         `mapstructure:"stage"`
	DoubleBottom  DoubleBottomConfig  `mapstructure:"double_bottom"`
	CupHandle     CupHandleConfig     `mapstructure:"cup_handle"`
	HighTightFlag HighTightFlagConfig `mapstructure:"high_tight_flag"`
}

type TrendTemplateConfig struct {
	ShortMA         int     `mapstructure:"short_ma"`
	MidMA           int     `mapstructure:"mid_ma"`
	LongMA          int     `mapstructure:"long_ma"`
	LongMATrendBars int     `mapstructure:"long_ma_trend_bars"`
	MinAboveLowPct  float64 `mapstructure:"min_above_low_pct"`
	MaxBelowHighPct float64 `mapstructure:"max_below_high_pct"`
	RSThreshold     float64 `mapstructure:"rs_threshold"`
	BaseConfidence  float64 `mapstructure:"base_confidence"`
	MaxRSBonus      float64 `mapstructure:"max_rs_bonus"`
}

type VCPConfig struct {
	PivotWindow     int     `mapstructure:"pivot_window"`
	Tolerance       float64 `mapstructure:"tolerance"`
	MinContractions int     `mapstructure:"min_contractions"`
	MaxContractions int     `mapstructure:"max_contractions"`
	Lookback        int     `mapstructure:"lookback"`
	MinBars         int     `mapstructure:"min_bars"`
}

type StageConfig struct {
	MAPeriod      int     `mapstructure:"ma_period"`
	SlopeBars     int     `mapstructure:"slope_bars"`
	FlatPct       float64 `mapstructure:"flat_pct"`
	PivotWindow   int     `mapstructure:"pivot_window"`
	PivotLookback int     `mapstructure:"pivot_lookback"`
}

type DoubleBottomConfig struct {
	MaxLowDiffPct float64 `mapstructure:"max_low_diff_pct"`
	MinSeparation int     `mapstructure:"min_separation"`
	MaxSeparation int     `mapstructure:"max_separation"`
	PivotWindow   int     `mapstructure:"pivot_window"`
	Lookback      int     `mapstructure:"lookback"`
}

type CupHandleConfig struct {
	MinDepthPct   float64 `mapstructure:"min_depth_pct"`
	MaxDepthPct   float64 `mapstructure:"max_depth_pct"`
	MinLength     int     `mapstructure:"min_length"`
	MaxLength     int     `mapstructure:"max_length"`
	MaxRimDiffPct float64 `mapstructure:"max_rim_diff_pct"`
	MinHandleBars int     `mapstructure:"min_handle_bars"`
	PivotWindow   int     `mapstructure:"pivot_window"`
}

type HighTightFlagConfig struct {
	MinPoleGainPct  float64 `mapstructure:"min_pole_gain_pct"`
	MinPoleBars     int     `mapstructure:"min_pole_bars"`
	MaxPoleBars     int     `mapstructure:"max_pole_bars"`
	MaxFlagDepthPct float64 `mapstructure:"max_flag_depth_pct"`
	MinFlagBars     int     `mapstructure:"min_flag_bars"`
	MaxFlagBars     int     `mapstructure:"max_flag_bars"`
}

type PerformanceConfig struct {
	RiskFreeRatePct float64 `mapstructure:"risk_free_rate_pct"`
	PeriodsPerYear  float64 `mapstructure:"periods_per_year"`
}

// DataConfig locates the price files. Each symbol is read from
// <dir>/<SYMBOL>.csv.
type DataConfig struct {
	Dir       string   `mapstructure:"dir"`
	Benchmark string   `mapstructure:"benchmark"`
	Symbols   []string `mapstructure:"symbols"`
	YahooURL  string   `mapstructure:"yahoo_url"` // fetch source, empty for the public endpoint
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"` // node_exporter textfile target
}

// AlertsConfig holds rules checked against the metrics of each run.
type AlertsConfig struct {
	Rules          []alert.Rule  `mapstructure:"rules"`
	FailOnCritical bool          `mapstructure:"fail_on_critical"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig posts firing alerts when URL is set.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from file over Defaults. Keys absent from the
// file keep their default value.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults mirrors the defaults of every package the config feeds.
func Defaults() *Config {
	bt := backtest.DefaultConfig()
	rk := risk.DefaultConfig()
	ind := indicator.DefaultParams()
	pat := catalog.DefaultConfig()

	return &Config{
		Backtest: BacktestConfig{
			InitialCapital:       bt.InitialCapital,
			ConfidenceFloor:      bt.ConfidenceFloor,
			CorrelationThreshold: bt.CorrelationThreshold,
			CorrelationLookback:  bt.CorrelationLookback,
		},
		Risk: RiskConfig{
			MaxPositions:       rk.MaxPositions,
			PositionSizePct:    rk.PositionSizePct,
			MaxRiskPerTradePct: rk.MaxRiskPerTradePct,
			MaxDrawdownPct:     rk.MaxDrawdownPct,
			InitialStopPct:     rk.InitialStopPct,
			TrailingTriggerPct: rk.TrailingTriggerPct,
			ATRMultiplier:      rk.ATRMultiplier,
			TakeProfitPct:      rk.TakeProfitPct,
		},
		Indicators: IndicatorConfig{
			SMAPeriods:      ind.SMAPeriods,
			EMAPeriods:      ind.EMAPeriods,
			RSIPeriod:       ind.RSIPeriod,
			MACDFast:        ind.MACDFast,
			MACDSlow:        ind.MACDSlow,
			MACDSignal:      ind.MACDSignal,
			ATRPeriod:       ind.ATRPeriod,
			HighLowWindow:   ind.HighLowWindow,
			VolumePeriod:    ind.VolumePeriod,
			RSSmoothing:     ind.RSSmoothing,
			RSNormalization: ind.RSNormalization,
		},
		Patterns: PatternsConfig{
			Enabled:       pat.Enabled,
			TrendTemplate: TrendTemplateConfig(pat.TrendTemplate),
			VCP:           VCPConfig(pat.VCP),
			Stage:         StageConfig(pat.Stage),
			DoubleBottom:  DoubleBottomConfig(pat.DoubleBottom),
			CupHandle:     CupHandleConfig(pat.CupHandle),
			HighTightFlag: HighTightFlagConfig(pat.HighTightFlag),
		},
		Performance: PerformanceConfig{
			RiskFreeRatePct: bt.Stats.RiskFreeRatePct,
			PeriodsPerYear:  bt.Stats.PeriodsPerYear,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "runs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Engine converts the strategy sections into the engine configuration.
func (c *Config) Engine() backtest.Config {
	return backtest.Config{
		InitialCapital:  c.Backtest.InitialCapital,
		ConfidenceFloor: c.Backtest.ConfidenceFloor,
		Risk:            risk.Config(c.Risk),
		Indicators: indicator.Params{
			SMAPeriods:      c.Indicators.SMAPeriods,
			EMAPeriods:      c.Indicators.EMAPeriods,
			RSIPeriod:       c.Indicators.RSIPeriod,
			MACDFast:        c.Indicators.MACDFast,
			MACDSlow:        c.Indicators.MACDSlow,
			MACDSignal:      c.Indicators.MACDSignal,
			ATRPeriod:       c.Indicators.ATRPeriod,
			HighLowWindow:   c.Indicators.HighLowWindow,
			VolumePeriod:    c.Indicators.VolumePeriod,
			RSSmoothing:     c.Indicators.RSSmoothing,
			RSNormalization: c.Indicators.RSNormalization,
		},
		Stats: backtest.StatsConfig{
			RiskFreeRatePct: c.Performance.RiskFreeRatePct,
			PeriodsPerYear:  c.Performance.PeriodsPerYear,
		},
		CorrelationThreshold: c.Backtest.CorrelationThreshold,
		CorrelationLookback:  c.Backtest.CorrelationLookback,
	}
}

// Catalog converts the patterns section.
func (c *Config) Catalog() catalog.Config {
	p := c.Patterns
	return catalog.Config{
		Enabled:       p.Enabled,
		TrendTemplate: trend_template.Config(p.TrendTemplate),
		VCP:           vcp.Config(p.VCP),
		Stage:         stage.Config(p.Stage),
		DoubleBottom:  double_bottom.Config(p.DoubleBottom),
		CupHandle:     cup_handle.Config(p.CupHandle),
		HighTightFlag: high_tight_flag.Config(p.HighTightFlag),
	}
}

// Range parses the backtest window. Empty bounds are returned as zero times.
func (c *Config) Range() (start, end time.Time, err error) {
	if start, err = parseDate("backtest.start", c.Backtest.Start); err != nil {
		return
	}
	end, err = parseDate("backtest.end", c.Backtest.End)
	return
}

func parseDate(key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(core.DateLayout, value)
	if err != nil {
		return time.Time{}, core.Errorf(core.ErrConfigInvalid, "%s: %v", key, err)
	}
	return t, nil
}

// ArchiveBackend converts the archive section. An empty type disables archiving.
func (c *Config) ArchiveBackend() archive.Config {
	return archive.Config{
		Type: c.Archive.Type,
		Path: c.Archive.Path,
		S3:   archive.S3Config(c.Archive.S3),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Engine().Validate(); err != nil {
		return err
	}
	if _, err := catalog.Build(c.Catalog()); err != nil {
		return err
	}
	start, end, err := c.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backtest.end %s is before backtest.start %s", c.Backtest.End, c.Backtest.Start))
	}
	if c.Backtest.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("workers cannot be negative, got %d", c.Backtest.Workers))
	}

	switch c.Archive.Type {
	case "":
	case "localfs":
		if c.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.path required when type is localfs"))
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive.s3.bucket required when type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	for _, rule := range c.Alerts.Rules {
		if err := rule.Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alerts: %w", err))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	return nil
}
