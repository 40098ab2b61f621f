package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"btc-signal-bot/internal/types"
)

var validate = validator.New()

// PeriodConfig holds the per-timeframe indicator parameters.
type PeriodConfig struct {
	SMAPeriod int     `yaml:"sma_period" default:"20" validate:"gt=1"`
	RSIPeriod int     `yaml:"rsi_period" default:"14" validate:"gt=1"`
	RSIBuy    float64 `yaml:"rsi_buy" default:"30" validate:"gt=0,lt=100"`
	RSISell   float64 `yaml:"rsi_sell" default:"70" validate:"gt=0,lt=100"`
}

type Weights struct {
	EMACross      float64 `yaml:"ema_cross" default:"3"`
	RSIExtreme    float64 `yaml:"rsi_extreme" default:"4"`
	KDJCross      float64 `yaml:"kdj_cross" default:"2"`
	EMATrend      float64 `yaml:"ema_trend" default:"1"`
	OrderBook     float64 `yaml:"order_book" default:"2"`
	FNGExtreme    float64 `yaml:"fng_extreme" default:"2"`
	FNGNormal     float64 `yaml:"fng_normal" default:"1"`
	NewsSentiment float64 `yaml:"news_sentiment" default:"5"`
}

type Thresholds struct {
	// Decision ladder. Strong must stay above Normal; violating the
	// ordering is rejected at load time, never mid-score.
	Normal float64 `yaml:"normal" default:"5" validate:"gt=0"`
	Strong float64 `yaml:"strong" default:"10" validate:"gt=0"`

	FNGExtremeLow  float64 `yaml:"fng_extreme_low" default:"30"`
	FNGLow         float64 `yaml:"fng_low" default:"45"`
	FNGHigh        float64 `yaml:"fng_high" default:"55"`
	FNGExtremeHigh float64 `yaml:"fng_extreme_high" default:"75"`

	OrderBookBuyRatio  float64 `yaml:"order_book_buy_ratio" default:"1.5"`
	OrderBookSellRatio float64 `yaml:"order_book_sell_ratio" default:"0.7"`
}

type LLMConfig struct {
	Enabled         bool     `yaml:"enabled" default:"true"`
	Models          []string `yaml:"models" default:"[\"compound-beta\",\"compound-beta-mini\",\"llama-3.1-8b-instant\"]"`
	KeyPrefix       string   `yaml:"key_prefix" default:"GROQ_API_KEY_"`
	CooldownSeconds int      `yaml:"cooldown_seconds" default:"30" validate:"gt=0"`
	StateFile       string   `yaml:"state_file" default:"llm_api_state.json"`
	Temperature     float64  `yaml:"temperature" default:"0.7"`
	MaxTokens       int      `yaml:"max_tokens" default:"300"`
	TimeoutSeconds  int      `yaml:"timeout_seconds" default:"45"`
}

type NewsConfig struct {
	Enabled  bool   `yaml:"enabled" default:"true"`
	Symbols  string `yaml:"symbols" default:"BTC"`
	MaxItems int    `yaml:"max_items" default:"3"`
}

type Config struct {
	Symbol     string            `yaml:"symbol" default:"BTCUSDT"`
	Timeframes []types.Timeframe `yaml:"timeframes" default:"[\"15m\",\"4h\",\"1d\"]"`
	// Timeframes whose EMA alignment counts as a trend signal. Short
	// intervals whipsaw too much for alignment to mean anything.
	TrendTimeframes []types.Timeframe `yaml:"trend_timeframes" default:"[\"4h\",\"1d\"]"`
	KlineLimit      int               `yaml:"kline_limit" default:"100" validate:"gt=2"`

	Periods          map[types.Timeframe]PeriodConfig `yaml:"periods"`
	TimeframeWeights map[types.Timeframe]float64      `yaml:"timeframe_weights" default:"{\"15m\":1.0,\"4h\":1.5,\"1d\":2.0}"`

	Weights    Weights    `yaml:"weights"`
	Thresholds Thresholds `yaml:"thresholds"`
	LLM        LLMConfig  `yaml:"llm"`
	News       NewsConfig `yaml:"news"`

	Feishu struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"feishu"`
}

// Load reads, defaults, and validates the configuration. Secrets may
// override the file through environment variables.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the documented default configuration, used when no
// config file is present.
func Default() (*Config, error) {
	var c Config
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) finalize() error {
	if err := defaults.Set(c); err != nil {
		return err
	}

	// defaults.Set cannot invent map entries per configured timeframe.
	if c.Periods == nil {
		c.Periods = make(map[types.Timeframe]PeriodConfig, len(c.Timeframes))
	}
	for _, tf := range c.Timeframes {
		p := c.Periods[tf]
		if err := defaults.Set(&p); err != nil {
			return err
		}
		c.Periods[tf] = p
	}
	for _, tf := range c.Timeframes {
		if _, ok := c.TimeframeWeights[tf]; !ok {
			c.TimeframeWeights[tf] = 1.0
		}
	}

	if v := os.Getenv("FEISHU_WEBHOOK_URL"); v != "" {
		c.Feishu.WebhookURL = v
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return c.Validate()
}

// Validate covers the cross-field rules the tag validators cannot express.
func (c *Config) Validate() error {
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("timeframes cannot be empty")
	}
	if c.Thresholds.Strong <= c.Thresholds.Normal {
		return fmt.Errorf("thresholds.strong (%.2f) must be greater than thresholds.normal (%.2f)",
			c.Thresholds.Strong, c.Thresholds.Normal)
	}
	if c.Thresholds.FNGExtremeLow >= c.Thresholds.FNGExtremeHigh {
		return fmt.Errorf("fng_extreme_low (%.0f) must be below fng_extreme_high (%.0f)",
			c.Thresholds.FNGExtremeLow, c.Thresholds.FNGExtremeHigh)
	}
	for _, tf := range c.Timeframes {
		p := c.Periods[tf]
		if p.RSIBuy >= p.RSISell {
			return fmt.Errorf("periods[%s]: rsi_buy (%.1f) must be below rsi_sell (%.1f)", tf, p.RSIBuy, p.RSISell)
		}
	}
	return nil
}

// TimeframeWeight returns the configured multiplier for tf, defaulting
// to 1 for unknown timeframes.
func (c *Config) TimeframeWeight(tf types.Timeframe) float64 {
	if w, ok := c.TimeframeWeights[tf]; ok {
		return w
	}
	return 1.0
}

// DailyWeight is the multiplier applied to daily-scale sentiment terms.
// The fear & greed index reflects daily market mood, so its contribution
// scales with the daily timeframe weight.
func (c *Config) DailyWeight() float64 {
	if w, ok := c.TimeframeWeights[types.Timeframe1d]; ok {
		return w
	}
	return 2.0
}

// IsTrendTimeframe reports whether EMA alignment is scored for tf.
func (c *Config) IsTrendTimeframe(tf types.Timeframe) bool {
	for _, t := range c.TrendTimeframes {
		if t == tf {
			return true
		}
	}
	return false
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.LLM.CooldownSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}
