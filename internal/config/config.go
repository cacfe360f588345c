package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	AdminKey         string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	NotifyWebhookURL string        `mapstructure:"NOTIFY_WEBHOOK_URL"`
	RabbitURL        string        `mapstructure:"RABBITMQ_URL"`
	RabbitExchange   string        `mapstructure:"RABBITMQ_EXCHANGE"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	SweepLockTTL     time.Duration `mapstructure:"SWEEP_LOCK_TTL"`
	ClassifierURL    string        `mapstructure:"CLASSIFIER_URL"`
	ManagerEmail     string        `mapstructure:"MANAGER_EMAIL"`

	Policy Policy `mapstructure:",squash"`
}

// Policy holds every weight, threshold and window the dispatch engines use.
// It is copied into the engine at construction and never mutated afterwards.
type Policy struct {
	AvailableWeight      float64 `mapstructure:"SCORE_AVAILABLE_WEIGHT"`
	BuildingMatchWeight  float64 `mapstructure:"SCORE_BUILDING_WEIGHT"`
	TradeMatchWeight     float64 `mapstructure:"SCORE_TRADE_WEIGHT"`
	LowWorkloadWeight    float64 `mapstructure:"SCORE_LOW_WORKLOAD_WEIGHT"`
	MaxActiveAssignments int     `mapstructure:"MAX_ACTIVE_ASSIGNMENTS"`

	DuplicateWindow time.Duration `mapstructure:"DUPLICATE_WINDOW"`
	UpvoteWeight    float64       `mapstructure:"UPVOTE_WEIGHT"`
	SafetyBonus     float64       `mapstructure:"SAFETY_BONUS"`

	UnassignedCriticalAfter time.Duration `mapstructure:"UNASSIGNED_CRITICAL_AFTER"`
	UnassignedHighAfter     time.Duration `mapstructure:"UNASSIGNED_HIGH_AFTER"`
	UnassignedDefaultAfter  time.Duration `mapstructure:"UNASSIGNED_DEFAULT_AFTER"`
	UnacceptedCriticalAfter time.Duration `mapstructure:"UNACCEPTED_CRITICAL_AFTER"`
	UnacceptedDefaultAfter  time.Duration `mapstructure:"UNACCEPTED_DEFAULT_AFTER"`
	StaleInProgressAfter    time.Duration `mapstructure:"STALE_IN_PROGRESS_AFTER"`

	BatchWindow        time.Duration `mapstructure:"BATCH_WINDOW"`
	PatternWindow      time.Duration `mapstructure:"PATTERN_WINDOW"`
	PatternThreshold   int           `mapstructure:"PATTERN_THRESHOLD"`
	PreventiveCooldown time.Duration `mapstructure:"PREVENTIVE_COOLDOWN"`
}

func DefaultPolicy() Policy {
	return Policy{
		AvailableWeight:      10,
		BuildingMatchWeight:  5,
		TradeMatchWeight:     5,
		LowWorkloadWeight:    2,
		MaxActiveAssignments: 3,

		DuplicateWindow: 7 * 24 * time.Hour,
		UpvoteWeight:    1.5,
		SafetyBonus:     3,

		UnassignedCriticalAfter: 15 * time.Minute,
		UnassignedHighAfter:     30 * time.Minute,
		UnassignedDefaultAfter:  60 * time.Minute,
		UnacceptedCriticalAfter: 10 * time.Minute,
		UnacceptedDefaultAfter:  30 * time.Minute,
		StaleInProgressAfter:    4 * time.Hour,

		BatchWindow:        24 * time.Hour,
		PatternWindow:      90 * 24 * time.Hour,
		PatternThreshold:   3,
		PreventiveCooldown: 30 * 24 * time.Hour,
	}
}

// Validate rejects negative score weights and non-positive thresholds,
// windows and counts. A zero weight switches that scoring factor off.
func (p Policy) Validate() error {
	var errs []error
	if p.AvailableWeight < 0 || p.BuildingMatchWeight < 0 || p.TradeMatchWeight < 0 || p.LowWorkloadWeight < 0 {
		errs = append(errs, errors.New("score weights must not be negative"))
	}
	if p.MaxActiveAssignments <= 0 {
		errs = append(errs, errors.New("MAX_ACTIVE_ASSIGNMENTS must be positive"))
	}
	if p.PatternThreshold <= 0 {
		errs = append(errs, errors.New("PATTERN_THRESHOLD must be positive"))
	}
	windows := map[string]time.Duration{
		"DUPLICATE_WINDOW":          p.DuplicateWindow,
		"UNASSIGNED_CRITICAL_AFTER": p.UnassignedCriticalAfter,
		"UNASSIGNED_HIGH_AFTER":     p.UnassignedHighAfter,
		"UNASSIGNED_DEFAULT_AFTER":  p.UnassignedDefaultAfter,
		"UNACCEPTED_CRITICAL_AFTER": p.UnacceptedCriticalAfter,
		"UNACCEPTED_DEFAULT_AFTER":  p.UnacceptedDefaultAfter,
		"STALE_IN_PROGRESS_AFTER":   p.StaleInProgressAfter,
		"BATCH_WINDOW":              p.BatchWindow,
		"PATTERN_WINDOW":            p.PatternWindow,
		"PREVENTIVE_COOLDOWN":       p.PreventiveCooldown,
	}
	for key, d := range windows {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	return errors.Join(errs...)
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "dispatch.notifications")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SWEEP_LOCK_TTL", "5m")
	v.SetDefault("CLASSIFIER_URL", "")
	v.SetDefault("MANAGER_EMAIL", "facilities-manager@campus.example")
	setPolicyDefaults(v, DefaultPolicy())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid dispatch policy: %w", err)
	}
	return cfg, nil
}

// Defaults have to be registered key by key, otherwise AutomaticEnv never
// sees the policy keys during Unmarshal.
func setPolicyDefaults(v *viper.Viper, p Policy) {
	v.SetDefault("SCORE_AVAILABLE_WEIGHT", p.AvailableWeight)
	v.SetDefault("SCORE_BUILDING_WEIGHT", p.BuildingMatchWeight)
	v.SetDefault("SCORE_TRADE_WEIGHT", p.TradeMatchWeight)
	v.SetDefault("SCORE_LOW_WORKLOAD_WEIGHT", p.LowWorkloadWeight)
	v.SetDefault("MAX_ACTIVE_ASSIGNMENTS", p.MaxActiveAssignments)
	v.SetDefault("DUPLICATE_WINDOW", p.DuplicateWindow.String())
	v.SetDefault("UPVOTE_WEIGHT", p.UpvoteWeight)
	v.SetDefault("SAFETY_BONUS", p.SafetyBonus)
	v.SetDefault("UNASSIGNED_CRITICAL_AFTER", p.UnassignedCriticalAfter.String())
	v.SetDefault("UNASSIGNED_HIGH_AFTER", p.UnassignedHighAfter.String())
	v.SetDefault("UNASSIGNED_DEFAULT_AFTER", p.UnassignedDefaultAfter.String())
	v.SetDefault("UNACCEPTED_CRITICAL_AFTER", p.UnacceptedCriticalAfter.String())
	v.SetDefault("UNACCEPTED_DEFAULT_AFTER", p.UnacceptedDefaultAfter.String())
	v.SetDefault("STALE_IN_PROGRESS_AFTER", p.StaleInProgressAfter.String())
	v.SetDefault("BATCH_WINDOW", p.BatchWindow.String())
	v.SetDefault("PATTERN_WINDOW", p.PatternWindow.String())
	v.SetDefault("PATTERN_THRESHOLD", p.PatternThreshold)
	v.SetDefault("PREVENTIVE_COOLDOWN", p.PreventiveCooldown.String())
}
