package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	SMTP      SMTPConfig       `mapstructure:"smtp"`
	Triage    TriageConfig     `mapstructure:"triage"`
	Operators []OperatorConfig `mapstructure:"operators"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	From        string `mapstructure:"from"`
	OnCallEmail string `mapstructure:"on_call_email"`
}

type OperatorConfig struct {
	ID           string `mapstructure:"id"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// TriageConfig carries every policy value of the triage core. Weights and
// thresholds are hospital policy knobs; Default() provides a complete set so
// a config file only needs to override.
type TriageConfig struct {
	Vitals      VitalsConfig       `mapstructure:"vitals"`
	Departments []DepartmentConfig `mapstructure:"departments"`
	Routing     RoutingConfig      `mapstructure:"routing"`
	Scoring     ScoringConfig      `mapstructure:"scoring"`
	Queue       QueueConfig        `mapstructure:"queue"`
}

type Limits struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// VitalsConfig holds hard physiological limits (violations reject the
// intake) and the alert bands (outside-normal values raise non-fatal alerts).
type VitalsConfig struct {
	HeartRate       Limits `mapstructure:"heart_rate"`
	SystolicBP      Limits `mapstructure:"blood_pressure_systolic"`
	DiastolicBP     Limits `mapstructure:"blood_pressure_diastolic"`
	Temperature     Limits `mapstructure:"temperature"`
	SpO2            Limits `mapstructure:"spo2"`
	RespiratoryRate Limits `mapstructure:"respiratory_rate"`
	PainScore       Limits `mapstructure:"pain_score"`

	Alerts AlertThresholds `mapstructure:"alerts"`
}

type AlertThresholds struct {
	SpO2Warning  int `mapstructure:"spo2_warning"`
	SpO2Critical int `mapstructure:"spo2_critical"`

	HeartRateNormalLow    int `mapstructure:"heart_rate_normal_low"`
	HeartRateNormalHigh   int `mapstructure:"heart_rate_normal_high"`
	HeartRateCriticalLow  int `mapstructure:"heart_rate_critical_low"`
	HeartRateCriticalHigh int `mapstructure:"heart_rate_critical_high"`

	SystolicWarningHigh   int `mapstructure:"systolic_warning_high"`
	SystolicCriticalHigh  int `mapstructure:"systolic_critical_high"`
	SystolicLow           int `mapstructure:"systolic_low"`
	DiastolicCriticalHigh int `mapstructure:"diastolic_critical_high"`
	DiastolicLow          int `mapstructure:"diastolic_low"`

	TemperatureNormalHigh   float64 `mapstructure:"temperature_normal_high"`
	TemperatureCriticalHigh float64 `mapstructure:"temperature_critical_high"`
	TemperatureLow          float64 `mapstructure:"temperature_low"`

	RespiratoryNormalLow    int `mapstructure:"respiratory_normal_low"`
	RespiratoryNormalHigh   int `mapstructure:"respiratory_normal_high"`
	RespiratoryCriticalHigh int `mapstructure:"respiratory_critical_high"`
}

type DepartmentConfig struct {
	Name              string  `mapstructure:"name"`
	MaxCapacity       int     `mapstructure:"max_capacity"`
	MinutesPerPatient float64 `mapstructure:"minutes_per_patient"`
}

type RouteRule struct {
	Symptoms   []string `mapstructure:"symptoms"`
	Department string   `mapstructure:"department"`
}

type RoutingConfig struct {
	// Rules are evaluated in order; the first rule with any matching symptom
	// wins, so emergency conditions must come first.
	Rules        []RouteRule       `mapstructure:"rules"`
	TierDefaults map[string]string `mapstructure:"tier_defaults"`
	// AcuteDepartments are the only reroute targets allowed for a high-risk
	// patient.
	AcuteDepartments []string `mapstructure:"acute_departments"`
	// AlternateOrder breaks load ties by acuity preference.
	AlternateOrder           []string `mapstructure:"alternate_order"`
	OverloadThresholdPercent float64  `mapstructure:"overload_threshold_percent"`
}

type ScoringConfig struct {
	BaseLow    float64 `mapstructure:"base_low"`
	BaseMedium float64 `mapstructure:"base_medium"`
	BaseHigh   float64 `mapstructure:"base_high"`

	HighProbWeight        float64 `mapstructure:"high_prob_weight"`
	CriticalAlertBonus    float64 `mapstructure:"critical_alert_bonus"`
	WarningAlertBonus     float64 `mapstructure:"warning_alert_bonus"`
	PainWeight            float64 `mapstructure:"pain_weight"`
	ChronicDurationWeight float64 `mapstructure:"chronic_duration_weight"`
	AgeExtremeBonus       float64 `mapstructure:"age_extreme_bonus"`
	AgeYoungBelow         int     `mapstructure:"age_young_below"`
	AgeElderlyFrom        int     `mapstructure:"age_elderly_from"`
}

type QueueConfig struct {
	BaseWaitMinutes float64 `mapstructure:"base_wait_minutes"`
}

// Default returns the full configuration with the policy values observed in
// production. A config file only needs to override what it changes.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 30 * time.Second,
			RateLimit:      100,
			RateBurst:      200,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "triage",
			Name:    "triage",
			SSLMode: "disable",
		},
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		JWT:   JWTConfig{ExpiryHours: 24},
		Triage: TriageConfig{
			Vitals:      DefaultVitalsConfig(),
			Departments: DefaultDepartments(),
			Routing:     DefaultRoutingConfig(),
			Scoring:     DefaultScoringConfig(),
			Queue:       QueueConfig{BaseWaitMinutes: 15},
		},
	}
}

func DefaultVitalsConfig() VitalsConfig {
	return VitalsConfig{
		HeartRate:       Limits{Min: 30, Max: 250},
		SystolicBP:      Limits{Min: 70, Max: 250},
		DiastolicBP:     Limits{Min: 40, Max: 150},
		Temperature:     Limits{Min: 35.0, Max: 43.0},
		SpO2:            Limits{Min: 70, Max: 100},
		RespiratoryRate: Limits{Min: 4, Max: 60},
		PainScore:       Limits{Min: 0, Max: 10},
		Alerts: AlertThresholds{
			SpO2Warning:  95,
			SpO2Critical: 90,

			HeartRateNormalLow:    60,
			HeartRateNormalHigh:   100,
			HeartRateCriticalLow:  50,
			HeartRateCriticalHigh: 120,

			SystolicWarningHigh:   140,
			SystolicCriticalHigh:  180,
			SystolicLow:           90,
			DiastolicCriticalHigh: 120,
			DiastolicLow:          60,

			TemperatureNormalHigh:   37.2,
			TemperatureCriticalHigh: 39.0,
			TemperatureLow:          35.0,

			RespiratoryNormalLow:    12,
			RespiratoryNormalHigh:   20,
			RespiratoryCriticalHigh: 30,
		},
	}
}

func DefaultDepartments() []DepartmentConfig {
	return []DepartmentConfig{
		{Name: "General Medicine", MaxCapacity: 30, MinutesPerPatient: 15},
		{Name: "Cardiology", MaxCapacity: 15, MinutesPerPatient: 20},
		{Name: "Neurology", MaxCapacity: 12, MinutesPerPatient: 20},
		{Name: "Emergency", MaxCapacity: 25, MinutesPerPatient: 10},
		{Name: "Pulmonology", MaxCapacity: 15, MinutesPerPatient: 18},
	}
}

func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Rules: []RouteRule{
			{Symptoms: []string{"bleeding", "trauma", "burn", "unconscious"}, Department: "Emergency"},
			{Symptoms: []string{"stroke_symptoms", "seizure"}, Department: "Neurology"},
			{Symptoms: []string{"chest_pain", "shortness_of_breath"}, Department: "Cardiology"},
			{Symptoms: []string{"allergic_reaction"}, Department: "Pulmonology"},
			{Symptoms: []string{"headache", "dizziness"}, Department: "Neurology"},
		},
		TierDefaults: map[string]string{
			"high":   "Emergency",
			"medium": "General Medicine",
			"low":    "General Medicine",
		},
		AcuteDepartments:         []string{"Emergency", "Cardiology", "Pulmonology", "Neurology"},
		AlternateOrder:           []string{"Emergency", "Cardiology", "Pulmonology", "Neurology", "General Medicine"},
		OverloadThresholdPercent: 85,
	}
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseLow:    20,
		BaseMedium: 50,
		BaseHigh:   85,

		HighProbWeight:        10,
		CriticalAlertBonus:    5,
		WarningAlertBonus:     1,
		PainWeight:            0.6,
		ChronicDurationWeight: 1.5,
		AgeExtremeBonus:       3,
		AgeYoungBelow:         5,
		AgeElderlyFrom:        65,
	}
}

// LoadConfig reads config.yaml over the defaults. A missing file is fine;
// the defaults are complete.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	cfg := Default()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
