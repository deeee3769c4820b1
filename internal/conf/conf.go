package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of configs/config.yaml.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Credit *Credit `json:"credit"`
	Stripe *Stripe `json:"stripe"`
	Cron   *Cron   `json:"cron"`
	Log    *Log    `json:"log"`
}

type Server struct {
	Http *ServerHTTP `json:"http"`
}

type ServerHTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Data struct {
	Database *DataDatabase `json:"database"`
	Redis    *DataRedis    `json:"redis"`
	Lock     *DataLock     `json:"lock"`
	Rocketmq *DataRocketmq `json:"rocketmq"`
}

type DataDatabase struct {
	Driver          string    `json:"driver"`
	Source          string    `json:"source"`
	MaxOpenConns    int       `json:"max_open_conns"`
	MaxIdleConns    int       `json:"max_idle_conns"`
	ConnMaxLifetime *Duration `json:"conn_max_lifetime"`
	AutoMigrate     bool      `json:"auto_migrate"`
}

type DataRedis struct {
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	Db           int       `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
	// CacheTtl bounds how long a balance snapshot may be served.
	CacheTtl *Duration `json:"cache_ttl"`
}

// DataLock configures the per-account distributed lock taken on top of the
// row lock. Disabled means the database row lock alone serializes writers.
type DataLock struct {
	Enabled bool      `json:"enabled"`
	Expiry  *Duration `json:"expiry"`
	Tries   int       `json:"tries"`
}

type DataRocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	Topic       string   `json:"topic"`
	RetryTimes  int32    `json:"retry_times"`
}

// Credit holds the tier allowances, plan references and action costs.
type Credit struct {
	Tiers          map[string]*Tier `json:"tiers"`
	Costs          map[string]int64 `json:"costs"`
	VideoBuckets   []*VideoBucket   `json:"video_buckets"`
	ChatPromptPer1K int64           `json:"chat_prompt_per_1k"`
	ChatOutputPer1K int64           `json:"chat_output_per_1k"`
	PeriodDays     int              `json:"period_days"`
}

type Tier struct {
	Allowance int64    `json:"allowance"`
	PlanRefs  []string `json:"plan_refs"`
}

type VideoBucket struct {
	MaxSeconds int   `json:"max_seconds"`
	Cost       int64 `json:"cost"`
}

type Stripe struct {
	SecretKey     string    `json:"secret_key"`
	WebhookSecret string    `json:"webhook_secret"`
	Tolerance     *Duration `json:"tolerance"`
}

type Cron struct {
	AuditSpec string `json:"audit_spec"`
	// MetricsAddr exposes the audit gauges of the cron process; empty disables it.
	MetricsAddr string `json:"metrics_addr"`
}

type Log struct {
	Level    string `json:"level"`
	Format   string `json:"format"`
	Output   string `json:"output"`
	FilePath string `json:"file_path"`
}

// Duration accepts "5s"-style strings or integer nanoseconds.
type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
