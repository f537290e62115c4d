package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"150"` // 需要覆盖等待确认的时间
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Backend struct {
		BaseURL                 string `env:"BASE_URL" envDefault:"http://localhost:8000/api"`
		RequestTimeout          int    `env:"REQUEST_TIMEOUT" envDefault:"15"`
		Token                   string `env:"TOKEN"` // 仅供 CLI 使用，API 服务转发操作者自己的 token
		LegacyAssignmentPayload bool   `env:"LEGACY_ASSIGNMENT_PAYLOAD" envDefault:"false"`
	} `envPrefix:"BACKEND_"`
	JWT struct {
		Secret     string `env:"SECRET"`
		CookieName string `env:"COOKIE_NAME" envDefault:"__shift_board_token"`
	} `envPrefix:"JWT_"`
	Rules struct {
		DailyHoursLimit       float64 `env:"DAILY_HOURS_LIMIT" envDefault:"8"`
		DefaultMaxWeeklyHours float64 `env:"DEFAULT_MAX_WEEKLY_HOURS" envDefault:"40"`
		ApproachingRatio      float64 `env:"APPROACHING_RATIO" envDefault:"0.8"`
	} `envPrefix:"RULES_"`
	Session struct {
		ConfirmTimeout int `env:"CONFIRM_TIMEOUT" envDefault:"120"`
		IdleTimeout    int `env:"IDLE_TIMEOUT" envDefault:"3600"`
	} `envPrefix:"SESSION_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required,notEmpty"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host     string `env:"HOST" envDefault:"localhost"`
		Port     int    `env:"PORT" envDefault:"6379"`
		Password string `env:"PASSWORD"`
		LockTTL  int    `env:"LOCK_TTL" envDefault:"30"`
	} `envPrefix:"REDIS_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
