package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3001"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Email    string `env:"EMAIL" envDefault:"admin@mahuti.com"`
		Password string `env:"PASSWORD,required"`
		Name     string `env:"NAME" envDefault:"Admin User"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"168"` // 7 天，单位为小时
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		AppURL string `env:"APP_URL" envDefault:"http://localhost:5173"`
		SMTP   struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"email_queue"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
	Invitation struct {
		Expiration int `env:"EXPIRATION" envDefault:"604800"` // 7 天
	} `envPrefix:"INVITATION_"`
	Share struct {
		Expiration int `env:"EXPIRATION" envDefault:"2592000"` // 30 天
	} `envPrefix:"SHARE_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Week struct {
		Start string `env:"START" envDefault:"Sunday"`
	} `envPrefix:"WEEK_"`
	Seed struct {
		Password    string `env:"PASSWORD" envDefault:"mahuti-demo"`
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"mahuti.com"`
		MaxPerDay   int    `env:"MAX_PER_DAY" envDefault:"2"` // 随机排班时每人每天最多负责的任务数
	} `envPrefix:"SEED_"`
}

// ClientConfig 是 grid 客户端会话使用的配置
type ClientConfig struct {
	API struct {
		BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:3001"`
		Email          string `env:"EMAIL,required"`
		Password       string `env:"PASSWORD,required"`
		RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"10"`
	} `envPrefix:"API_"`
	Sync struct {
		PollInterval    int `env:"POLL_INTERVAL" envDefault:"5"`
		HistoryCapacity int `env:"HISTORY_CAPACITY" envDefault:"50"`
	} `envPrefix:"SYNC_"`
	Week struct {
		Start string `env:"START" envDefault:"Sunday"`
	} `envPrefix:"WEEK_"`
	Metrics struct {
		Addr string `env:"ADDR"`
	} `envPrefix:"METRICS_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parse(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return aggErr.Errors[0]
		}
		return err
	}

	return nil
}
