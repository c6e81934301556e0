package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	DatabaseURL string `env:"DATABASE_URL"`

	Redis    Redis    `envPrefix:"REDIS_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	Webhook  Webhook  `envPrefix:"WEBHOOK_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Redis struct {
	URL string `env:"URL" envDefault:"redis://localhost:6379/0"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"payment-events"`
}

type Webhook struct {
	// Shared static key the gateway sends in the Authorization header.
	APIKey string `env:"API_KEY"`
}

type Checkout struct {
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"3s"`
	PaymentTimeout time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"24h"`
	// Textual prefix that precedes the numeric payment id inside the
	// bank transfer reference content.
	ReferencePrefix string `env:"REFERENCE_PREFIX" envDefault:"MALLPAY"`
}
