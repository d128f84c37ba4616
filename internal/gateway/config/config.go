// config предоставляет конфигурацию api-gateway.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация gateway.
// Приоритет источников тот же, что у identity-service:
// --config, затем CONFIG_PATH, затем ./local.yaml, затем ENV.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Ops       OpsConfig       `yaml:"ops"`
	Auth      AuthConfig      `yaml:"auth"`
	Routes    RoutesConfig    `yaml:"routes"`
	Upstreams UpstreamsConfig `yaml:"upstreams"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки публичного HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// OpsConfig — отдельный HTTP для health-чеков и Prometheus.
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"8086"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Addr возвращает адрес в формате host:port.
func (o OpsConfig) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// AuthConfig — параметры обращения gateway к identity-сервису.
type AuthConfig struct {
	// Addr — базовый URL identity-сервиса, например http://identity:50081.
	Addr string `yaml:"addr" env:"AUTH_ADDR" env-required:"true"`
	// Timeout — жёсткий таймаут каждого запроса к identity-сервису.
	// Зависший introspect не должен держать пользовательский запрос.
	Timeout time.Duration `yaml:"timeout" env:"AUTH_TIMEOUT" env-default:"3s"`
	// CookieName — имя cookie с refresh-токеном; должно совпадать с
	// настройкой identity-сервиса.
	CookieName string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" env-default:"jwt"`
}

// RoutesConfig — правила пропуска запросов без аутентификации.
type RoutesConfig struct {
	// AllowList — пути, доступные без токена. Элемент вида "/path"
	// сравнивается точно, вида "/path/**" — по префиксу "/path/".
	AllowList []string `yaml:"allow_list" env:"ALLOW_LIST" env-default:"/auth/login,/auth/register,/auth/refresh-token"`
}

// UpstreamsConfig — адреса сервисов за gateway.
type UpstreamsConfig struct {
	Identity string `yaml:"identity" env:"UPSTREAM_IDENTITY" env-required:"true"`
	Posts    string `yaml:"posts" env:"UPSTREAM_POSTS" env-default:""`
	Profile  string `yaml:"profile" env:"UPSTREAM_PROFILE" env-default:""`
	Chat     string `yaml:"chat" env:"UPSTREAM_CHAT" env-default:""`
}

// TimeoutConfig — таймауты gateway.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
