package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
)

const (
	// Порт по умолчанию (непривилегированный).
	defaultServerPort = "8080"
	// Размер пула воркеров рассылки по умолчанию.
	defaultFanoutWorkers = 4

	// Переменные окружения.
	envServerPort    = "SERVER_PORT"
	envTLSCertFile   = "TLS_CERT_FILE"
	envTLSKeyFile    = "TLS_KEY_FILE"
	envDatabaseDSN   = "DATABASE_DSN"
	envJWTSecret     = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, не секрет
	envBotGateway    = "BOT_GATEWAY_URL"
	envBotToken      = "BOT_GATEWAY_TOKEN" //nolint:gosec // Имя переменной окружения, не секрет
	envFanoutWorkers = "FANOUT_WORKERS"
)

// config хранит конфигурацию сервера.
type config struct {
	Port          string
	CertFile      string // Пустой - сервер работает без TLS (за обратным прокси)
	KeyFile       string
	DatabaseDSN   string
	JWTSecret     string
	BotGatewayURL string
	BotToken      string
	FanoutWorkers int
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаг имеет приоритет над переменной окружения.
func parseFlags() (*config, error) {
	cfg := &config{}
	var fanoutWorkers string

	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт HTTP-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата, опционально (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа, опционально (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет проверки JWT портала (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.BotGatewayURL, "bot-gateway-url", "",
		fmt.Sprintf("URL шлюза доставки уведомлений (env: %s)", envBotGateway))
	flag.StringVar(&cfg.BotToken, "bot-gateway-token", "",
		fmt.Sprintf("Токен шлюза доставки (env: %s)", envBotToken))
	flag.StringVar(&fanoutWorkers, "fanout-workers", "",
		fmt.Sprintf("Число воркеров рассылки (env: %s, default: %d)", envFanoutWorkers, defaultFanoutWorkers))

	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	if cfg.Port == "" {
		if value, ok := os.LookupEnv(envServerPort); ok {
			cfg.Port = value
		} else {
			cfg.Port = defaultServerPort
		}
	}
	if cfg.CertFile == "" {
		cfg.CertFile = os.Getenv(envTLSCertFile)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = os.Getenv(envTLSKeyFile)
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = os.Getenv(envDatabaseDSN)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv(envJWTSecret)
	}
	if cfg.BotGatewayURL == "" {
		cfg.BotGatewayURL = os.Getenv(envBotGateway)
	}
	if cfg.BotToken == "" {
		cfg.BotToken = os.Getenv(envBotToken)
	}
	if fanoutWorkers == "" {
		fanoutWorkers = os.Getenv(envFanoutWorkers)
	}

	cfg.FanoutWorkers = defaultFanoutWorkers
	if fanoutWorkers != "" {
		n, err := strconv.Atoi(fanoutWorkers)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("некорректное число воркеров рассылки: %q", fanoutWorkers)
		}
		cfg.FanoutWorkers = n
	}

	// Проверяем обязательные параметры
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет проверки JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if cfg.BotGatewayURL == "" {
		return nil, errors.New("не указан URL шлюза доставки (--bot-gateway-url или " + envBotGateway + ")")
	}
	// TLS опционален, но сертификат и ключ должны идти парой
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("TLS-сертификат и ключ должны быть указаны вместе")
	}

	return cfg, nil
}
