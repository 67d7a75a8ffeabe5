package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	APIModeLocal  = "local"
	APIModeRemote = "remote"

	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"

	StoreLockLocal = "local"
	StoreLockRedis = "redis"
)

type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Config struct {
	Env                   string
	ServiceName           string
	HTTPPort              int
	LogLevel              string
	ConfigPath            string
	RequestTimeoutMS      int
	RequestTimeout        time.Duration
	APIMode               string
	APIBaseURL            string
	RemoteTimeoutMS       int
	LatencyScale          float64
	StoreDriver           string
	StoreLock             string
	StoreLockTTLMS        int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	DatabaseURL           string
	DBMaxConns            int
	DBMinConns            int
	AsynqRedisAddr        string
	AsynqRedisPass        string
	AsynqRedisDB          int
	AsynqQueue            string
	AsynqConcurrency      int
	AsynqEnabled          bool
	OverdueScanSec        int
	KafkaBrokers          []string
	KafkaClientID         string
	KafkaGroupID          string
	KafkaRetryMax         int
	KafkaWriteMS          int
	InfluxURL             string
	InfluxToken           string
	InfluxOrg             string
	InfluxBucket          string
	InfluxTimeoutMS       int
	AssistantURL          string
	AssistantTimeoutMS    int
	AssistantRetryMax     int
	RateLimitRPS          float64
	RateLimitBurst        int
	CORSAllowedOrigins    []string
	CORSAllowCredentials  bool
	CORSMaxAgeSec         int
	OtelEnabled           bool
	OtelEndpoint          string
	OtelInsecure          bool
	OtelSampleRatio       float64
	NotificationsChannel  string
	DomainEventsTopic     string
	TypingDelayMinMS      int
	TypingDelayMaxMS      int
	FuturePaymentsDefault int
}

func Load(serviceNameDefault string, httpPortDefault int) (Config, []Problem) {
	envRaw := strings.TrimSpace(os.Getenv("ENV"))
	cfg := Config{
		Env:                   envRaw,
		ServiceName:           serviceNameDefault,
		HTTPPort:              httpPortDefault,
		LogLevel:              "info",
		ConfigPath:            strings.TrimSpace(os.Getenv("CONFIG_PATH")),
		RequestTimeoutMS:      30000,
		APIMode:               APIModeLocal,
		APIBaseURL:            "http://localhost:3000/api",
		RemoteTimeoutMS:       5000,
		LatencyScale:          1.0,
		StoreDriver:           StoreDriverMemory,
		StoreLock:             StoreLockLocal,
		StoreLockTTLMS:        5000,
		DBMaxConns:            10,
		DBMinConns:            1,
		AsynqQueue:            "default",
		AsynqConcurrency:      10,
		OverdueScanSec:        3600,
		KafkaRetryMax:         5,
		KafkaWriteMS:          5000,
		InfluxTimeoutMS:       5000,
		AssistantTimeoutMS:    3000,
		AssistantRetryMax:     2,
		RateLimitRPS:          20,
		RateLimitBurst:        40,
		CORSMaxAgeSec:         600,
		OtelInsecure:          true,
		OtelSampleRatio:       1.0,
		NotificationsChannel:  "tenant.notifications",
		DomainEventsTopic:     "renttalk.domain-events",
		TypingDelayMinMS:      1000,
		TypingDelayMaxMS:      3000,
		FuturePaymentsDefault: 6,
	}

	problems := make([]Problem, 0, 4)
	envProvided := envRaw != ""

	if repoRoot, ok := findRepoRoot(); ok && cfg.Env != "" && cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(repoRoot, "configs", cfg.Env+".json")
	}

	if fileData, fileProblems, ok := loadConfigFile(cfg.ConfigPath, strings.TrimSpace(os.Getenv("CONFIG_PATH")) != ""); ok {
		problems = append(problems, fileProblems...)
		if fileEnv, ok := readStringKey(fileData, "ENV"); ok && strings.TrimSpace(fileEnv) != "" {
			envProvided = true
		}
		applyConfigMap(&cfg, fileData, &problems)
	} else {
		problems = append(problems, fileProblems...)
	}

	applyEnv(&cfg, &problems)

	// Redis serves both the store and the job queue unless asynq gets its own.
	if cfg.AsynqRedisAddr == "" {
		cfg.AsynqRedisAddr = cfg.RedisAddr
		cfg.AsynqRedisPass = cfg.RedisPassword
		cfg.AsynqRedisDB = cfg.RedisDB
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if !envProvided {
		problems = append(problems, Problem{Field: "ENV", Message: "ENV is required"})
	}
	validate(&cfg, httpPortDefault, &problems)

	return cfg, problems
}

// LatencyFor scales a simulated delay by LatencyScale.
func (c Config) LatencyFor(d time.Duration) time.Duration {
	if c.LatencyScale <= 0 {
		return 0
	}
	return time.Duration(float64(d) * c.LatencyScale)
}

func validate(cfg *Config, httpPortDefault int, problems *[]Problem) {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		*problems = append(*problems, Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"})
		cfg.HTTPPort = httpPortDefault
	}
	if cfg.RequestTimeoutMS <= 0 {
		*problems = append(*problems, Problem{Field: "REQUEST_TIMEOUT_MS", Message: "REQUEST_TIMEOUT_MS must be > 0"})
		cfg.RequestTimeoutMS = 30000
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond

	cfg.APIMode = strings.ToLower(cfg.APIMode)
	if cfg.APIMode != APIModeLocal && cfg.APIMode != APIModeRemote {
		*problems = append(*problems, Problem{Field: "API_MODE", Message: "API_MODE must be local or remote"})
		cfg.APIMode = APIModeLocal
	}
	if cfg.APIMode == APIModeRemote && strings.TrimSpace(cfg.APIBaseURL) == "" {
		*problems = append(*problems, Problem{Field: "API_BASE_URL", Message: "API_BASE_URL is required in remote mode"})
		cfg.APIMode = APIModeLocal
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.RemoteTimeoutMS <= 0 {
		*problems = append(*problems, Problem{Field: "REMOTE_TIMEOUT_MS", Message: "REMOTE_TIMEOUT_MS must be > 0"})
		cfg.RemoteTimeoutMS = 5000
	}
	if cfg.LatencyScale < 0 {
		*problems = append(*problems, Problem{Field: "SIMULATED_LATENCY_SCALE", Message: "SIMULATED_LATENCY_SCALE must be >= 0"})
		cfg.LatencyScale = 1.0
	}

	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	switch cfg.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverRedis:
		if cfg.RedisAddr == "" {
			*problems = append(*problems, Problem{Field: "REDIS_ADDR", Message: "REDIS_ADDR is required for STORE_DRIVER=redis"})
		}
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			*problems = append(*problems, Problem{Field: "DATABASE_URL", Message: "DATABASE_URL is required for STORE_DRIVER=postgres"})
		}
	default:
		*problems = append(*problems, Problem{Field: "STORE_DRIVER", Message: "STORE_DRIVER must be memory, redis or postgres"})
		cfg.StoreDriver = StoreDriverMemory
	}
	cfg.StoreLock = strings.ToLower(cfg.StoreLock)
	if cfg.StoreLock != StoreLockLocal && cfg.StoreLock != StoreLockRedis {
		*problems = append(*problems, Problem{Field: "STORE_LOCK", Message: "STORE_LOCK must be local or redis"})
		cfg.StoreLock = StoreLockLocal
	}
	if cfg.StoreLock == StoreLockRedis && cfg.RedisAddr == "" {
		*problems = append(*problems, Problem{Field: "STORE_LOCK", Message: "STORE_LOCK=redis requires REDIS_ADDR"})
		cfg.StoreLock = StoreLockLocal
	}
	if cfg.StoreLockTTLMS <= 0 {
		*problems = append(*problems, Problem{Field: "STORE_LOCK_TTL_MS", Message: "STORE_LOCK_TTL_MS must be > 0"})
		cfg.StoreLockTTLMS = 5000
	}
	if cfg.RedisDB < 0 {
		*problems = append(*problems, Problem{Field: "REDIS_DB", Message: "REDIS_DB must be >= 0"})
		cfg.RedisDB = 0
	}
	if cfg.DBMaxConns <= 0 {
		*problems = append(*problems, Problem{Field: "DB_MAX_CONNS", Message: "DB_MAX_CONNS must be > 0"})
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 {
		*problems = append(*problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be >= 0"})
		cfg.DBMinConns = 1
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		*problems = append(*problems, Problem{Field: "DB_MIN_CONNS", Message: "DB_MIN_CONNS must be <= DB_MAX_CONNS"})
		cfg.DBMinConns = cfg.DBMaxConns
	}
	if cfg.AsynqRedisDB < 0 {
		*problems = append(*problems, Problem{Field: "ASYNQ_REDIS_DB", Message: "ASYNQ_REDIS_DB must be >= 0"})
		cfg.AsynqRedisDB = 0
	}
	if cfg.AsynqConcurrency <= 0 {
		*problems = append(*problems, Problem{Field: "ASYNQ_CONCURRENCY", Message: "ASYNQ_CONCURRENCY must be > 0"})
		cfg.AsynqConcurrency = 10
	}
	if cfg.AsynqEnabled && cfg.AsynqRedisAddr == "" {
		*problems = append(*problems, Problem{Field: "ASYNQ_REDIS_ADDR", Message: "ASYNQ_ENABLED requires ASYNQ_REDIS_ADDR or REDIS_ADDR"})
		cfg.AsynqEnabled = false
	}
	if cfg.OverdueScanSec <= 0 {
		*problems = append(*problems, Problem{Field: "OVERDUE_SCAN_INTERVAL_SECONDS", Message: "OVERDUE_SCAN_INTERVAL_SECONDS must be > 0"})
		cfg.OverdueScanSec = 3600
	}
	if cfg.KafkaRetryMax < 0 {
		*problems = append(*problems, Problem{Field: "KAFKA_RETRY_MAX", Message: "KAFKA_RETRY_MAX must be >= 0"})
		cfg.KafkaRetryMax = 5
	}
	if cfg.KafkaWriteMS <= 0 {
		*problems = append(*problems, Problem{Field: "KAFKA_WRITE_TIMEOUT_MS", Message: "KAFKA_WRITE_TIMEOUT_MS must be > 0"})
		cfg.KafkaWriteMS = 5000
	}
	if cfg.InfluxTimeoutMS <= 0 {
		*problems = append(*problems, Problem{Field: "INFLUX_TIMEOUT_MS", Message: "INFLUX_TIMEOUT_MS must be > 0"})
		cfg.InfluxTimeoutMS = 5000
	}
	if cfg.AssistantTimeoutMS <= 0 {
		*problems = append(*problems, Problem{Field: "ASSISTANT_TIMEOUT_MS", Message: "ASSISTANT_TIMEOUT_MS must be > 0"})
		cfg.AssistantTimeoutMS = 3000
	}
	if cfg.AssistantRetryMax < 0 {
		*problems = append(*problems, Problem{Field: "ASSISTANT_RETRY_MAX", Message: "ASSISTANT_RETRY_MAX must be >= 0"})
		cfg.AssistantRetryMax = 2
	}
	if cfg.RateLimitRPS < 0 {
		*problems = append(*problems, Problem{Field: "RATE_LIMIT_RPS", Message: "RATE_LIMIT_RPS must be >= 0"})
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst <= 0 {
		*problems = append(*problems, Problem{Field: "RATE_LIMIT_BURST", Message: "RATE_LIMIT_BURST must be > 0"})
		cfg.RateLimitBurst = 40
	}
	if cfg.CORSMaxAgeSec < 0 {
		*problems = append(*problems, Problem{Field: "CORS_MAX_AGE_SECONDS", Message: "CORS_MAX_AGE_SECONDS must be >= 0"})
		cfg.CORSMaxAgeSec = 600
	}
	if cfg.CORSAllowCredentials && slices.Contains(cfg.CORSAllowedOrigins, "*") {
		*problems = append(*problems, Problem{Field: "CORS_ALLOWED_ORIGINS", Message: "CORS_ALLOWED_ORIGINS cannot contain * when CORS_ALLOW_CREDENTIALS is set"})
		cfg.CORSAllowCredentials = false
	}
	if cfg.TypingDelayMinMS < 0 || cfg.TypingDelayMaxMS < cfg.TypingDelayMinMS {
		*problems = append(*problems, Problem{Field: "TYPING_DELAY_MS", Message: "TYPING_DELAY_MIN_MS must be >= 0 and <= TYPING_DELAY_MAX_MS"})
		cfg.TypingDelayMinMS = 1000
		cfg.TypingDelayMaxMS = 3000
	}
	if cfg.FuturePaymentsDefault <= 0 {
		*problems = append(*problems, Problem{Field: "FUTURE_PAYMENTS_DEFAULT", Message: "FUTURE_PAYMENTS_DEFAULT must be > 0"})
		cfg.FuturePaymentsDefault = 6
	}
	if cfg.OtelSampleRatio < 0 || cfg.OtelSampleRatio > 1 {
		*problems = append(*problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be 0-1"})
		cfg.OtelSampleRatio = 1.0
	}
}

func findRepoRoot() (string, bool) {
	start, err := os.Getwd()
	if err != nil {
		return "", false
	}
	dir := start
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, "configs")
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func loadConfigFile(path string, explicit bool) (map[string]any, []Problem, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, false
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if explicit && !errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("failed to read config file: %v", err)}}, false
		}
		if explicit && errors.Is(err, os.ErrNotExist) {
			return nil, []Problem{{Field: "CONFIG_PATH", Message: "config file not found"}}, false
		}
		return nil, nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, []Problem{{Field: "CONFIG_PATH", Message: fmt.Sprintf("invalid json: %v", err)}}, false
	}
	return raw, nil, true
}

// setter applies one raw value (string from env, any JSON type from file).
type setter func(cfg *Config, v any) bool

var fields = map[string]setter{
	"ENV":                           stringField(func(c *Config, s string) { c.Env = s }),
	"SERVICE_NAME":                  nonEmptyField(func(c *Config, s string) { c.ServiceName = s }),
	"HTTP_PORT":                     intField(func(c *Config, n int) { c.HTTPPort = n }),
	"PORT":                          intField(func(c *Config, n int) { c.HTTPPort = n }),
	"LOG_LEVEL":                     nonEmptyField(func(c *Config, s string) { c.LogLevel = s }),
	"REQUEST_TIMEOUT_MS":            intField(func(c *Config, n int) { c.RequestTimeoutMS = n }),
	"API_MODE":                      nonEmptyField(func(c *Config, s string) { c.APIMode = s }),
	"API_BASE_URL":                  stringField(func(c *Config, s string) { c.APIBaseURL = s }),
	"REMOTE_TIMEOUT_MS":             intField(func(c *Config, n int) { c.RemoteTimeoutMS = n }),
	"SIMULATED_LATENCY_SCALE":       floatField(func(c *Config, f float64) { c.LatencyScale = f }),
	"STORE_DRIVER":                  nonEmptyField(func(c *Config, s string) { c.StoreDriver = s }),
	"STORE_LOCK":                    nonEmptyField(func(c *Config, s string) { c.StoreLock = s }),
	"STORE_LOCK_TTL_MS":             intField(func(c *Config, n int) { c.StoreLockTTLMS = n }),
	"REDIS_ADDR":                    stringField(func(c *Config, s string) { c.RedisAddr = s }),
	"REDIS_PASSWORD":                rawStringField(func(c *Config, s string) { c.RedisPassword = s }),
	"REDIS_DB":                      intField(func(c *Config, n int) { c.RedisDB = n }),
	"DATABASE_URL":                  stringField(func(c *Config, s string) { c.DatabaseURL = s }),
	"DB_MAX_CONNS":                  intField(func(c *Config, n int) { c.DBMaxConns = n }),
	"DB_MIN_CONNS":                  intField(func(c *Config, n int) { c.DBMinConns = n }),
	"ASYNQ_REDIS_ADDR":              stringField(func(c *Config, s string) { c.AsynqRedisAddr = s }),
	"ASYNQ_REDIS_PASSWORD":          rawStringField(func(c *Config, s string) { c.AsynqRedisPass = s }),
	"ASYNQ_REDIS_DB":                intField(func(c *Config, n int) { c.AsynqRedisDB = n }),
	"ASYNQ_QUEUE":                   nonEmptyField(func(c *Config, s string) { c.AsynqQueue = s }),
	"ASYNQ_CONCURRENCY":             intField(func(c *Config, n int) { c.AsynqConcurrency = n }),
	"ASYNQ_ENABLED":                 boolField(func(c *Config, b bool) { c.AsynqEnabled = b }),
	"OVERDUE_SCAN_INTERVAL_SECONDS": intField(func(c *Config, n int) { c.OverdueScanSec = n }),
	"KAFKA_BROKERS":                 csvField(func(c *Config, l []string) { c.KafkaBrokers = l }),
	"KAFKA_CLIENT_ID":               stringField(func(c *Config, s string) { c.KafkaClientID = s }),
	"KAFKA_CONSUMER_GROUP":          stringField(func(c *Config, s string) { c.KafkaGroupID = s }),
	"KAFKA_RETRY_MAX":               intField(func(c *Config, n int) { c.KafkaRetryMax = n }),
	"KAFKA_WRITE_TIMEOUT_MS":        intField(func(c *Config, n int) { c.KafkaWriteMS = n }),
	"INFLUX_URL":                    stringField(func(c *Config, s string) { c.InfluxURL = s }),
	"INFLUX_TOKEN":                  rawStringField(func(c *Config, s string) { c.InfluxToken = s }),
	"INFLUX_ORG":                    stringField(func(c *Config, s string) { c.InfluxOrg = s }),
	"INFLUX_BUCKET":                 stringField(func(c *Config, s string) { c.InfluxBucket = s }),
	"INFLUX_TIMEOUT_MS":             intField(func(c *Config, n int) { c.InfluxTimeoutMS = n }),
	"ASSISTANT_URL":                 stringField(func(c *Config, s string) { c.AssistantURL = s }),
	"ASSISTANT_TIMEOUT_MS":          intField(func(c *Config, n int) { c.AssistantTimeoutMS = n }),
	"ASSISTANT_RETRY_MAX":           intField(func(c *Config, n int) { c.AssistantRetryMax = n }),
	"RATE_LIMIT_RPS":                floatField(func(c *Config, f float64) { c.RateLimitRPS = f }),
	"RATE_LIMIT_BURST":              intField(func(c *Config, n int) { c.RateLimitBurst = n }),
	"CORS_ALLOWED_ORIGINS":          csvField(func(c *Config, l []string) { c.CORSAllowedOrigins = l }),
	"CORS_ALLOW_CREDENTIALS":        boolField(func(c *Config, b bool) { c.CORSAllowCredentials = b }),
	"CORS_MAX_AGE_SECONDS":          intField(func(c *Config, n int) { c.CORSMaxAgeSec = n }),
	"OTEL_ENABLED":                  boolField(func(c *Config, b bool) { c.OtelEnabled = b }),
	"OTEL_EXPORTER_OTLP_ENDPOINT":   stringField(func(c *Config, s string) { c.OtelEndpoint = s }),
	"OTEL_EXPORTER_OTLP_INSECURE":   boolField(func(c *Config, b bool) { c.OtelInsecure = b }),
	"OTEL_SAMPLE_RATIO":             floatField(func(c *Config, f float64) { c.OtelSampleRatio = f }),
	"NOTIFICATIONS_CHANNEL":         nonEmptyField(func(c *Config, s string) { c.NotificationsChannel = s }),
	"DOMAIN_EVENTS_TOPIC":           nonEmptyField(func(c *Config, s string) { c.DomainEventsTopic = s }),
	"TYPING_DELAY_MIN_MS":           intField(func(c *Config, n int) { c.TypingDelayMinMS = n }),
	"TYPING_DELAY_MAX_MS":           intField(func(c *Config, n int) { c.TypingDelayMaxMS = n }),
	"FUTURE_PAYMENTS_DEFAULT":       intField(func(c *Config, n int) { c.FuturePaymentsDefault = n }),
}

// envOrder fixes the application order so PORT never overrides HTTP_PORT.
var envOrder = []string{"PORT", "HTTP_PORT"}

func applyEnv(cfg *Config, problems *[]Problem) {
	applied := make(map[string]bool, len(fields))
	apply := func(key string) {
		applied[key] = true
		raw, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		if !fields[key](cfg, raw) {
			*problems = append(*problems, problemFor(key))
		}
	}
	for _, key := range envOrder {
		apply(key)
	}
	for key := range fields {
		if !applied[key] {
			apply(key)
		}
	}
}

func applyConfigMap(cfg *Config, raw map[string]any, problems *[]Problem) {
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		set, ok := fields[key]
		if !ok {
			continue
		}
		if !set(cfg, v) {
			*problems = append(*problems, problemFor(key))
		}
	}
}

func problemFor(key string) Problem {
	switch key {
	case "PORT", "HTTP_PORT":
		return Problem{Field: "HTTP_PORT", Message: "HTTP_PORT must be 1-65535"}
	case "ASYNQ_ENABLED", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_INSECURE", "CORS_ALLOW_CREDENTIALS":
		return Problem{Field: key, Message: key + " must be a boolean"}
	case "SIMULATED_LATENCY_SCALE", "RATE_LIMIT_RPS", "OTEL_SAMPLE_RATIO":
		return Problem{Field: key, Message: key + " must be a number"}
	case "KAFKA_BROKERS", "CORS_ALLOWED_ORIGINS":
		return Problem{Field: key, Message: key + " must be a comma separated list"}
	default:
		return Problem{Field: key, Message: key + " must be an integer"}
	}
}

func stringField(set func(*Config, string)) setter {
	return func(c *Config, v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		set(c, strings.TrimSpace(s))
		return true
	}
}

func rawStringField(set func(*Config, string)) setter {
	return func(c *Config, v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		set(c, s)
		return true
	}
}

func nonEmptyField(set func(*Config, string)) setter {
	return func(c *Config, v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		if s = strings.TrimSpace(s); s != "" {
			set(c, s)
		}
		return true
	}
}

func intField(set func(*Config, int)) setter {
	return func(c *Config, v any) bool {
		n, ok := asInt(v)
		if ok {
			set(c, n)
		}
		return ok
	}
}

func floatField(set func(*Config, float64)) setter {
	return func(c *Config, v any) bool {
		f, ok := asFloat(v)
		if ok {
			set(c, f)
		}
		return ok
	}
}

func boolField(set func(*Config, bool)) setter {
	return func(c *Config, v any) bool {
		switch t := v.(type) {
		case bool:
			set(c, t)
			return true
		case string:
			b, ok := asBool(t)
			if ok {
				set(c, b)
			}
			return ok
		default:
			return false
		}
	}
}

func csvField(set func(*Config, []string)) setter {
	return func(c *Config, v any) bool {
		switch t := v.(type) {
		case string:
			set(c, parseCSV(t))
			return true
		case []any:
			set(c, parseAnyCSV(t))
			return true
		default:
			return false
		}
	}
}

func readStringKey(raw map[string]any, key string) (string, bool) {
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			s, ok := v.(string)
			return s, ok
		}
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

func asBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseAnyCSV(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
