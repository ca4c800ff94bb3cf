package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合客户端与开发服务器的配置项。
type Config struct {
	Server ServerConfig
	Client ClientConfig
	Stub   StubConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	stub, err := loadStubConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Client: client, Stub: stub, Log: loadLogConfig()}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":5000" 或 "127.0.0.1:5000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ClientConfig 描述聊天客户端配置。
type ClientConfig struct {
	BaseURL       string
	Personality   string
	HeaderTimeout time.Duration
	LoginDelay    time.Duration
	Plain         bool
}

func loadClientConfig() (ClientConfig, error) {
	headerTimeout := 30 * time.Second
	if secs, err := parseOptionalIntEnv("CHAT_HEADER_TIMEOUT"); err != nil {
		return ClientConfig{}, err
	} else if secs != nil {
		if *secs < 0 {
			return ClientConfig{}, fmt.Errorf("invalid CHAT_HEADER_TIMEOUT value %d: must not be negative", *secs)
		}
		headerTimeout = time.Duration(*secs) * time.Second
	}

	loginDelay, err := parseDurationMillisEnv("CHAT_LOGIN_DELAY_MS", 0)
	if err != nil {
		return ClientConfig{}, err
	}

	plain, err := parseBoolEnv("CHAT_PLAIN", false)
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		BaseURL:       strings.TrimRight(getEnvOrDefault("CHAT_API_BASE_URL", "http://localhost:5000"), "/"),
		Personality:   getEnvOrDefault("CHAT_PERSONALITY", "default"),
		HeaderTimeout: headerTimeout,
		LoginDelay:    loginDelay,
		Plain:         plain,
	}, nil
}

// StubConfig 描述开发服务器的回复行为。
type StubConfig struct {
	PersonalitiesFile string
	ChunkDelay        time.Duration
}

func loadStubConfig() (StubConfig, error) {
	delay, err := parseDurationMillisEnv("STUB_CHUNK_DELAY_MS", 40*time.Millisecond)
	if err != nil {
		return StubConfig{}, err
	}
	return StubConfig{
		PersonalitiesFile: strings.TrimSpace(os.Getenv("STUB_PERSONALITIES_FILE")),
		ChunkDelay:        delay,
	}, nil
}

// LogConfig 描述日志级别与输出位置。
type LogConfig struct {
	Level string
	File  string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level: strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		File:  strings.TrimSpace(os.Getenv("CHAT_LOG_FILE")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationMillisEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	ms, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return defaultValue, nil
	}
	if *ms < 0 {
		return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *ms)
	}
	return time.Duration(*ms) * time.Millisecond, nil
}
