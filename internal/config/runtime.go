package config

import (
	"os"
	"strconv"
	"time"
)

type Runtime struct {
	HTTPAddr          string
	DefaultProvider   string
	DefaultOptions    string
	AuditLogPath      string
	PolicyFile        string
	ObsBuffer         int
	PlanCacheMaxItems int
	LogLevel          string
	MockDelay         time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

func Load() Runtime {
	return Runtime{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DefaultProvider:   getenv("ORCH_DEFAULT_PROVIDER", "mock"),
		DefaultOptions:    os.Getenv("ORCH_DEFAULT_OPTIONS"),
		AuditLogPath:      getenv("ORCH_AUDIT_LOG", "audit.log"),
		PolicyFile:        os.Getenv("ORCH_POLICY_FILE"),
		ObsBuffer:         getenvInt("ORCH_OBS_BUFFER", 4096, 1),
		PlanCacheMaxItems: getenvInt("ORCH_PLAN_CACHE_MAX_ITEMS", 1024, 1),
		LogLevel:          getenv("ORCH_LOG_LEVEL", "info"),
		MockDelay:         time.Duration(getenvInt("ORCH_MOCK_DELAY_MS", 0, 0)) * time.Millisecond,

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	return v
}
