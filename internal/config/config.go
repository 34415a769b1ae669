// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Transcript TranscriptConfig
	Audio      AudioConfig
	LLM        LLMConfig
	WebSearch  WebSearchConfig
	Rating     RatingConfig
	Plans      map[string]PlanLimits
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	APIKeys         []string
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig contains the cache/queue backend configuration.
// An empty URL selects the in-process cache and disables the prefetch queue.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
// An empty host disables event publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// TranscriptConfig contains extraction engine configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TranscriptConfig struct {
	PreferredLanguages []string
	MaxAttempts        int
	CacheTTL           time.Duration

	InvidiousInstances []string
	PipedInstances     []string
	MaxInstances       int

	YtDlpPath   string
	FFmpegPath  string
	WorkDir     string
	PaidAPIKey  string
	PaidBaseURL string

	// Circuit breaker / instance health tuning.
	FailureThreshold      int
	RecoveryTimeout       time.Duration
	InstanceFailThreshold int
	InstanceRecheck       time.Duration

	// Token bucket pacing for YouTube-bound requests.
	RateLimitEnabled bool
	RateLimitPerSec  float64
	RateLimitBurst   int

	Phase1Timeout  time.Duration
	Phase2Timeout  time.Duration
	AudioTimeout   time.Duration
	WhisperTimeout time.Duration
}

// AudioConfig gates the Phase 3 transcription providers. A missing key
// disables the corresponding method.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AudioConfig struct {
	GroqAPIKey      string
	GroqBaseURL     string
	OpenAIAPIKey    string
	DeepgramAPIKey  string
	DeepgramBaseURL string
	AssemblyAPIKey  string
	AssemblyBaseURL string
	MaxUploadBytes  int64
	ReencodeBitrate int
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// LLMConfig contains the OpenAI-compatible completion backend configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	ComplexModel string
	Timeout      time.Duration
	MaxParallel  int
}

// WebSearchConfig contains the search-augmented completion backend.
type WebSearchConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// RatingConfig contains the external content-rating API configuration.
type RatingConfig struct {
	APIKey      string
	BaseURL     string
	MaxParallel int
	CacheTTL    time.Duration
}

// PlanLimits is the per-plan quota and capability table. -1 means unlimited.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PlanLimits struct {
	MonthlyAnalyses   int
	ChatDailyLimit    int
	ChatPerVideoLimit int
	WebSearchMonthly  int
	WebSearchEnabled  bool
	DefaultModel      string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// PlanFor returns the limits for a plan name, falling back to the free plan.
func (c *Config) PlanFor(plan string) PlanLimits {
	if limits, ok := c.Plans[strings.ToLower(plan)]; ok {
		return limits
	}
	return c.Plans["free"]
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Database
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 30*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis
	viper.SetDefault("redis.url", "")

	// RabbitMQ
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "video.intelligence")
	viper.SetDefault("rabbitmq.queue", "video.intelligence.events")
	viper.SetDefault("rabbitmq.routingkey", "pipeline.event")

	// Transcript extraction
	viper.SetDefault("transcript.preferredlanguages", []string{"en", "fr"})
	viper.SetDefault("transcript.maxattempts", 10)
	viper.SetDefault("transcript.cachettl", 24*time.Hour)
	viper.SetDefault("transcript.invidiousinstances", []string{
		"https://yewtu.be",
		"https://inv.nadeko.net",
		"https://invidious.nerdvpn.de",
		"https://iv.ggtyler.dev",
		"https://invidious.f5.si",
	})
	viper.SetDefault("transcript.pipedinstances", []string{
		"https://pipedapi.kavin.rocks",
		"https://pipedapi.adminforge.de",
		"https://api.piped.yt",
	})
	viper.SetDefault("transcript.maxinstances", 5)
	viper.SetDefault("transcript.ytdlppath", "yt-dlp")
	viper.SetDefault("transcript.ffmpegpath", "ffmpeg")
	viper.SetDefault("transcript.workdir", "")
	viper.SetDefault("transcript.paidapikey", "")
	viper.SetDefault("transcript.paidbaseurl", "")
	viper.SetDefault("transcript.failurethreshold", 5)
	viper.SetDefault("transcript.recoverytimeout", 300*time.Second)
	viper.SetDefault("transcript.instancefailthreshold", 3)
	viper.SetDefault("transcript.instancerecheck", 600*time.Second)
	viper.SetDefault("transcript.ratelimitenabled", true)
	viper.SetDefault("transcript.ratelimitpersec", 2.0)
	viper.SetDefault("transcript.ratelimitburst", 10)
	viper.SetDefault("transcript.phase1timeout", 35*time.Second)
	viper.SetDefault("transcript.phase2timeout", 90*time.Second)
	viper.SetDefault("transcript.audiotimeout", 240*time.Second)
	viper.SetDefault("transcript.whispertimeout", 300*time.Second)

	// Audio transcription providers
	viper.SetDefault("audio.groqapikey", "")
	viper.SetDefault("audio.groqbaseurl", "https://api.groq.com/openai/v1")
	viper.SetDefault("audio.openaiapikey", "")
	viper.SetDefault("audio.deepgramapikey", "")
	viper.SetDefault("audio.deepgrambaseurl", "https://api.deepgram.com")
	viper.SetDefault("audio.assemblyapikey", "")
	viper.SetDefault("audio.assemblybaseurl", "https://api.assemblyai.com")
	viper.SetDefault("audio.maxuploadbytes", int64(25*1024*1024))
	viper.SetDefault("audio.reencodebitrate", 32)
	viper.SetDefault("audio.pollinterval", 3*time.Second)
	viper.SetDefault("audio.polltimeout", 5*time.Minute)

	// LLM
	viper.SetDefault("llm.apikey", "")
	viper.SetDefault("llm.baseurl", "")
	viper.SetDefault("llm.defaultmodel", "mistral-small-latest")
	viper.SetDefault("llm.complexmodel", "gpt-4o")
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.maxparallel", 6)

	// Web search (OpenAI-compatible with citations)
	viper.SetDefault("websearch.apikey", "")
	viper.SetDefault("websearch.baseurl", "https://api.perplexity.ai")
	viper.SetDefault("websearch.model", "sonar")
	viper.SetDefault("websearch.timeout", 60*time.Second)

	// Content rating
	viper.SetDefault("rating.apikey", "")
	viper.SetDefault("rating.baseurl", "")
	viper.SetDefault("rating.maxparallel", 10)
	viper.SetDefault("rating.cachettl", 24*time.Hour)

	// Plan limits. -1 means unlimited.
	setPlanDefaults("free", PlanLimits{MonthlyAnalyses: 5, ChatDailyLimit: 10, ChatPerVideoLimit: 5, WebSearchMonthly: 0, WebSearchEnabled: false, DefaultModel: "mistral-small-latest"})
	setPlanDefaults("student", PlanLimits{MonthlyAnalyses: 30, ChatDailyLimit: 50, ChatPerVideoLimit: 20, WebSearchMonthly: 20, WebSearchEnabled: true, DefaultModel: "mistral-small-latest"})
	setPlanDefaults("starter", PlanLimits{MonthlyAnalyses: 50, ChatDailyLimit: 100, ChatPerVideoLimit: 30, WebSearchMonthly: 50, WebSearchEnabled: true, DefaultModel: "mistral-small-latest"})
	setPlanDefaults("pro", PlanLimits{MonthlyAnalyses: 200, ChatDailyLimit: 300, ChatPerVideoLimit: 50, WebSearchMonthly: 200, WebSearchEnabled: true, DefaultModel: "gpt-4o"})
	setPlanDefaults("expert", PlanLimits{MonthlyAnalyses: 500, ChatDailyLimit: -1, ChatPerVideoLimit: -1, WebSearchMonthly: 500, WebSearchEnabled: true, DefaultModel: "gpt-4o"})
	setPlanDefaults("team", PlanLimits{MonthlyAnalyses: -1, ChatDailyLimit: -1, ChatPerVideoLimit: -1, WebSearchMonthly: 1000, WebSearchEnabled: true, DefaultModel: "gpt-4o"})
	setPlanDefaults("unlimited", PlanLimits{MonthlyAnalyses: -1, ChatDailyLimit: -1, ChatPerVideoLimit: -1, WebSearchMonthly: -1, WebSearchEnabled: true, DefaultModel: "gpt-4o"})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

func setPlanDefaults(name string, limits PlanLimits) {
	prefix := "plans." + name + "."
	viper.SetDefault(prefix+"monthlyanalyses", limits.MonthlyAnalyses)
	viper.SetDefault(prefix+"chatdailylimit", limits.ChatDailyLimit)
	viper.SetDefault(prefix+"chatpervideolimit", limits.ChatPerVideoLimit)
	viper.SetDefault(prefix+"websearchmonthly", limits.WebSearchMonthly)
	viper.SetDefault(prefix+"websearchenabled", limits.WebSearchEnabled)
	viper.SetDefault(prefix+"defaultmodel", limits.DefaultModel)
}
