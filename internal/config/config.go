package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains runtime configuration required by the service.
// It is built once in main and handed to each client at construction time.
type Config struct {
	Port        string
	HTTPTimeout time.Duration
	DBURL       string
	APIKeys     map[string]string // apiKey -> ticket-service user id
	UserMap     map[string]string // slack user id -> ticket-service user id

	Slack  SlackConfig
	Zoho   ZohoConfig
	OpenAI OpenAIConfig
	Dedup  DedupConfig
	Worker WorkerConfig
	Log    LogConfig
}

// SlackConfig holds the bot token used for replies and the signing secret
// used to verify inbound events. An empty secret disables verification.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	APIURL        string
}

// ZohoConfig holds the ticket-service identifiers that used to be literals in the request paths.
type ZohoConfig struct {
	AccessToken     string
	BaseURL         string
	TeamID          string
	ProjectID       string
	ItemTypeID      string
	PriorityID      string
	Portal          string
	ReadAuthScheme  string
	WriteAuthScheme string
}

// OpenAIConfig selects the chat-completion backend. Without an API key the
// classifier uses local rules. Timeout bounds one classification, which is
// also the longest a user waits for the first reply.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DedupConfig bounds the set of remembered event keys.
type DedupConfig struct {
	TTL  time.Duration
	Size int
}

// WorkerConfig sizes the background pool: goroutines and queued tasks.
type WorkerConfig struct {
	Count int
	Queue int
}

// LogConfig selects level and format; SentryDSN enables error forwarding.
type LogConfig struct {
	Level       string
	Format      string
	SentryDSN   string
	Environment string
}

var defaults = map[string]any{
	"port":                   "8080",
	"http_timeout":           30 * time.Second,
	"slack_api_url":          "https://slack.com/api/",
	"zoho_api_base_url":      "https://sprintsapi.zoho.com/zsapi",
	"zoho_portal":            "decisiontree",
	"zoho_read_auth_scheme":  "Bearer",
	"zoho_write_auth_scheme": "Zoho-oauthtoken",
	"openai_model":           "gpt-3.5-turbo",
	"openai_timeout":         10 * time.Second,
	"dedup_ttl":              10 * time.Minute,
	"dedup_size":             1000,
	"worker_count":           8,
	"worker_queue":           256,
	"log_level":              "info",
	"log_format":             "text",
	"environment":            "development",
}

// Load reads configuration from environment variables, optionally layered over
// a config file named by SPRINTBOT_CONFIG (any format viper understands).
// API_KEYS format: "user:key,user:key"
// SPRINTBOT_USER_MAP format: "slackUser:zohoUser,slackUser:zohoUser"
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that only need part of the config.
func Read() (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("SPRINTBOT_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	apiKeys, err := parsePairs(v.GetString("api_keys"), `API_KEYS must be "user:key,user:key"`)
	if err != nil {
		return Config{}, err
	}
	// Stored as key -> user so the middleware can look callers up directly.
	byKey := make(map[string]string, len(apiKeys))
	for user, key := range apiKeys {
		byKey[key] = user
	}

	userMap, err := parsePairs(v.GetString("sprintbot_user_map"), `SPRINTBOT_USER_MAP must be "slack:zoho,slack:zoho"`)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        strings.TrimSpace(v.GetString("port")),
		HTTPTimeout: v.GetDuration("http_timeout"),
		DBURL:       strings.TrimSpace(v.GetString("db_url")),
		APIKeys:     byKey,
		UserMap:     userMap,
		Slack: SlackConfig{
			BotToken:      strings.TrimSpace(v.GetString("slack_bot_token")),
			SigningSecret: strings.TrimSpace(v.GetString("slack_signing_secret")),
			APIURL:        strings.TrimSpace(v.GetString("slack_api_url")),
		},
		Zoho: ZohoConfig{
			AccessToken:     strings.TrimSpace(v.GetString("zoho_access_token")),
			BaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("zoho_api_base_url")), "/"),
			TeamID:          strings.TrimSpace(v.GetString("zoho_team_id")),
			ProjectID:       strings.TrimSpace(v.GetString("zoho_project_id")),
			ItemTypeID:      strings.TrimSpace(v.GetString("zoho_item_type_id")),
			PriorityID:      strings.TrimSpace(v.GetString("zoho_priority_id")),
			Portal:          strings.TrimSpace(v.GetString("zoho_portal")),
			ReadAuthScheme:  strings.TrimSpace(v.GetString("zoho_read_auth_scheme")),
			WriteAuthScheme: strings.TrimSpace(v.GetString("zoho_write_auth_scheme")),
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(v.GetString("openai_api_key")),
			BaseURL: strings.TrimSpace(v.GetString("openai_base_url")),
			Model:   strings.TrimSpace(v.GetString("openai_model")),
			Timeout: v.GetDuration("openai_timeout"),
		},
		Dedup: DedupConfig{
			TTL:  v.GetDuration("dedup_ttl"),
			Size: v.GetInt("dedup_size"),
		},
		Worker: WorkerConfig{
			Count: v.GetInt("worker_count"),
			Queue: v.GetInt("worker_queue"),
		},
		Log: LogConfig{
			Level:       strings.TrimSpace(v.GetString("log_level")),
			Format:      strings.TrimSpace(v.GetString("log_format")),
			SentryDSN:   strings.TrimSpace(v.GetString("sentry_dsn")),
			Environment: strings.TrimSpace(v.GetString("environment")),
		},
	}
	return cfg, nil
}

// Validate checks required values and numeric bounds.
func (c Config) Validate() error {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	missing = append(missing, c.Zoho.missing()...)
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	if c.Dedup.TTL <= 0 || c.Dedup.Size <= 0 {
		return errors.New("DEDUP_TTL and DEDUP_SIZE must be positive")
	}
	if c.Worker.Count <= 0 || c.Worker.Queue <= 0 {
		return errors.New("WORKER_COUNT and WORKER_QUEUE must be positive")
	}
	return nil
}

// Validate checks only what the ticket client needs.
func (z ZohoConfig) Validate() error {
	if missing := z.missing(); len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

func (z ZohoConfig) missing() []string {
	var missing []string
	if z.AccessToken == "" {
		missing = append(missing, "ZOHO_ACCESS_TOKEN")
	}
	if z.TeamID == "" {
		missing = append(missing, "ZOHO_TEAM_ID")
	}
	if z.ProjectID == "" {
		missing = append(missing, "ZOHO_PROJECT_ID")
	}
	return missing
}

// parsePairs parses "a:b,c:d" into {a: b, c: d}. Empty input yields an empty map.
func parsePairs(raw, formatErr string) (map[string]string, error) {
	out := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(formatErr)
		}
		left := strings.TrimSpace(parts[0])
		right := strings.TrimSpace(parts[1])
		if left == "" || right == "" {
			return nil, errors.New(formatErr)
		}
		out[left] = right
	}
	return out, nil
}
