package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GitHubToken     string `yaml:"github_token"`
	Repository      string `yaml:"repository"` // "owner/name"
	Branch          string `yaml:"branch"`
	UploadFolder    string `yaml:"upload_folder"`
	SolutionsFolder string `yaml:"solutions_folder"`

	CheckIntervalMinutes int    `yaml:"check_interval_minutes"`
	CheckSchedule        string `yaml:"check_schedule"` // optional 5-field cron, overrides the interval
	WorkerCount          int    `yaml:"worker_count"`
	SolveTimeoutMinutes  int    `yaml:"solve_timeout_minutes"`

	MaxFileSizeMB    int      `yaml:"max_file_size_mb"`
	SupportedFormats []string `yaml:"supported_formats"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	SMTPHost        string `yaml:"smtp_host"`
	SMTPPort        int    `yaml:"smtp_port"`
	SMTPUsername    string `yaml:"smtp_username"`
	SMTPPassword    string `yaml:"smtp_password"`
	NotifyRecipient string `yaml:"notify_recipient"`
	NotifyOnFailure bool   `yaml:"notify_on_failure"`

	HTTPAddr string `yaml:"http_addr"`
	TempDir  string `yaml:"temp_dir"`
	Timezone string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.GitHubToken, "GITHUB_TOKEN")
	envOverride(&cfg.Repository, "REPOSITORY")
	envOverride(&cfg.Branch, "BRANCH")
	envOverride(&cfg.UploadFolder, "UPLOAD_FOLDER")
	envOverride(&cfg.SolutionsFolder, "SOLUTIONS_FOLDER")
	envOverrideInt(&cfg.CheckIntervalMinutes, "CHECK_INTERVAL_MINUTES")
	envOverride(&cfg.CheckSchedule, "CHECK_SCHEDULE")
	envOverrideInt(&cfg.WorkerCount, "WORKER_COUNT")
	envOverrideInt(&cfg.SolveTimeoutMinutes, "SOLVE_TIMEOUT_MINUTES")
	envOverrideInt(&cfg.MaxFileSizeMB, "MAX_FILE_SIZE_MB")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.SMTPHost, "SMTP_HOST")
	envOverrideInt(&cfg.SMTPPort, "SMTP_PORT")
	envOverride(&cfg.SMTPUsername, "SMTP_USERNAME")
	envOverride(&cfg.SMTPPassword, "SMTP_PASSWORD")
	envOverride(&cfg.NotifyRecipient, "NOTIFY_RECIPIENT")
	envOverrideBool(&cfg.NotifyOnFailure, "NOTIFY_ON_FAILURE")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.TempDir, "TEMP_DIR")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if formats := os.Getenv("SUPPORTED_FORMATS"); formats != "" {
		cfg.SupportedFormats = nil
		for _, f := range strings.Split(formats, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				cfg.SupportedFormats = append(cfg.SupportedFormats, f)
			}
		}
	}

	// Defaults
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.UploadFolder == "" {
		cfg.UploadFolder = "problems"
	}
	if cfg.SolutionsFolder == "" {
		cfg.SolutionsFolder = "solutions"
	}
	if cfg.CheckIntervalMinutes == 0 {
		cfg.CheckIntervalMinutes = 30
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	if cfg.SolveTimeoutMinutes == 0 {
		cfg.SolveTimeoutMinutes = 5
	}
	if cfg.MaxFileSizeMB == 0 {
		cfg.MaxFileSizeMB = 50
	}
	if len(cfg.SupportedFormats) == 0 {
		cfg.SupportedFormats = []string{".txt", ".md", ".tex", ".pdf", ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"}
	}
	if cfg.AnthropicModel == "" {
		cfg.AnthropicModel = defaultAnthropicModel
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "./temp_files"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	if cfg.Repository == "" {
		log.Fatalf("Required config 'repository' is not set (via config.yaml or env var)")
	}
	if !strings.Contains(cfg.Repository, "/") {
		log.Fatalf("invalid repository '%s': expected owner/name", cfg.Repository)
	}
	if cfg.GitHubToken == "" {
		log.Fatalf("Required config 'github_token' is not set (via config.yaml or env var)")
	}
	if cfg.CheckIntervalMinutes < 1 {
		log.Fatalf("invalid check_interval_minutes '%d': must be >= 1", cfg.CheckIntervalMinutes)
	}
	if cfg.WorkerCount < 1 {
		log.Fatalf("invalid worker_count '%d': must be >= 1", cfg.WorkerCount)
	}
	if cfg.MaxFileSizeMB < 1 {
		log.Fatalf("invalid max_file_size_mb '%d': must be >= 1", cfg.MaxFileSizeMB)
	}
	if len(cfg.SupportedFormats) == 0 {
		log.Fatalf("supported_formats must not be empty")
	}
	for _, f := range cfg.SupportedFormats {
		if !strings.HasPrefix(f, ".") {
			log.Fatalf("invalid supported format '%s': must start with a dot", f)
		}
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if _, err := parseCheckSchedule(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.NotifyRecipient != ""
}

func (c Config) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutMinutes) * time.Minute
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
