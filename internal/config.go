package internal

import (
	"anon-chat/access"
	"anon-chat/domain"
	"anon-chat/settings"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	TelegramBotToken  string        `env:"TELEGRAM_BOT_TOKEN,required=true"`
	AdminIDs          string        `env:"ADMIN_IDS"`
	AdminPrivileges   string        `env:"ADMIN_PRIVILEGES"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL,default=5s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=1m"`
	ConnectionTimeout int           `env:"CONNECTION_TIMEOUT,default=45"`
	WarningAfter      time.Duration `env:"WARNING_AFTER,default=30s"`
	WarningUntil      time.Duration `env:"WARNING_UNTIL,default=35s"`
	MaxGroupSize      int           `env:"MAX_GROUP_SIZE,default=10"`
	RevealTimeout     int           `env:"REVEAL_TIMEOUT,default=300"`
	BannedWordsDir    string        `env:"BANNED_WORDS_DIR"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	AuditFilepath     string        `env:"AUDIT_FILEPATH"`
	AuditLimit        int           `env:"AUDIT_LIMIT,default=20"`
	MetricsPort       int           `env:"METRICS_PORT,default=9090"`
	DebugPort         int           `env:"DEBUG_PORT,default=8081"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=1s"`
	Selector          string        `env:"SELECTOR,default=random"`
	DefaultGroupName  string        `env:"DEFAULT_GROUP_NAME,default=Anonymous group"`
	SearchLimit       int           `env:"SEARCH_LIMIT,default=10"`
}

// LoadConfig reads an optional .env file then the process environment, which wins.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if config.WarningUntil <= config.WarningAfter {
		return Config{}, fmt.Errorf("WARNING_UNTIL (%s) must be after WARNING_AFTER (%s)",
			config.WarningUntil, config.WarningAfter)
	}
	if config.SweepInterval <= 0 || config.SweepInterval > config.WarningUntil-config.WarningAfter {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL (%s) must be positive and not longer than the warning band",
			config.SweepInterval)
	}
	return config, nil
}

// Admins parses ADMIN_IDS, a comma separated list of user ids.
func (c Config) Admins() ([]domain.UserID, error) {
	var admins []domain.UserID
	for _, part := range strings.Split(c.AdminIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS: %q is not a user id", part)
		}
		admins = append(admins, domain.UserID(id))
	}
	return lo.Uniq(admins), nil
}

// Privileges parses ADMIN_PRIVILEGES. Every admin gets all of them when it is empty.
func (c Config) Privileges() ([]access.Privilege, error) {
	return access.ParsePrivileges(c.AdminPrivileges)
}

// Settings builds the initial runtime settings and validates their bounds.
func (c Config) Settings(bannedWords []string) (settings.Settings, error) {
	s := settings.Settings{
		ConnectionTimeout: c.ConnectionTimeout,
		MaxGroupSize:      c.MaxGroupSize,
		RevealTimeout:     c.RevealTimeout,
	}
	s.AddWords(bannedWords...)
	if err := s.Validate(); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
