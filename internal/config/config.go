package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. It is loaded once at startup and
// injected into components; nothing reads configuration from globals.
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Login       LoginConfig
	UserService UserServiceConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// Browser cookies keep at most 4096 bytes, so the serialized size of
	// caller-supplied extra claims is capped well below that.
	AdditionalPayloadSize int
}

type CookieConfig struct {
	Name     string
	Age      time.Duration
	Domain   string
	HTTPOnly bool
}

type LoginConfig struct {
	UsernameMinLength int
	PasswordMinLength int
	// Attributes of the user record allowed into login responses and token
	// payloads. Dotted paths (profile.firstName) reach into the profile.
	UserAttrsWhitelist []string
	// Key under which the projected user is returned by token login
	// responses. Configurable to avoid breaking older callers.
	UserDataResponseKey    string
	RejectDeactivatedUsers bool
}

type UserServiceConfig struct {
	URL     string
	Timeout time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "auth-service")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("ACCESS_TOKEN_TTL", "24h")
	viper.SetDefault("REFRESH_TOKEN_TTL", "8760h")
	viper.SetDefault("JWT_COOKIE_NAME", "jwt")
	viper.SetDefault("JWT_COOKIE_AGE", "240h")
	viper.SetDefault("JWT_COOKIE_HTTP_ONLY", true)
	viper.SetDefault("JWT_ADDITIONAL_PAYLOAD_SIZE", 3000)
	viper.SetDefault("USERNAME_MIN_LENGTH", 3)
	viper.SetDefault("PASSWORD_MIN_LENGTH", 6)
	viper.SetDefault("USER_ATTRS_WHITELIST", "id,firstName,lastName,email,scopes,roles,profile.firstName,profile.lastName")
	viper.SetDefault("USER_DATA_RESPONSE_KEY", "profile")
	viper.SetDefault("USER_SERVICE_URL", "http://user-service:5002")
	viper.SetDefault("USER_SERVICE_TIMEOUT", 10)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		JWT: JWTConfig{
			Secret:                os.Getenv("JWT_SECRET"),
			AccessTokenTTL:        viper.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTokenTTL:       viper.GetDuration("REFRESH_TOKEN_TTL"),
			AdditionalPayloadSize: viper.GetInt("JWT_ADDITIONAL_PAYLOAD_SIZE"),
		},
		Cookie: CookieConfig{
			Name:     viper.GetString("JWT_COOKIE_NAME"),
			Age:      viper.GetDuration("JWT_COOKIE_AGE"),
			Domain:   viper.GetString("JWT_COOKIE_DOMAIN"),
			HTTPOnly: viper.GetBool("JWT_COOKIE_HTTP_ONLY"),
		},
		Login: LoginConfig{
			UsernameMinLength:      viper.GetInt("USERNAME_MIN_LENGTH"),
			PasswordMinLength:      viper.GetInt("PASSWORD_MIN_LENGTH"),
			UserAttrsWhitelist:     parseList(viper.GetString("USER_ATTRS_WHITELIST")),
			UserDataResponseKey:    viper.GetString("USER_DATA_RESPONSE_KEY"),
			RejectDeactivatedUsers: viper.GetBool("REJECT_DEACTIVATED_USERS"),
		},
		UserService: UserServiceConfig{
			URL:     viper.GetString("USER_SERVICE_URL"),
			Timeout: time.Duration(viper.GetInt("USER_SERVICE_TIMEOUT")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
