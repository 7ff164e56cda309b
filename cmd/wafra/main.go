package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sosodev/duration"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/wafra-app/wafra-backend/pkg/auth"
	authapi "github.com/wafra-app/wafra-backend/pkg/auth/api"
	"github.com/wafra-app/wafra-backend/pkg/emailverification"
	emailverificationapi "github.com/wafra-app/wafra-backend/pkg/emailverification/api"
	"github.com/wafra-app/wafra-backend/pkg/nafath"
	nafathapi "github.com/wafra-app/wafra-backend/pkg/nafath/api"
	"github.com/wafra-app/wafra-backend/pkg/notice"
	"github.com/wafra-app/wafra-backend/pkg/notification"
	"github.com/wafra-app/wafra-backend/pkg/profile"
	profileapi "github.com/wafra-app/wafra-backend/pkg/profile/api"
	"github.com/wafra-app/wafra-backend/pkg/ratelimit"
	"github.com/wafra-app/wafra-backend/pkg/tokengenerator"
)

type WafraDbConfig struct {
	Host     string `env:"WAFRA_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"WAFRA_PG_PORT" env-default:"5432"`
	Database string `env:"WAFRA_PG_DATABASE" env-default:"wafra_db"`
	User     string `env:"WAFRA_PG_USER" env-default:"wafra"`
	Password string `env:"WAFRA_PG_PASSWORD" env-default:"pwd"`
}

func (d WafraDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type JwtConfig struct {
	Secret        string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer        string `env:"JWT_ISSUER" env-default:"wafra"`
	Audience      string `env:"JWT_AUDIENCE" env-default:"wafra-app"`
	SessionExpiry string `env:"SESSION_TOKEN_EXPIRY" env-default:"PT24H"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@wafra.app"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type NafathConfig struct {
	BaseURL string `env:"NAFATH_BASE_URL"`
	AppID   string `env:"NAFATH_APP_ID"`
	AppKey  string `env:"NAFATH_APP_KEY"`
}

type RateLimitConfig struct {
	PerIPEnabled    bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"` // ~100 per minute
}

type Config struct {
	BaseUrl          string `env:"BASE_URL" env-default:"http://localhost:4000"`
	FrontendUrl      string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	ResetTokenExpiry string `env:"RESET_TOKEN_EXPIRY" env-default:"PT10M"`
	WafraDbConfig    WafraDbConfig
	AppConfig        app.AppConfig
	JwtConfig        JwtConfig
	EmailConfig      EmailConfig
	NafathConfig     NafathConfig
	RateLimitConfig  RateLimitConfig
}

// loadEnvFile loads environment variables from a .env file if one exists
// next to the executable or in the working directory.
func loadEnvFile() {
	execPath, err := os.Executable()
	if err != nil {
		slog.Error("Failed to get executable path", "error", err)
		return
	}

	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		cwd, err := os.Getwd()
		if err != nil {
			slog.Error("Failed to get current working directory", "error", err)
			return
		}
		envFile = filepath.Join(cwd, ".env")
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RegisterHealthzRoutes(server.R)

	rateLimitConfig := ratelimit.DefaultConfig()
	rateLimitConfig.PerIPEnabled = config.RateLimitConfig.PerIPEnabled
	rateLimitConfig.PerIPCapacity = config.RateLimitConfig.PerIPCapacity
	rateLimitConfig.PerIPRefillRate = config.RateLimitConfig.PerIPRefillRate
	server.R.Use(ratelimit.NewMiddleware(rateLimitConfig).Handler)

	dbConfig := config.WafraDbConfig.toDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	repo := profile.NewPostgresRepository(pool)

	notificationManager, err := notice.NewNotificationManager(notification.SMTPConfig{
		Host:     config.EmailConfig.Host,
		Port:     int(config.EmailConfig.Port),
		Username: config.EmailConfig.Username,
		Password: config.EmailConfig.Password,
		From:     config.EmailConfig.From,
		TLS:      config.EmailConfig.TLS,
	})
	if err != nil {
		slog.Error("Failed to initialize notification manager", "err", err)
		os.Exit(-1)
	}

	sessionExpiry, err := duration.Parse(config.JwtConfig.SessionExpiry)
	if err != nil {
		slog.Error("Failed to parse session token expiry", "err", err)
		os.Exit(-1)
	}
	resetExpiry, err := duration.Parse(config.ResetTokenExpiry)
	if err != nil {
		slog.Error("Failed to parse reset token expiry", "err", err)
		os.Exit(-1)
	}

	tokenService := tokengenerator.NewTokenService(
		tokengenerator.NewJwtTokenGenerator(config.JwtConfig.Secret, config.JwtConfig.Issuer, config.JwtConfig.Audience),
		tokengenerator.WithSessionExpiry(sessionExpiry.ToTimeDuration()),
	)

	emailVerificationService := emailverification.NewEmailVerificationService(
		repo,
		config.FrontendUrl,
		emailverification.WithNotificationManager(notificationManager),
	)

	authService := auth.NewAuthService(
		repo,
		tokenService,
		auth.WithEmailVerifier(emailVerificationService),
		auth.WithNotificationManager(notificationManager),
		auth.WithResetTokenExpiry(resetExpiry.ToTimeDuration()),
		auth.WithBaseURL(config.FrontendUrl),
	)

	profileService := profile.NewProfileService(repo)

	var nafathClient nafath.Client
	if config.NafathConfig.BaseURL != "" {
		nafathClient = nafath.NewHTTPClient(config.NafathConfig.BaseURL, config.NafathConfig.AppID, config.NafathConfig.AppKey)
	} else {
		slog.Warn("NAFATH_BASE_URL not set, using mock nafath client")
		nafathClient = &nafath.MockClient{}
	}

	nafathService := nafath.NewNafathService(
		repo,
		nafath.NewTransactionRepository(),
		nafathClient,
		tokenService,
		nafath.WithNotificationManager(notificationManager),
		nafath.WithBaseURL(config.BaseUrl),
	)

	authHandle := authapi.NewHandle(authService)
	emailVerificationHandle := emailverificationapi.NewHandle(emailVerificationService)
	nafathHandle := nafathapi.NewHandle(nafathService)
	profileHandle := profileapi.NewHandle(profileService)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.Secret), nil)

	server.R.Route("/api/auth", func(r chi.Router) {
		authapi.RegisterRoutes(r, authHandle)
		emailverificationapi.RegisterRoutes(r, emailVerificationHandle)
		nafathapi.RegisterRoutes(r, nafathHandle)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			authapi.RegisterProtectedRoutes(r, authHandle)
		})
	})

	server.R.Route("/api/profile", func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		profileapi.RegisterRoutes(r, profileHandle)
	})

	server.Run()
}
