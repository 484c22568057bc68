// Command otpkeeper stores 2FA credentials and serves their one-time
// passwords over a local HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	"github.com/oklog/run"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fmitra/otpkeeper/internal/accountapi"
	"github.com/fmitra/otpkeeper/internal/backup"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/entropy"
	"github.com/fmitra/otpkeeper/internal/httpapi"
	"github.com/fmitra/otpkeeper/internal/lockapi"
	"github.com/fmitra/otpkeeper/internal/otp"
	"github.com/fmitra/otpkeeper/internal/password"
	"github.com/fmitra/otpkeeper/internal/registry"
	"github.com/fmitra/otpkeeper/internal/secretstore"
	"github.com/fmitra/otpkeeper/internal/sqlite"
	"github.com/fmitra/otpkeeper/internal/token"
)

func main() {
	var err error

	var logger log.Logger
	{
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var configPath string
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	{
		fs.Bool("api.debug", false, "Enable debug logging")
		fs.String("api.http-addr", "127.0.0.1:8080", "Address to listen on")
		fs.String("api.allowed-origins", "", "Comma separated list of allowed origins, none by default")
		fs.String("db.dir", defaultDataDir(), "Directory of the database file")
		fs.Duration("db.lock-timeout", 10*time.Second, "Maximum wait for the migration lock")
		fs.String("vault.backend", "", "Keyring backend, empty selects the OS default")
		fs.String("vault.file-dir", "", "Directory of the encrypted file vault")
		fs.String("vault.file-password", "", "Password of the encrypted file vault")
		fs.Int("otp.period", otp.DefaultPeriod, "TOTP window in seconds")
		fs.Int("otp.digits", otp.DefaultDigits, "OTP code length")
		fs.String("otp.algorithm", "SHA1", "OTP HMAC algorithm")
		fs.Duration("token.expires-in", time.Minute*15, "Unlock token expiry time")
		fs.String("token.secret", "", "Unlock token secret, random when empty")
		fs.Int("password.min-length", 4, "Minimum unlock password length")
		fs.Int("password.max-length", 72, "Maximum unlock password length")
		fs.Int("qrcode.size", 256, "Pixel size of exported QR codes")

		fs.StringVar(&configPath, "config", "", "Path to the config file")
		err = fs.Parse(os.Args[1:])
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		if err != nil {
			logger.Log("message", "failed to parse cli flags", "error", err, "source", "cmd/otpkeeper")
			os.Exit(1)
		}
	}

	if _, err = os.Stat(configPath); configPath != "" && !os.IsNotExist(err) {
		viper.SetConfigFile(configPath)
		err = viper.ReadInConfig()
		if err != nil {
			logger.Log("message", "failed to load config file", "error", err, "source", "cmd/otpkeeper")
			os.Exit(1)
		}
	}
	if err = viper.BindPFlags(fs); err != nil {
		logger.Log("message", "failed to load cli flags", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}

	if viper.GetBool("api.debug") {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	algorithm, err := otp.ParseAlgorithm(viper.GetString("otp.algorithm"))
	if err != nil {
		logger.Log("message", "invalid otp algorithm", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}
	otpOpts := []otp.ConfigOption{
		otp.WithPeriod(viper.GetInt("otp.period")),
		otp.WithDigits(viper.GetInt("otp.digits")),
		otp.WithAlgorithm(algorithm),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbDir := viper.GetString("db.dir")
	if err = os.MkdirAll(dbDir, 0o700); err != nil {
		logger.Log("message", "cannot create data directory", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}

	repoMngr, err := sqlite.Open(
		ctx,
		dbDir,
		sqlite.WithLogger(logger),
		sqlite.WithLockTimeout(viper.GetDuration("db.lock-timeout")),
	)
	if err != nil {
		logger.Log("message", "database setup failed", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}
	defer func() {
		if err = repoMngr.Close(); err != nil {
			logger.Log(
				"message", "failed to close database",
				"error", err,
				"source", "cmd/otpkeeper",
			)
		}
	}()

	passwordSvc := password.NewPassword(
		password.WithMinLength(viper.GetInt("password.min-length")),
		password.WithMaxLength(viper.GetInt("password.max-length")),
	)

	rings, err := secretstore.OpenRings(secretstore.VaultConfig{
		Backend:      viper.GetString("vault.backend"),
		FileDir:      viper.GetString("vault.file-dir"),
		FilePassword: viper.GetString("vault.file-password"),
	})
	if err != nil {
		logger.Log("message", "vault is not available", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}

	store := secretstore.NewStore(
		secretstore.WithLogger(logger),
		secretstore.WithRings(rings),
		secretstore.WithPassword(passwordSvc),
	)

	tokenSvc, err := token.NewService(
		token.WithLogger(logger),
		token.WithEntropy(entropy.New()),
		token.WithTokenExpiry(viper.GetDuration("token.expires-in")),
		token.WithSecret(viper.GetString("token.secret")),
	)
	if err != nil {
		logger.Log("message", "token service setup failed", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}

	credentials := credential.NewService(
		credential.WithLogger(logger),
		credential.WithRepoManager(repoMngr),
		credential.WithSecretStore(store),
		credential.WithOTPOptions(otpOpts...),
	)

	accounts := registry.NewRegistry(
		registry.WithLogger(logger),
		registry.WithService(credentials),
	)
	if err = accounts.Load(ctx); err != nil {
		logger.Log("message", "failed to load accounts", "error", err, "source", "cmd/otpkeeper")
		os.Exit(1)
	}

	accountAPI := accountapi.NewService(
		accountapi.WithLogger(logger),
		accountapi.WithCredentials(credentials),
		accountapi.WithRegistry(accounts),
		accountapi.WithBackup(backup.NewBackup(credentials, accounts, logger)),
		accountapi.WithQRSize(viper.GetInt("qrcode.size")),
	)

	lockAPI := lockapi.NewService(
		lockapi.WithLogger(logger),
		lockapi.WithSecretStore(store),
		lockapi.WithPasswordService(passwordSvc),
		lockapi.WithTokenService(tokenSvc),
	)

	router := mux.NewRouter()
	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	accountapi.SetupHTTPHandler(accountAPI, router, store, tokenSvc, logger)
	lockapi.SetupHTTPHandler(lockAPI, router, store, tokenSvc, logger)

	server := http.Server{
		Addr: viper.GetString("api.http-addr"),
		Handler: httpapi.CORS(
			router,
			strings.Split(viper.GetString("api.allowed-origins"), ","),
		),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	countdownCtx, stopCountdown := context.WithCancel(ctx)

	var g run.Group
	{
		g.Add(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			return fmt.Errorf("signal received: %v", <-sig)
		}, func(err error) {
			logger.Log("message", "program was interrupted", "error", err, "source", "cmd/otpkeeper")
			cancel()
		})
	}
	{
		g.Add(func() error {
			logger.Log(
				"message", "countdown is running",
				"accounts", accounts.Count(),
				"source", "cmd/otpkeeper",
			)
			return accounts.Run(countdownCtx)
		}, func(err error) {
			stopCountdown()
			logger.Log(
				"message", "countdown was shut down",
				"error", err,
				"source", "cmd/otpkeeper",
			)
		})
	}
	{
		g.Add(func() error {
			logger.Log(
				"message", "API server is starting",
				"address", server.Addr,
				"source", "cmd/otpkeeper",
			)
			return server.ListenAndServe()
		}, func(err error) {
			logger.Log(
				"message", "API server was interrupted",
				"error", err,
				"source", "cmd/otpkeeper",
			)
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			logger.Log(
				"message", "API server shut down",
				"error", server.Shutdown(shutdownCtx),
				"source", "cmd/otpkeeper",
			)
		})
	}

	err = g.Run()
	logger.Log("message", "actors stopped", "error", err, "source", "cmd/otpkeeper")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "otpkeeper"
	}
	return filepath.Join(dir, "otpkeeper")
}
