package config

import (
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github/chapool/go-gasless/internal/wallet/address"
)

const (
	// EnvPrefix is prepended to every configuration key when read from the environment.
	EnvPrefix = "GASLESS"

	// BaseSepoliaChainID is the only network the service targets by default.
	BaseSepoliaChainID int64 = 84532

	// DefaultTokenAddress is the SBC test token on Base Sepolia.
	DefaultTokenAddress = "0xf9FB20B8E097904f0aB7d12e9DbeE88f2dcd0F16"

	// DefaultEntryPoint is the ERC-4337 v0.6 EntryPoint.
	DefaultEntryPoint = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"
)

// PermitAmountPolicy decides the permit value when a request does not carry one.
type PermitAmountPolicy string

const (
	PermitAmountFullBalance PermitAmountPolicy = "full_balance"
	PermitAmountExplicit    PermitAmountPolicy = "explicit"
)

type EchoServer struct {
	Debug                          bool
	ListenAddress                  string
	HideInternalServerErrorDetails bool
	BaseURL                        string
	EnableCORSMiddleware           bool
	EnableLoggerMiddleware         bool
	EnableRecoverMiddleware        bool
	EnableRequestIDMiddleware      bool
	EnableTrailingSlashMiddleware  bool
	EnablePrometheusMiddleware     bool
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	LogRequestBody     bool
	LogRequestHeader   bool
	LogRequestQuery    bool
	LogResponseBody    bool
	LogResponseHeader  bool
	LogCaller          bool
	PrettyPrintConsole bool
}

type ManagementServer struct {
	ProbeReadinessTimeout time.Duration
}

type Chain struct {
	RPCURLs      []string
	ChainID      int64
	TokenAddress string
	RPCTimeout   time.Duration
}

type Permit struct {
	Version      string
	Validity     time.Duration
	AmountPolicy PermitAmountPolicy
}

type Sponsor struct {
	BundlerURL          string
	PaymasterURL        string
	EntryPoint          string
	SmartAccount        string
	OwnerIndex          int
	Mode                string
	CalculateGasLimits  bool
	ExpiryDuration      time.Duration
	PolicyID            string
	WebhookData         string
	WaitForReceipt      bool
	ReceiptPollInterval time.Duration
}

type Wallet struct {
	KeystorePath     string
	KeystorePassword string `json:"-"` // sensitive
	EmbeddedAccounts int
}

type Lock struct {
	RedisAddr     string
	RedisPassword string `json:"-"` // sensitive
	RedisDB       int
	Expiry        time.Duration
}

type Server struct {
	Echo       EchoServer
	Management ManagementServer
	Logger     LoggerServer
	Chain      Chain
	Permit     Permit
	Sponsor    Sponsor
	Wallet     Wallet
	Lock       Lock
}

// ChainIDBig returns the configured chain id as *big.Int.
func (c Chain) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// UsesRedis reports whether flows are serialized across processes.
func (l Lock) UsesRedis() bool {
	return l.RedisAddr != ""
}

// ParseRPCURLs splits a comma separated list of endpoints and drops blanks.
func ParseRPCURLs(raw string) []string {
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}

	return urls
}

var dotEnvOnce sync.Once

// loadDotEnv applies the project's .env file (if any) to the process env without
// overriding values that are already set.
func loadDotEnv() {
	dotEnvOnce.Do(func() {
		path := filepath.Join(projectRoot(), ".env")
		if _, err := os.Stat(path); err != nil {
			return
		}

		if err := gotenv.Load(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to load .env file")
		}
	})
}

func projectRoot() string {
	if dir := os.Getenv("PROJECT_ROOT_DIR"); dir != "" {
		return dir
	}

	//nolint:dogsled
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.echo.debug", false)
	v.SetDefault("server.echo.listen_address", ":8080")
	v.SetDefault("server.echo.hide_internal_server_error_details", true)
	v.SetDefault("server.echo.base_url", "http://localhost:8080")
	v.SetDefault("server.echo.enable_cors_middleware", true)
	v.SetDefault("server.echo.enable_logger_middleware", true)
	v.SetDefault("server.echo.enable_recover_middleware", true)
	v.SetDefault("server.echo.enable_request_id_middleware", true)
	v.SetDefault("server.echo.enable_trailing_slash_middleware", true)
	v.SetDefault("server.echo.enable_prometheus_middleware", true)

	v.SetDefault("server.management.probe_readiness_timeout", 4*time.Second)

	v.SetDefault("logger.level", zerolog.DebugLevel.String())
	v.SetDefault("logger.request_level", zerolog.DebugLevel.String())
	v.SetDefault("logger.log_request_body", false)
	v.SetDefault("logger.log_request_header", false)
	v.SetDefault("logger.log_request_query", false)
	v.SetDefault("logger.log_response_body", false)
	v.SetDefault("logger.log_response_header", false)
	v.SetDefault("logger.log_caller", false)
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("chain.rpc_urls", "https://sepolia.base.org")
	v.SetDefault("chain.id", BaseSepoliaChainID)
	v.SetDefault("chain.token_address", DefaultTokenAddress)
	v.SetDefault("chain.rpc_timeout", 10*time.Second)

	v.SetDefault("permit.version", "1")
	v.SetDefault("permit.validity", time.Hour)
	v.SetDefault("permit.amount_policy", string(PermitAmountFullBalance))

	v.SetDefault("sponsor.bundler_url", "")
	v.SetDefault("sponsor.paymaster_url", "")
	v.SetDefault("sponsor.entry_point", DefaultEntryPoint)
	v.SetDefault("sponsor.smart_account", "")
	v.SetDefault("sponsor.owner_index", 0)
	v.SetDefault("sponsor.mode", "SPONSORED")
	v.SetDefault("sponsor.calculate_gas_limits", true)
	v.SetDefault("sponsor.expiry_duration", time.Hour)
	v.SetDefault("sponsor.policy_id", "")
	v.SetDefault("sponsor.webhook_data", "")
	v.SetDefault("sponsor.wait_for_receipt", true)
	v.SetDefault("sponsor.receipt_poll_interval", 2*time.Second)

	v.SetDefault("wallet.keystore_path", "/app/keystore.json")
	v.SetDefault("wallet.keystore_password", "")
	v.SetDefault("wallet.embedded_accounts", 1)

	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.expiry", 2*time.Minute)

	return v
}

func parseLevel(v *viper.Viper, key string, fallback zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(v.GetString(key))
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Invalid log level, falling back to default")
		return fallback
	}

	return lvl
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined above.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
// Do NOT use os.Setenv / os.Unsetenv in tests utilizing DefaultServiceConfigFromEnv()!
func DefaultServiceConfigFromEnv() Server {
	loadDotEnv()

	v := newViper()

	return Server{
		Echo: EchoServer{
			Debug:                          v.GetBool("server.echo.debug"),
			ListenAddress:                  v.GetString("server.echo.listen_address"),
			HideInternalServerErrorDetails: v.GetBool("server.echo.hide_internal_server_error_details"),
			BaseURL:                        v.GetString("server.echo.base_url"),
			EnableCORSMiddleware:           v.GetBool("server.echo.enable_cors_middleware"),
			EnableLoggerMiddleware:         v.GetBool("server.echo.enable_logger_middleware"),
			EnableRecoverMiddleware:        v.GetBool("server.echo.enable_recover_middleware"),
			EnableRequestIDMiddleware:      v.GetBool("server.echo.enable_request_id_middleware"),
			EnableTrailingSlashMiddleware:  v.GetBool("server.echo.enable_trailing_slash_middleware"),
			EnablePrometheusMiddleware:     v.GetBool("server.echo.enable_prometheus_middleware"),
		},
		Management: ManagementServer{
			ProbeReadinessTimeout: v.GetDuration("server.management.probe_readiness_timeout"),
		},
		Logger: LoggerServer{
			Level:              parseLevel(v, "logger.level", zerolog.DebugLevel),
			RequestLevel:       parseLevel(v, "logger.request_level", zerolog.DebugLevel),
			LogRequestBody:     v.GetBool("logger.log_request_body"),
			LogRequestHeader:   v.GetBool("logger.log_request_header"),
			LogRequestQuery:    v.GetBool("logger.log_request_query"),
			LogResponseBody:    v.GetBool("logger.log_response_body"),
			LogResponseHeader:  v.GetBool("logger.log_response_header"),
			LogCaller:          v.GetBool("logger.log_caller"),
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
		Chain: Chain{
			RPCURLs:      ParseRPCURLs(v.GetString("chain.rpc_urls")),
			ChainID:      v.GetInt64("chain.id"),
			TokenAddress: v.GetString("chain.token_address"),
			RPCTimeout:   v.GetDuration("chain.rpc_timeout"),
		},
		Permit: Permit{
			Version:      v.GetString("permit.version"),
			Validity:     v.GetDuration("permit.validity"),
			AmountPolicy: PermitAmountPolicy(v.GetString("permit.amount_policy")),
		},
		Sponsor: Sponsor{
			BundlerURL:          v.GetString("sponsor.bundler_url"),
			PaymasterURL:        v.GetString("sponsor.paymaster_url"),
			EntryPoint:          v.GetString("sponsor.entry_point"),
			SmartAccount:        v.GetString("sponsor.smart_account"),
			OwnerIndex:          v.GetInt("sponsor.owner_index"),
			Mode:                v.GetString("sponsor.mode"),
			CalculateGasLimits:  v.GetBool("sponsor.calculate_gas_limits"),
			ExpiryDuration:      v.GetDuration("sponsor.expiry_duration"),
			PolicyID:            v.GetString("sponsor.policy_id"),
			WebhookData:         v.GetString("sponsor.webhook_data"),
			WaitForReceipt:      v.GetBool("sponsor.wait_for_receipt"),
			ReceiptPollInterval: v.GetDuration("sponsor.receipt_poll_interval"),
		},
		Wallet: Wallet{
			KeystorePath:     v.GetString("wallet.keystore_path"),
			KeystorePassword: v.GetString("wallet.keystore_password"),
			EmbeddedAccounts: v.GetInt("wallet.embedded_accounts"),
		},
		Lock: Lock{
			RedisAddr:     v.GetString("lock.redis_addr"),
			RedisPassword: v.GetString("lock.redis_password"),
			RedisDB:       v.GetInt("lock.redis_db"),
			Expiry:        v.GetDuration("lock.expiry"),
		},
	}
}

// Validate checks values that would otherwise only fail deep inside a flow.
func (s Server) Validate() error {
	if len(s.Chain.RPCURLs) == 0 {
		return errors.New("at least one RPC URL is required")
	}

	if s.Chain.ChainID <= 0 {
		return errors.Errorf("invalid chain id %d", s.Chain.ChainID)
	}

	if !address.IsValid(s.Chain.TokenAddress) {
		return errors.Wrapf(address.ErrInvalidAddress, "token address %q", s.Chain.TokenAddress)
	}

	if s.Permit.Validity <= 0 {
		return errors.New("permit validity must be positive")
	}

	switch s.Permit.AmountPolicy {
	case PermitAmountFullBalance, PermitAmountExplicit:
	default:
		return errors.Errorf("unknown permit amount policy %q", s.Permit.AmountPolicy)
	}

	if !address.IsValid(s.Sponsor.EntryPoint) {
		return errors.Wrapf(address.ErrInvalidAddress, "entry point %q", s.Sponsor.EntryPoint)
	}

	if s.Sponsor.SmartAccount != "" && !address.IsValid(s.Sponsor.SmartAccount) {
		return errors.Wrapf(address.ErrInvalidAddress, "smart account %q", s.Sponsor.SmartAccount)
	}

	if s.Wallet.EmbeddedAccounts < 1 {
		return errors.New("at least one embedded account is required")
	}

	if s.Sponsor.OwnerIndex < 0 || s.Sponsor.OwnerIndex >= s.Wallet.EmbeddedAccounts {
		return errors.Errorf("sponsor owner index %d out of range", s.Sponsor.OwnerIndex)
	}

	return nil
}
