package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	awsclient "github.com/gasport/gasport-api/internal/client/aws"
	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/types"
)

// Contracts holds the fixed target addresses for each delegated action.
// Targets come from configuration only; request parameters never choose them.
type Contracts struct {
	PassportNFT     common.Address
	SwapRouter      common.Address
	LicenseRegistry common.Address
	PaymentToken    common.Address
}

// Config is the full runtime configuration, resolved once at startup.
type Config struct {
	Stage string
	Port  string

	RedisURL    string
	DatabaseURL string // optional; enables the execution audit log

	BundlerURL  string
	ChainRPCURL string
	ChainID     int64
	EntryPoint  common.Address

	// RelayerAccount is the smart account the relayer submits operations
	// from. A single shared identity across all requests.
	RelayerAccount common.Address
	// RelayerPrivateKey is the hex-encoded signing key for the relayer,
	// resolved from Secrets Manager in deployed stages.
	RelayerPrivateKey string

	Contracts Contracts

	// DefaultPermissions is the explicit bundle granted when a delegation is
	// auto-created. Empty means narrow grants: exactly the requested action.
	DefaultPermissions []types.ActionKind

	MinLicensePriceWei *big.Int
	MaxOperationValue  *big.Int
}

// Load resolves configuration from the environment. The relayer key is
// fetched from AWS Secrets Manager when RELAYER_KEY_SECRET_ARN is set,
// falling back to the RELAYER_PRIVATE_KEY env var.
func Load(ctx context.Context) (*Config, error) {
	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = constants.StageLocal
	}
	if !constants.IsValidStage(stage) {
		return nil, fmt.Errorf("invalid STAGE %q, must be one of: %s, %s, %s",
			stage, constants.StageProd, constants.StageDev, constants.StageLocal)
	}

	cfg := &Config{
		Stage:       stage,
		Port:        getEnvWithDefault("PORT", "8080"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BundlerURL:  os.Getenv("BUNDLER_URL"),
		ChainRPCURL: os.Getenv("CHAIN_RPC_URL"),
	}

	chainID, err := strconv.ParseInt(getEnvWithDefault("CHAIN_ID", "11155111"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_ID: %w", err)
	}
	cfg.ChainID = chainID

	for _, target := range []struct {
		envVar string
		dest   *common.Address
	}{
		{"ENTRYPOINT_ADDRESS", &cfg.EntryPoint},
		{"RELAYER_ACCOUNT", &cfg.RelayerAccount},
		{"PASSPORT_NFT_ADDRESS", &cfg.Contracts.PassportNFT},
		{"SWAP_ROUTER_ADDRESS", &cfg.Contracts.SwapRouter},
		{"LICENSE_REGISTRY_ADDRESS", &cfg.Contracts.LicenseRegistry},
		{"PAYMENT_TOKEN_ADDRESS", &cfg.Contracts.PaymentToken},
	} {
		raw := os.Getenv(target.envVar)
		if raw == "" {
			return nil, fmt.Errorf("%s environment variable is required", target.envVar)
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%s is not a valid address: %q", target.envVar, raw)
		}
		*target.dest = common.HexToAddress(raw)
	}

	key, err := resolveRelayerKey(ctx, stage)
	if err != nil {
		return nil, err
	}
	cfg.RelayerPrivateKey = key

	perms, err := parsePermissions(os.Getenv("RELAY_DEFAULT_PERMISSIONS"))
	if err != nil {
		return nil, err
	}
	cfg.DefaultPermissions = perms

	minPrice, ok := new(big.Int).SetString(getEnvWithDefault("MIN_LICENSE_PRICE_WEI", "1000000000000000"), 10)
	if !ok {
		return nil, fmt.Errorf("invalid MIN_LICENSE_PRICE_WEI")
	}
	cfg.MinLicensePriceWei = minPrice

	maxValue, ok := new(big.Int).SetString(getEnvWithDefault("MAX_OPERATION_VALUE_WEI", "1000000000000000000"), 10)
	if !ok {
		return nil, fmt.Errorf("invalid MAX_OPERATION_VALUE_WEI")
	}
	cfg.MaxOperationValue = maxValue

	return cfg, nil
}

func resolveRelayerKey(ctx context.Context, stage string) (string, error) {
	// Local development reads the key straight from the environment; no AWS
	// roundtrip and no Secrets Manager dependency.
	if stage == constants.StageLocal {
		key := os.Getenv("RELAYER_PRIVATE_KEY")
		if key == "" {
			return "", fmt.Errorf("RELAYER_PRIVATE_KEY environment variable is required")
		}
		return key, nil
	}

	smClient, err := awsclient.NewSecretsManagerClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create Secrets Manager client: %w", err)
	}
	return smClient.GetSecretString(ctx, "RELAYER_KEY_SECRET_ARN", "RELAYER_PRIVATE_KEY")
}

func parsePermissions(raw string) ([]types.ActionKind, error) {
	if raw == "" {
		return nil, nil
	}

	var perms []types.ActionKind
	for _, part := range strings.Split(raw, ",") {
		kind := types.ActionKind(strings.TrimSpace(part))
		if kind == "" {
			continue
		}
		if !types.IsKnownAction(kind) {
			return nil, fmt.Errorf("unknown action kind in RELAY_DEFAULT_PERMISSIONS: %q", kind)
		}
		perms = append(perms, kind)
	}
	return perms, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
