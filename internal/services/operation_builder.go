package services

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/config"
	"github.com/gasport/gasport-api/internal/types"
)

// ABI fragments for the contracts behind each delegated action. Targets are
// fixed in configuration; request parameters can never redirect a call.
const (
	passportABIJSON = `[{"name":"mintPassport","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenURI","type":"string"}],"outputs":[]}]`
	swapABIJSON     = `[{"name":"swapExactTokensForTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"to","type":"address"}],"outputs":[]}]`
	licenseABIJSON  = `[{"name":"purchaseLicense","type":"function","stateMutability":"payable","inputs":[{"name":"licenseId","type":"uint256"},{"name":"licensee","type":"address"}],"outputs":[]}]`
	erc20ABIJSON    = `[{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`
)

var (
	passportABI = mustParseABI(passportABIJSON)
	swapABI     = mustParseABI(swapABIJSON)
	licenseABI  = mustParseABI(licenseABIJSON)
	erc20ABI    = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid builtin ABI: " + err.Error())
	}
	return parsed
}

// ActionParams carries the caller-supplied parameters for a delegated action.
// Which fields are required depends on the action kind; amounts are decimal
// wei strings.
type ActionParams struct {
	Recipient    string `json:"recipient,omitempty"`
	TokenURI     string `json:"tokenURI,omitempty"`
	AmountIn     string `json:"amountIn,omitempty"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
	TokenIn      string `json:"tokenIn,omitempty"`
	TokenOut     string `json:"tokenOut,omitempty"`
	LicenseID    string `json:"licenseId,omitempty"`
	PriceWei     string `json:"priceWei,omitempty"`
	To           string `json:"to,omitempty"`
	Amount       string `json:"amount,omitempty"`
}

// OperationBuilder maps a logical action plus parameters into a concrete call
// descriptor. Build is a pure function: identical inputs always produce an
// identical descriptor.
type OperationBuilder struct {
	contracts       config.Contracts
	minLicensePrice *big.Int
	maxValue        *big.Int
}

// NewOperationBuilder creates a builder bound to the configured contracts.
func NewOperationBuilder(cfg *config.Config) *OperationBuilder {
	return &OperationBuilder{
		contracts:       cfg.Contracts,
		minLicensePrice: cfg.MinLicensePriceWei,
		maxValue:        cfg.MaxOperationValue,
	}
}

// Build produces the operation descriptor for an action. Unknown kinds yield
// a typed unsupported-action error, never a best-effort fallback.
func (b *OperationBuilder) Build(action types.ActionKind, params ActionParams) (*types.OperationDescriptor, error) {
	switch action {
	case types.ActionMintPassport:
		return b.buildMintPassport(params)
	case types.ActionSwapTokens:
		return b.buildSwapTokens(params)
	case types.ActionBuyLicense:
		return b.buildBuyLicense(params)
	case types.ActionTransferToken:
		return b.buildTransferToken(params)
	default:
		return nil, types.NewValidationError(fmt.Sprintf("unsupported action %q", action))
	}
}

func (b *OperationBuilder) buildMintPassport(params ActionParams) (*types.OperationDescriptor, error) {
	recipient, err := requireAddress("recipient", params.Recipient)
	if err != nil {
		return nil, err
	}
	if params.TokenURI == "" {
		return nil, types.NewValidationError("tokenURI is required")
	}

	callData, err := passportABI.Pack("mintPassport", recipient, params.TokenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mintPassport: %w", err)
	}

	return &types.OperationDescriptor{
		Action:   types.ActionMintPassport,
		Target:   b.contracts.PassportNFT,
		Value:    big.NewInt(0),
		CallData: callData,
	}, nil
}

func (b *OperationBuilder) buildSwapTokens(params ActionParams) (*types.OperationDescriptor, error) {
	amountIn, err := b.requireBoundedAmount("amountIn", params.AmountIn)
	if err != nil {
		return nil, err
	}
	minOut, err := requirePositiveAmount("minAmountOut", params.MinAmountOut)
	if err != nil {
		return nil, err
	}
	tokenIn, err := requireAddress("tokenIn", params.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := requireAddress("tokenOut", params.TokenOut)
	if err != nil {
		return nil, err
	}
	recipient, err := requireAddress("recipient", params.Recipient)
	if err != nil {
		return nil, err
	}
	if tokenIn == tokenOut {
		return nil, types.NewValidationError("tokenIn and tokenOut must differ")
	}

	callData, err := swapABI.Pack("swapExactTokensForTokens", amountIn, minOut, tokenIn, tokenOut, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap: %w", err)
	}

	return &types.OperationDescriptor{
		Action:   types.ActionSwapTokens,
		Target:   b.contracts.SwapRouter,
		Value:    big.NewInt(0),
		CallData: callData,
	}, nil
}

func (b *OperationBuilder) buildBuyLicense(params ActionParams) (*types.OperationDescriptor, error) {
	licenseID, err := requirePositiveAmount("licenseId", params.LicenseID)
	if err != nil {
		return nil, err
	}
	licensee, err := requireAddress("recipient", params.Recipient)
	if err != nil {
		return nil, err
	}
	price, err := b.requireBoundedAmount("priceWei", params.PriceWei)
	if err != nil {
		return nil, err
	}

	// Documented floor policy: prices below the configured minimum are raised
	// to it. This is the one intentional clamp; every other bound rejects.
	if price.Cmp(b.minLicensePrice) < 0 {
		price = new(big.Int).Set(b.minLicensePrice)
	}

	callData, err := licenseABI.Pack("purchaseLicense", licenseID, licensee)
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchaseLicense: %w", err)
	}

	return &types.OperationDescriptor{
		Action:   types.ActionBuyLicense,
		Target:   b.contracts.LicenseRegistry,
		Value:    price,
		CallData: callData,
	}, nil
}

func (b *OperationBuilder) buildTransferToken(params ActionParams) (*types.OperationDescriptor, error) {
	to, err := requireAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	amount, err := b.requireBoundedAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}

	callData, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer: %w", err)
	}

	return &types.OperationDescriptor{
		Action:   types.ActionTransferToken,
		Target:   b.contracts.PaymentToken,
		Value:    big.NewInt(0),
		CallData: callData,
	}, nil
}

func requireAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, types.NewValidationError(field + " is required")
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, types.NewValidationError(field + " is not a valid address")
	}
	return common.HexToAddress(value), nil
}

func requirePositiveAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return nil, types.NewValidationError(field + " is required")
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, types.NewValidationError(field + " is not a valid decimal amount")
	}
	if amount.Sign() <= 0 {
		return nil, types.NewValidationError(field + " must be positive")
	}
	return amount, nil
}

// requireBoundedAmount enforces the per-operation value ceiling. Out-of-bounds
// values are rejected, not clamped.
func (b *OperationBuilder) requireBoundedAmount(field, value string) (*big.Int, error) {
	amount, err := requirePositiveAmount(field, value)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(b.maxValue) > 0 {
		return nil, types.NewValidationError(field + " exceeds the maximum allowed value")
	}
	return amount, nil
}
