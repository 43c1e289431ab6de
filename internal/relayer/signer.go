// Package relayer holds the single fee-paying identity used across all
// delegated operations. The signer is initialized once at startup and every
// submission flows through its serialized signing path; nothing else in the
// process touches the key.
package relayer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/pkg/errors"
)

var (
	addressType = mustABIType("address")
	uint256Type = mustABIType("uint256")
	bytes32Type = mustABIType("bytes32")
)

func mustABIType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic("invalid abi type " + name + ": " + err.Error())
	}
	return t
}

// Signer signs abstracted operation envelopes with the relayer key.
type Signer struct {
	key        *ecdsa.PrivateKey
	address    common.Address
	entryPoint common.Address
	chainID    *big.Int

	// mu serializes signing and hand-off for the shared sender; the bundler
	// does its own nonce sequencing but must never see interleaved envelopes
	// from this process.
	mu sync.Mutex
}

// NewSigner parses the hex-encoded relayer private key.
func NewSigner(privateKeyHex string, entryPoint common.Address, chainID int64) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid relayer private key")
	}

	return &Signer{
		key:        key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		entryPoint: entryPoint,
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the relayer's signing address.
func (s *Signer) Address() common.Address {
	return s.address
}

// EntryPoint returns the entry point contract the signer binds hashes to.
func (s *Signer) EntryPoint() common.Address {
	return s.entryPoint
}

// SignUserOperation computes the operation hash, signs it and sets the
// envelope's signature field. The envelope must be frozen before this call;
// the hash covers every gas and fee field. Callers submit under Serialize so
// signing and hand-off for the shared sender never interleave.
func (s *Signer) SignUserOperation(op *types.UserOperation) error {
	hash, err := UserOperationHash(op, s.entryPoint, s.chainID)
	if err != nil {
		return err
	}

	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return errors.Wrap(err, "failed to sign user operation")
	}
	// Bundlers expect v in {27, 28}
	sig[64] += 27

	op.Signature = hexutil.Encode(sig)
	return nil
}

// Serialize runs fn while holding the signer's submission lock. Submissions
// for the shared sender go through here so the process never races its own
// envelopes against each other.
func (s *Signer) Serialize(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// UserOperationHash returns the hash of the packed envelope bound to the
// entry point address and chain ID.
func UserOperationHash(op *types.UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	packed, err := packForSignature(op)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(
		crypto.Keccak256(packed),
		common.LeftPadBytes(entryPoint.Bytes(), 32),
		common.LeftPadBytes(chainID.Bytes(), 32),
	), nil
}

func packForSignature(op *types.UserOperation) ([]byte, error) {
	args := abi.Arguments{
		{Name: "sender", Type: addressType},
		{Name: "nonce", Type: uint256Type},
		{Name: "initCode", Type: bytes32Type},
		{Name: "callData", Type: bytes32Type},
		{Name: "callGasLimit", Type: uint256Type},
		{Name: "verificationGasLimit", Type: uint256Type},
		{Name: "preVerificationGas", Type: uint256Type},
		{Name: "maxFeePerGas", Type: uint256Type},
		{Name: "maxPriorityFeePerGas", Type: uint256Type},
		{Name: "paymasterAndData", Type: bytes32Type},
	}

	fields := map[string]*big.Int{}
	for name, raw := range map[string]string{
		"nonce":                op.Nonce,
		"callGasLimit":         op.CallGasLimit,
		"verificationGasLimit": op.VerificationGasLimit,
		"preVerificationGas":   op.PreVerificationGas,
		"maxFeePerGas":         op.MaxFeePerGas,
		"maxPriorityFeePerGas": op.MaxPriorityFeePerGas,
	} {
		v, err := decodeQuantity(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", name)
		}
		fields[name] = v
	}

	initCode, err := decodeData(op.InitCode)
	if err != nil {
		return nil, errors.Wrap(err, "invalid initCode")
	}
	callData, err := decodeData(op.CallData)
	if err != nil {
		return nil, errors.Wrap(err, "invalid callData")
	}
	paymasterAndData, err := decodeData(op.PaymasterAndData)
	if err != nil {
		return nil, errors.Wrap(err, "invalid paymasterAndData")
	}

	return args.Pack(
		common.HexToAddress(op.Sender),
		fields["nonce"],
		crypto.Keccak256Hash(initCode),
		crypto.Keccak256Hash(callData),
		fields["callGasLimit"],
		fields["verificationGasLimit"],
		fields["preVerificationGas"],
		fields["maxFeePerGas"],
		fields["maxPriorityFeePerGas"],
		crypto.Keccak256Hash(paymasterAndData),
	)
}

func decodeQuantity(raw string) (*big.Int, error) {
	if raw == "" || raw == "0x" {
		return big.NewInt(0), nil
	}
	return hexutil.DecodeBig(raw)
}

func decodeData(raw string) ([]byte, error) {
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	return hexutil.Decode(raw)
}
