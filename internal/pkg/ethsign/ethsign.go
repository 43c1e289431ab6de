// Package ethsign verifies EIP-191 personal-sign signatures, the standard
// message-signing scheme every wallet can produce.
package ethsign

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const signatureLength = 65

// Recover returns the address that signed message under the EIP-191 personal
// sign scheme. signatureHex is the 65-byte r||s||v signature as produced by
// wallets, hex encoded.
func Recover(message string, signatureHex string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "malformed signature encoding")
	}
	if len(sig) != signatureLength {
		return common.Address{}, errors.Errorf("invalid signature length %d", len(sig))
	}

	// Wallets return v as 27/28, crypto.Ecrecover expects the recovery id.
	recovery := make([]byte, signatureLength)
	copy(recovery, sig)
	if recovery[64] >= 27 {
		recovery[64] -= 27
	}

	digest := accounts.TextHash([]byte(message))
	pubBytes, err := crypto.Ecrecover(digest, recovery)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "signature recovery failed")
	}

	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "invalid recovered public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether signatureHex over message recovers to address.
// Malformed input yields false, never a panic or error.
func Verify(address string, message string, signatureHex string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	recovered, err := Recover(message, signatureHex)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered.Hex(), address)
}
