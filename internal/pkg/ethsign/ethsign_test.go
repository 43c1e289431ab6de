package ethsign_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gasport/gasport-api/internal/pkg/ethsign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPersonal(t *testing.T, message string) (address string, signature string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)

	// Present the signature the way wallets do, with v in {27, 28}
	sig[64] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerify_RoundTrip(t *testing.T) {
	message := "gasport.auth\naddress: 0xabc\nnonce: deadbeef\nissued: 1700000000\nscope: execute"
	address, signature := signPersonal(t, message)

	assert.True(t, ethsign.Verify(address, message, signature))
}

func TestVerify_TamperedMessage(t *testing.T) {
	message := "original message"
	address, signature := signPersonal(t, message)

	assert.False(t, ethsign.Verify(address, "tampered message", signature))
}

func TestVerify_WrongAddress(t *testing.T) {
	message := "some message"
	_, signature := signPersonal(t, message)

	other := "0x1111111111111111111111111111111111111111"
	assert.False(t, ethsign.Verify(other, message, signature))
}

func TestVerify_MalformedInput(t *testing.T) {
	address, signature := signPersonal(t, "msg")

	tests := []struct {
		name      string
		address   string
		message   string
		signature string
	}{
		{name: "not hex signature", address: address, message: "msg", signature: "not-a-signature"},
		{name: "short signature", address: address, message: "msg", signature: "0xdeadbeef"},
		{name: "empty signature", address: address, message: "msg", signature: ""},
		{name: "bad address", address: "not-an-address", message: "msg", signature: signature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ethsign.Verify(tt.address, tt.message, tt.signature))
		})
	}
}

func TestRecover_CaseInsensitiveAddressMatch(t *testing.T) {
	message := "case test"
	address, signature := signPersonal(t, message)

	// Lowercased form of the same address must still verify
	assert.True(t, ethsign.Verify(hexutil.Encode(hexutil.MustDecode(address)), message, signature))
}
