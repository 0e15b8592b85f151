// Package crypto builds and verifies the EIP-712 ApproveSplit typed
// data described in spec.md §4.1. Every function here is pure over
// its inputs — no I/O, no suspension points, matching §5's
// requirement that cryptographic recovery is CPU-bound and must not
// suspend the caller's goroutine.
package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain is the four field EIP-712 domain fixed by spec.md §4.1.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// Message is the ApproveSplit struct a participant signs.
type Message struct {
	Participant string
	SplitID     *big.Int
	Token       string
	Payer       string
	Amount      *big.Int
	Deadline    uint64
	Salt        [32]byte
}

var approveSplitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"ApproveSplit": {
		{Name: "participant", Type: "address"},
		{Name: "splitId", Type: "uint256"},
		{Name: "token", Type: "address"},
		{Name: "payer", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "salt", Type: "bytes32"},
	},
}

// BuildDomain returns the EIP-712 domain struct for the given
// configuration values.
func BuildDomain(name, version string, chainID int64, verifyingContract string) Domain {
	return Domain{
		Name:              name,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: NormalizeAddress(verifyingContract),
	}
}

// NormalizeAddress converts addr to EIP-55 checksum form. It does not
// validate addr: common.HexToAddress converts malformed input
// leniently instead of returning an error or panicking.
func NormalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// typedData assembles the full apitypes.TypedData structure for a
// domain/message pair.
func typedData(domain Domain, msg Message) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       approveSplitTypes,
		PrimaryType: "ApproveSplit",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"participant": NormalizeAddress(msg.Participant),
			"splitId":     msg.SplitID.String(),
			"token":       NormalizeAddress(msg.Token),
			"payer":       NormalizeAddress(msg.Payer),
			"amount":      msg.Amount.String(),
			"deadline":    fmt.Sprintf("%d", msg.Deadline),
			"salt":        SaltToHex(msg.Salt),
		},
	}
}

// BuildTypedData returns the full apitypes.TypedData structure for
// (domain, msg), suitable both for hashing (EncodeMessage) and for
// returning verbatim as the "Generate Approve Intent" response body —
// its JSON shape already matches spec.md §4.3's { domain, types,
// primaryType, message } payload.
func BuildTypedData(domain Domain, msg Message) apitypes.TypedData {
	return typedData(domain, msg)
}

// EncodeMessage returns the canonical EIP-712 digest for (domain, msg)
// per the standard: domain separator, struct hash, 0x1901 prefix.
func EncodeMessage(domain Domain, msg Message) ([32]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData(domain, msg))
	var out [32]byte
	if err != nil {
		return out, fmt.Errorf("hash typed data: %w", err)
	}
	copy(out[:], hash)
	return out, nil
}

// RecoverSigner recovers the signer address from a 65-byte ECDSA
// signature (r || s || v) over digest.
func RecoverSigner(digest [32]byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(signature))
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	// go-ethereum's Ecrecover expects the recovery id (v) in the last
	// byte as 0/1; wallets commonly produce 27/28.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signature: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// Verify recovers the signer of (domain, message, signature). It is
// equivalent to recovering the address from EncodeMessage's digest.
func Verify(domain Domain, msg Message, signature []byte) (common.Address, error) {
	digest, err := EncodeMessage(domain, msg)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverSigner(digest, signature)
}

// SameAddress compares two address strings case-insensitively, per
// spec.md §4.1 ("all address comparisons are case-insensitive").
func SameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
