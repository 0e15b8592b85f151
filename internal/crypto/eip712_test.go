package crypto_test

import (
	"math/big"
	"testing"

	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDomain() crypto.Domain {
	return crypto.BuildDomain("Accountant", "1", 534352, "0x00000000000000000000000000000000000001")
}

func testMessage(participant string) crypto.Message {
	var salt [32]byte
	salt[0] = 0xAB
	return crypto.Message{
		Participant: participant,
		SplitID:     big.NewInt(1),
		Token:       "0x0000000000000000000000000000000000000002",
		Payer:       "0x0000000000000000000000000000000000000003",
		Amount:      big.NewInt(1000),
		Deadline:    0,
		Salt:        salt,
	}
}

func TestVerifyRecoversTheSigner(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := ethcrypto.PubkeyToAddress(key.PublicKey)

	domain := testDomain()
	msg := testMessage(signer.Hex())

	digest, err := crypto.EncodeMessage(domain, msg)
	require.NoError(t, err)

	sig, err := ethcrypto.Sign(digest[:], key)
	require.NoError(t, err)
	// go-ethereum's Sign already returns v in {0,1}; RecoverSigner also
	// accepts the wallet-style {27,28} convention.
	sig[64] += 27

	recovered, err := crypto.Verify(domain, msg, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	other, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	otherAddr := ethcrypto.PubkeyToAddress(other.PublicKey)

	domain := testDomain()
	msg := testMessage(otherAddr.Hex())

	digest, err := crypto.EncodeMessage(domain, msg)
	require.NoError(t, err)
	sig, err := ethcrypto.Sign(digest[:], key)
	require.NoError(t, err)
	sig[64] += 27

	recovered, err := crypto.Verify(domain, msg, sig)
	require.NoError(t, err)
	assert.NotEqual(t, otherAddr, recovered)
	assert.False(t, crypto.SameAddress(recovered.Hex(), otherAddr.Hex()))
}

func TestEncodeMessageIsDeterministic(t *testing.T) {
	domain := testDomain()
	msg := testMessage("0x0000000000000000000000000000000000000004")

	d1, err := crypto.EncodeMessage(domain, msg)
	require.NoError(t, err)
	d2, err := crypto.EncodeMessage(domain, msg)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestEncodeMessageChangesWithSalt(t *testing.T) {
	domain := testDomain()
	msg1 := testMessage("0x0000000000000000000000000000000000000004")
	msg2 := msg1
	msg2.Salt[0] = 0xFF

	d1, err := crypto.EncodeMessage(domain, msg1)
	require.NoError(t, err)
	d2, err := crypto.EncodeMessage(domain, msg2)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestSameAddressIsCaseInsensitive(t *testing.T) {
	a := "0xAbC0000000000000000000000000000000AbC0"
	b := "0xabc0000000000000000000000000000000abc0"
	assert.True(t, crypto.SameAddress(a, b))
}

func TestBuildTypedDataCarriesPrimaryTypeAndSalt(t *testing.T) {
	domain := testDomain()
	msg := testMessage("0x0000000000000000000000000000000000000004")

	td := crypto.BuildTypedData(domain, msg)
	assert.Equal(t, "ApproveSplit", td.PrimaryType)
	assert.Equal(t, crypto.SaltToHex(msg.Salt), td.Message["salt"])
}
