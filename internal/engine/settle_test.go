package engine

import (
	"context"
	"testing"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleWithStoredSignaturesHappyPath(t *testing.T) {
	gw := &fakeGateway{settleReceipt: mustReceipt("0x4444444444444444444444444444444444444444444444444444444444444444")}
	eng, _ := newTestEngine(gw)
	ctx := context.Background()
	key := newEcdsaKey(t)
	splitID := createSplitWithKeyedLeg(t, eng, key, "100")
	approveAndSign(t, eng, splitID, key, "100")

	result, err := eng.Settle(ctx, SettleInput{SplitID: splitID})
	require.NoError(t, err)
	assert.Equal(t, mustReceipt("0x4444444444444444444444444444444444444444444444444444444444444444").TxHash.Hex(), result.TxHash)

	require.Len(t, gw.settleCalls, 1)
	assert.Len(t, gw.settleCalls[0].Participants, 1)

	split, err := eng.GetSplit(ctx, splitID)
	require.NoError(t, err)
	assert.True(t, split.Settled)
	assert.Equal(t, "USED_ONCHAIN", string(split.Signatures[0].Status))
	assert.NotNil(t, split.Participants[0].UsedOnchainAt)
}

func TestSettleRejectsWhenSignatureCountMismatchesParticipants(t *testing.T) {
	eng, _ := newTestEngine(&fakeGateway{})
	ctx := context.Background()
	// Two legs, and neither of them ever gets approved.
	result, err := eng.CreateSplit(ctx, CreateSplitInput{
		Payer: "0x0000000000000000000000000000000000000001",
		Token: "0x0000000000000000000000000000000000000002",
		Legs:  validLegs(),
	})
	require.NoError(t, err)

	_, err = eng.Settle(ctx, SettleInput{SplitID: result.ID})
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestSettleRejectsAlreadySettledSplit(t *testing.T) {
	gw := &fakeGateway{settleReceipt: mustReceipt("0x5555555555555555555555555555555555555555555555555555555555555555")}
	eng, _ := newTestEngine(gw)
	ctx := context.Background()
	key := newEcdsaKey(t)
	splitID := createSplitWithKeyedLeg(t, eng, key, "100")
	approveAndSign(t, eng, splitID, key, "100")

	_, err := eng.Settle(ctx, SettleInput{SplitID: splitID})
	require.NoError(t, err)

	_, err = eng.Settle(ctx, SettleInput{SplitID: splitID})
	require.Error(t, err)
	assert.Equal(t, core.KindConflict, core.KindOf(err))
}

func TestSettleWithExplicitItemsValidatesAgainstStoredRows(t *testing.T) {
	gw := &fakeGateway{settleReceipt: mustReceipt("0x6666666666666666666666666666666666666666666666666666666666666666")}
	eng, _ := newTestEngine(gw)
	ctx := context.Background()
	key := newEcdsaKey(t)
	splitID := createSplitWithKeyedLeg(t, eng, key, "100")

	td, err := eng.GenerateIntent(ctx, GenerateIntentInput{SplitID: splitID, Participant: key.addr})
	require.NoError(t, err)
	salt, err := crypto.SaltFromHex(td.Message["salt"].(string))
	require.NoError(t, err)

	split, err := eng.GetSplit(ctx, splitID)
	require.NoError(t, err)
	msg := crypto.Message{
		Participant: key.addr,
		SplitID:     split.EffectiveSplitID().Int,
		Token:       split.Token,
		Payer:       split.Payer,
		Amount:      mustParseAmount(t, "100"),
		Deadline:    0,
		Salt:        salt,
	}
	sig := signIntent(t, eng, key, msg)
	sigHex := crypto.SignatureToHex(sig)

	require.NoError(t, eng.SubmitSignature(ctx, SubmitSignatureInput{
		SplitID:     splitID,
		Participant: key.addr,
		Amount:      "100",
		Salt:        crypto.SaltToHex(salt),
		Signature:   sigHex,
	}))

	_, err = eng.Settle(ctx, SettleInput{
		SplitID: splitID,
		Items: []SettleItemInput{
			{Participant: key.addr, Amount: "100", Salt: crypto.SaltToHex(salt), Signature: sigHex},
		},
	})
	require.NoError(t, err)
}

func TestSettleWithExplicitItemsRejectsAmountMismatch(t *testing.T) {
	eng, _ := newTestEngine(&fakeGateway{})
	ctx := context.Background()
	key := newEcdsaKey(t)
	splitID := createSplitWithKeyedLeg(t, eng, key, "100")
	approveAndSign(t, eng, splitID, key, "100")

	td, err := eng.GetSplit(ctx, splitID)
	require.NoError(t, err)
	salt := td.Signatures[0].Salt

	_, err = eng.Settle(ctx, SettleInput{
		SplitID: splitID,
		Items: []SettleItemInput{
			{Participant: key.addr, Amount: "1", Salt: salt, Signature: td.Signatures[0].Signature},
		},
	})
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestSettlePropagatesChainFailure(t *testing.T) {
	gw := &fakeGateway{settleErr: errChainRPC}
	eng, _ := newTestEngine(gw)
	ctx := context.Background()
	key := newEcdsaKey(t)
	splitID := createSplitWithKeyedLeg(t, eng, key, "100")
	approveAndSign(t, eng, splitID, key, "100")

	_, err := eng.Settle(ctx, SettleInput{SplitID: splitID})
	require.Error(t, err)
	assert.Equal(t, core.KindChainFailed, core.KindOf(err))

	// The split must remain unsettled since the on-chain call never
	// succeeded.
	split, err := eng.GetSplit(ctx, splitID)
	require.NoError(t, err)
	assert.False(t, split.Settled)
}
