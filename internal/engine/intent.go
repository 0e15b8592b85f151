package engine

import (
	"context"
	"strings"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/models"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// GenerateIntentInput is "Generate Approve Intent"'s request shape.
type GenerateIntentInput struct {
	SplitID     uint64
	Participant string
	Deadline    *string
}

// GenerateIntent resolves the requested deadline against the split,
// mints a fresh salt, persists a PENDING signature row, and returns
// the typed-data payload the participant's wallet must sign.
func (e *Engine) GenerateIntent(ctx context.Context, in GenerateIntentInput) (*apitypes.TypedData, error) {
	split, leg, err := e.loadOpenSplitAndLeg(ctx, in.SplitID, in.Participant)
	if err != nil {
		return nil, err
	}

	var deadline *uint64
	if in.Deadline != nil {
		unix, _, err := parseDeadline(*in.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = &unix
	}

	splitDeadline := deadlineUnix(split.Deadline)
	var effectiveDeadline uint64
	switch {
	case deadline != nil && split.Deadline != nil:
		if *deadline > splitDeadline {
			return nil, core.New(core.KindInvalidInput, "requested deadline exceeds the split's deadline")
		}
		effectiveDeadline = *deadline
	case deadline != nil:
		effectiveDeadline = *deadline
	default:
		effectiveDeadline = splitDeadline
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, core.Wrap(core.KindInternal, "generate salt", err)
	}

	sig := &models.SplitSignature{
		SplitID:     split.ID,
		Participant: leg.Participant,
		Amount:      leg.Amount,
		Salt:        crypto.SaltToHex(salt),
		Status:      models.SignatureStatusPending,
	}
	if effectiveDeadline != 0 {
		t := unixToTime(effectiveDeadline)
		sig.Deadline = &t
	}

	if err := e.repo.InsertSignature(ctx, sig); err != nil {
		return nil, core.Wrap(core.KindInternal, "persist signature intent", err)
	}

	msg := crypto.Message{
		Participant: leg.Participant,
		SplitID:     split.EffectiveSplitID().Int,
		Token:       split.Token,
		Payer:       split.Payer,
		Amount:      leg.Amount.Int,
		Deadline:    effectiveDeadline,
		Salt:        salt,
	}
	td := crypto.BuildTypedData(e.domain(), msg)
	return &td, nil
}

// loadOpenSplitAndLeg fetches a split and validates it is on this
// chain/contract, not settled, and that participant is one of its
// legs. Shared by Generate Approve Intent and Submit Signature.
func (e *Engine) loadOpenSplitAndLeg(ctx context.Context, splitID uint64, participant string) (*models.Split, *models.SplitParticipant, error) {
	split, err := e.repo.GetWithChildren(ctx, splitID)
	if err != nil {
		return nil, nil, core.Wrap(core.KindNotFound, "split not found", err)
	}
	if split.ChainID != e.chainID || !strings.EqualFold(split.Contract, e.contract) {
		return nil, nil, core.New(core.KindNotFound, "split does not belong to this chain/contract")
	}
	if split.Settled {
		return nil, nil, core.New(core.KindConflict, "split is already settled")
	}

	normalized := crypto.NormalizeAddress(participant)
	for i := range split.Participants {
		if strings.EqualFold(split.Participants[i].Participant, normalized) {
			return split, &split.Participants[i], nil
		}
	}
	return nil, nil, core.New(core.KindNotFound, "participant is not in this split")
}
