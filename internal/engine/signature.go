package engine

import (
	"context"
	"strings"
	"time"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/models"
)

// SubmitSignatureInput is "Submit Signature"'s request shape.
type SubmitSignatureInput struct {
	SplitID     uint64
	Participant string
	Amount      string
	Salt        string
	Deadline    *string
	Signature   string
}

// SubmitSignature validates and, on success, transitions a PENDING
// signature row to VALID. Preconditions are checked in the order
// spec.md §4.3 lists them; the first failure aborts.
func (e *Engine) SubmitSignature(ctx context.Context, in SubmitSignatureInput) error {
	split, leg, err := e.loadOpenSplitAndLeg(ctx, in.SplitID, in.Participant)
	if err != nil {
		return err
	}

	if in.Amount != leg.Amount.String() {
		return core.New(core.KindInvalidInput, "amount does not match the participant's leg amount")
	}

	normalizedParticipant := crypto.NormalizeAddress(in.Participant)
	sig, err := e.repo.FindSignature(ctx, split.ID, normalizedParticipant, strings.ToLower(in.Salt))
	if err != nil {
		return core.Wrap(core.KindNotFound, "no signature intent for this (split, participant, salt)", err)
	}

	switch sig.Status {
	case models.SignatureStatusUsedOnchain:
		return core.New(core.KindConflict, "signature has already been used on-chain")
	case models.SignatureStatusValid:
		// Idempotent: a second submission of an already-validated
		// signature reports success without re-verifying.
		return nil
	case models.SignatureStatusPending:
		// continue below
	default:
		return core.New(core.KindConflict, "signature is not in a submittable state")
	}

	storedDeadline := deadlineUnix(sig.Deadline)
	if in.Deadline != nil {
		requested, _, err := parseDeadline(*in.Deadline)
		if err != nil {
			return err
		}
		if requested != storedDeadline {
			return core.New(core.KindInvalidInput, "deadline does not match the stored intent's deadline")
		}
	}

	sigBytes, err := crypto.SignatureFromHex(in.Signature)
	if err != nil {
		return core.Wrap(core.KindInvalidInput, "malformed signature hex", err)
	}
	salt, err := crypto.SaltFromHex(sig.Salt)
	if err != nil {
		return core.Wrap(core.KindInternal, "stored salt is malformed", err)
	}

	msg := crypto.Message{
		Participant: sig.Participant,
		SplitID:     split.EffectiveSplitID().Int,
		Token:       split.Token,
		Payer:       split.Payer,
		Amount:      leg.Amount.Int,
		Deadline:    storedDeadline,
		Salt:        salt,
	}
	signer, err := crypto.Verify(e.domain(), msg, sigBytes)
	if err != nil {
		return core.Wrap(core.KindInvalidInput, "failed to recover signer from signature", err)
	}
	if !crypto.SameAddress(signer.Hex(), sig.Participant) {
		return core.New(core.KindInvalidInput, "signer differs from participant")
	}

	if storedDeadline != 0 && time.Now().Unix() > int64(storedDeadline) {
		_ = e.repo.MarkSignatureExpired(ctx, sig.ID, "expired before validation")
		return core.New(core.KindInvalidInput, "expired")
	}

	if err := e.repo.AcceptSignature(ctx, sig.ID, leg.ID, in.Signature); err != nil {
		return core.Wrap(core.KindInternal, "persist validated signature", err)
	}
	return nil
}
