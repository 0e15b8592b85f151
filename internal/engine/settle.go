package engine

import (
	"context"
	"math/big"
	"strings"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/models"
	"github.com/AccountantBot/AccountantBot-Backend/internal/repository"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SettleItemInput is one explicit override item a caller may pass to
// Settle instead of letting the engine collect stored VALID
// signatures.
type SettleItemInput struct {
	Participant string
	Amount      string
	Deadline    *string
	Salt        string
	Signature   string
}

// SettleInput is "Settle"'s request shape.
type SettleInput struct {
	SplitID uint64
	Items   []SettleItemInput // nil/empty means "collect stored VALID signatures"
}

// SettleResult is the { txHash } response shape.
type SettleResult struct {
	TxHash string
}

type assembledItem struct {
	participant   string
	amount        models.Numeric256
	deadlineUnix  uint64
	salt          [32]byte
	signature     []byte
	participantID uint64
	signatureID   uint64
}

// Settle assembles the settlement arrays (either from explicit items
// or from stored VALID signatures), submits settleSplit on-chain, and
// atomically commits the post-settlement state on success.
func (e *Engine) Settle(ctx context.Context, in SettleInput) (*SettleResult, error) {
	split, err := e.repo.GetWithChildren(ctx, in.SplitID)
	if err != nil {
		return nil, core.Wrap(core.KindNotFound, "split not found", err)
	}
	if split.ChainID != e.chainID || !strings.EqualFold(split.Contract, e.contract) {
		return nil, core.New(core.KindNotFound, "split does not belong to this chain/contract")
	}
	if split.Settled {
		return nil, core.New(core.KindConflict, "split is already settled")
	}

	var items []assembledItem
	if len(in.Items) > 0 {
		items, err = e.assembleExplicitItems(split, in.Items)
	} else {
		items, err = e.assembleStoredItems(ctx, split)
	}
	if err != nil {
		return nil, err
	}

	if len(items) != len(split.Participants) {
		return nil, core.New(core.KindInvalidInput, "signature count mismatch")
	}

	args := chain.SettleArgs{
		SplitID:      split.EffectiveSplitID().Int,
		Participants: make([]ethcommon.Address, len(items)),
		Amounts:      make([]*big.Int, len(items)),
		Deadlines:    make([]*big.Int, len(items)),
		Salts:        make([][32]byte, len(items)),
		Vs:           make([]uint8, len(items)),
		Rs:           make([][32]byte, len(items)),
		Ss:           make([][32]byte, len(items)),
	}
	for i, item := range items {
		v, r, s, err := crypto.SplitSignatureVRS(item.signature)
		if err != nil {
			return nil, core.Wrap(core.KindInternal, "split signature into v/r/s", err)
		}
		args.Participants[i] = ethcommon.HexToAddress(item.participant)
		args.Amounts[i] = item.amount.Int
		args.Deadlines[i] = big.NewInt(int64(item.deadlineUnix))
		args.Salts[i] = item.salt
		args.Vs[i] = v
		args.Rs[i] = r
		args.Ss[i] = s
	}

	receipt, err := e.gateway.Settle(ctx, args)
	if err != nil {
		return nil, core.Wrap(core.KindChainFailed, "settleSplit on-chain call failed", err)
	}

	updates := make([]repository.SettleItemUpdate, len(items))
	for i, item := range items {
		updates[i] = repository.SettleItemUpdate{
			ParticipantID: item.participantID,
			SignatureID:   item.signatureID,
		}
	}
	if err := e.repo.Settle(ctx, split.ID, updates); err != nil {
		return nil, core.Wrap(core.KindInternal, "persist settlement", err)
	}

	return &SettleResult{TxHash: receipt.TxHash.Hex()}, nil
}

// assembleExplicitItems validates caller-supplied items against
// stored legs and signature rows, per spec.md §4.3 "Item assembly".
func (e *Engine) assembleExplicitItems(split *models.Split, in []SettleItemInput) ([]assembledItem, error) {
	legsByAddr := make(map[string]*models.SplitParticipant, len(split.Participants))
	for i := range split.Participants {
		legsByAddr[strings.ToLower(split.Participants[i].Participant)] = &split.Participants[i]
	}
	sigsByKey := make(map[string]*models.SplitSignature, len(split.Signatures))
	for i := range split.Signatures {
		sig := &split.Signatures[i]
		key := strings.ToLower(sig.Participant) + "|" + strings.ToLower(sig.Salt)
		sigsByKey[key] = sig
	}

	items := make([]assembledItem, 0, len(in))
	for _, raw := range in {
		addr := crypto.NormalizeAddress(raw.Participant)
		leg, ok := legsByAddr[strings.ToLower(addr)]
		if !ok {
			return nil, core.New(core.KindNotFound, "item participant is not a leg of this split")
		}
		if raw.Amount != leg.Amount.String() {
			return nil, core.New(core.KindInvalidInput, "item amount does not match the leg amount")
		}

		sig, ok := sigsByKey[strings.ToLower(addr)+"|"+strings.ToLower(raw.Salt)]
		if !ok {
			return nil, core.New(core.KindNotFound, "no signature row for item (participant, salt)")
		}
		if sig.Status != models.SignatureStatusValid {
			return nil, core.New(core.KindInvalidInput, "item signature is not VALID")
		}

		storedDeadline := deadlineUnix(sig.Deadline)
		if raw.Deadline != nil {
			requested, _, err := parseDeadline(*raw.Deadline)
			if err != nil {
				return nil, err
			}
			if requested != storedDeadline {
				return nil, core.New(core.KindInvalidInput, "item deadline does not match the stored deadline")
			}
		}
		if !strings.EqualFold(raw.Signature, sig.Signature) {
			return nil, core.New(core.KindInvalidInput, "item signature does not match the stored signature")
		}

		salt, err := crypto.SaltFromHex(sig.Salt)
		if err != nil {
			return nil, core.Wrap(core.KindInternal, "stored salt is malformed", err)
		}
		sigBytes, err := crypto.SignatureFromHex(sig.Signature)
		if err != nil {
			return nil, core.Wrap(core.KindInternal, "stored signature is malformed", err)
		}

		items = append(items, assembledItem{
			participant:   addr,
			amount:        leg.Amount,
			deadlineUnix:  storedDeadline,
			salt:          salt,
			signature:     sigBytes,
			participantID: leg.ID,
			signatureID:   sig.ID,
		})
	}
	return items, nil
}

// assembleStoredItems collects every VALID signature row for split,
// in DB enumeration order, deriving amount from the participant's leg.
func (e *Engine) assembleStoredItems(ctx context.Context, split *models.Split) ([]assembledItem, error) {
	sigs, err := e.repo.ValidSignaturesForSplit(ctx, split.ID)
	if err != nil {
		return nil, core.Wrap(core.KindInternal, "load valid signatures", err)
	}

	legsByAddr := make(map[string]*models.SplitParticipant, len(split.Participants))
	for i := range split.Participants {
		legsByAddr[strings.ToLower(split.Participants[i].Participant)] = &split.Participants[i]
	}

	items := make([]assembledItem, 0, len(sigs))
	for _, sig := range sigs {
		leg, ok := legsByAddr[strings.ToLower(sig.Participant)]
		if !ok {
			continue
		}
		salt, err := crypto.SaltFromHex(sig.Salt)
		if err != nil {
			return nil, core.Wrap(core.KindInternal, "stored salt is malformed", err)
		}
		sigBytes, err := crypto.SignatureFromHex(sig.Signature)
		if err != nil {
			return nil, core.Wrap(core.KindInternal, "stored signature is malformed", err)
		}
		items = append(items, assembledItem{
			participant:   leg.Participant,
			amount:        leg.Amount,
			deadlineUnix:  deadlineUnix(sig.Deadline),
			salt:          salt,
			signature:     sigBytes,
			participantID: leg.ID,
			signatureID:   sig.ID,
		})
	}
	return items, nil
}
