package engine

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/models"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// LegInput is one leg of a split as received from the edge: a
// participant address and a decimal-string amount.
type LegInput struct {
	Participant string
	Amount      string
}

// CreateSplitInput is "Create Split"'s request shape (spec.md §4.3).
type CreateSplitInput struct {
	Payer        string
	Token        string
	Legs         []LegInput
	Deadline     *string
	MetaHash     *string
	CreateOnchain bool
}

// CreateSplitResult is the { id, txHash } response shape.
type CreateSplitResult struct {
	ID     uint64
	TxHash *string
}

// CreateSplit validates legs, persists the split atomically, and
// optionally submits it on-chain.
func (e *Engine) CreateSplit(ctx context.Context, in CreateSplitInput) (*CreateSplitResult, error) {
	if len(in.Legs) == 0 {
		return nil, core.New(core.KindInvalidInput, "legs must be non-empty")
	}

	payer := crypto.NormalizeAddress(in.Payer)
	token := crypto.NormalizeAddress(in.Token)

	seen := make(map[string]struct{}, len(in.Legs))
	participants := make([]models.SplitParticipant, 0, len(in.Legs))
	chainLegs := make([]chain.Leg, 0, len(in.Legs))
	total := models.NewNumeric256(big.NewInt(0))

	for _, leg := range in.Legs {
		addr := crypto.NormalizeAddress(leg.Participant)
		amount, err := models.ParseNumeric256(leg.Amount)
		if err != nil {
			return nil, core.Wrap(core.KindInvalidInput, "leg amount is not a valid decimal integer", err)
		}
		if !amount.IsPositive() {
			return nil, core.New(core.KindInvalidInput, "leg amount must be greater than zero")
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			return nil, core.New(core.KindConflict, "duplicate participant across legs")
		}
		seen[key] = struct{}{}

		participants = append(participants, models.SplitParticipant{
			Participant: addr,
			Amount:      amount,
		})
		chainLegs = append(chainLegs, chain.Leg{
			Participant: ethcommon.HexToAddress(addr),
			Amount:      amount.Int,
		})
		total = total.Add(amount)
	}

	if !total.IsPositive() {
		return nil, core.New(core.KindInvalidInput, "total amount must be greater than zero")
	}

	var deadline *time.Time
	if in.Deadline != nil {
		_, t, err := parseDeadline(*in.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = t
	}

	split := &models.Split{
		ChainID:      e.chainID,
		Contract:     e.contract,
		Payer:        payer,
		Token:        token,
		TotalAmount:  total,
		Deadline:     deadline,
		MetaHash:     in.MetaHash,
		Settled:      false,
		Participants: participants,
	}

	if err := e.repo.CreateWithParticipants(ctx, split); err != nil {
		return nil, core.Wrap(core.KindInternal, "persist split", err)
	}

	result := &CreateSplitResult{ID: split.ID}
	if !in.CreateOnchain {
		return result, nil
	}

	deadlineSeconds := big.NewInt(0)
	if deadline != nil {
		deadlineSeconds = big.NewInt(deadline.Unix())
	}
	var metaHash [32]byte
	if in.MetaHash != nil {
		if b, err := crypto.SaltFromHex(*in.MetaHash); err == nil {
			metaHash = b
		}
	}

	receipt, err := e.gateway.CreateOnchain(ctx, payer, token, chainLegs, deadlineSeconds, metaHash)
	if err != nil {
		// Best-effort cleanup of the freshly inserted row; the chain
		// error is what the caller sees either way.
		_ = e.repo.DeleteOrphan(ctx, split.ID)
		return nil, core.Wrap(core.KindChainFailed, "createSplit on-chain call failed", err)
	}

	txHash := receipt.TxHash.Hex()
	result.TxHash = &txHash

	if splitIDOnchain, ok := e.gateway.ParseSplitCreated(receipt.Logs); ok {
		num := models.NewNumeric256(splitIDOnchain)
		if err := e.repo.UpdateSplitIDOnchain(ctx, split.ID, num); err != nil {
			return nil, core.Wrap(core.KindInternal, "persist on-chain split id", err)
		}
	} else {
		// Receipt succeeded but the event didn't decode; record the tx
		// hash so the on-chain id can be reconciled later, per
		// SPEC_FULL.md §9. splitIdOnchain stays null, which is fine:
		// signing still falls back to the local id.
		_ = e.repo.RecordOnchainCreateTxHash(ctx, split.ID, txHash)
	}

	return result, nil
}
