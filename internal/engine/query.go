package engine

import (
	"context"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/models"
)

// AllowanceResult is the Check Allowance response shape.
type AllowanceResult struct {
	Token     string
	Owner     string
	Spender   string
	Allowance string
}

// CheckAllowance probes ERC-20 allowance(owner, coordinatorAddress)
// on the chain gateway's read handle. No persistence.
func (e *Engine) CheckAllowance(ctx context.Context, token, owner string) (*AllowanceResult, error) {
	tokenAddr := crypto.NormalizeAddress(token)
	ownerAddr := crypto.NormalizeAddress(owner)

	allowance, err := e.gateway.ERC20Allowance(ctx, tokenAddr, ownerAddr, e.contract)
	if err != nil {
		return nil, err
	}

	return &AllowanceResult{
		Token:     tokenAddr,
		Owner:     ownerAddr,
		Spender:   e.contract,
		Allowance: allowance.String(),
	}, nil
}

// GetSplit returns a split with its participants and signatures
// eagerly loaded, ready for §4.5 serialization.
func (e *Engine) GetSplit(ctx context.Context, id uint64) (*models.Split, error) {
	split, err := e.repo.GetWithChildren(ctx, id)
	if err != nil {
		return nil, core.Wrap(core.KindNotFound, "split not found", err)
	}
	return split, nil
}

// ListTokens returns the enabled token catalog for this engine's
// chain.
func (e *Engine) ListTokens(ctx context.Context) ([]models.SupportedToken, error) {
	tokens, err := e.repo.ListTokens(ctx, e.chainID)
	if err != nil {
		return nil, core.Wrap(core.KindInternal, "list tokens", err)
	}
	return tokens, nil
}
