// Package engine is the Coordination Engine: the state machine that
// owns every invariant around creating splits, issuing approve
// intents, accepting signatures, and settling on-chain, per
// spec.md §4.3. It depends on the chain gateway and the persistence
// layer as explicit constructor arguments, grounded on the teacher's
// service-struct-wraps-db pattern in
// internal/services/multisig_service.go, generalized to also carry a
// chain capability and a signing domain.
package engine

import (
	"context"
	"math/big"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/crypto"
	"github.com/AccountantBot/AccountantBot-Backend/internal/repository"

	"github.com/ethereum/go-ethereum/core/types"
)

// chainGateway is the subset of *chain.Gateway the engine depends on.
// Declaring it as an interface here (rather than depending on the
// concrete type directly) lets tests substitute a fake RPC-free
// gateway; *chain.Gateway satisfies it without any change on its side.
type chainGateway interface {
	CreateOnchain(ctx context.Context, payer, token string, legs []chain.Leg, deadlineSeconds *big.Int, metaHash [32]byte) (*chain.Receipt, error)
	Settle(ctx context.Context, args chain.SettleArgs) (*chain.Receipt, error)
	ERC20Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	ParseSplitCreated(logs []*types.Log) (*big.Int, bool)
}

// Engine is the single entry point the HTTP layer calls into.
type Engine struct {
	repo       repository.SplitRepository
	gateway    chainGateway
	chainID    int64
	contract   string
	domainName string
	domainVer  string
}

// New constructs an Engine bound to one chain/contract pair.
func New(repo repository.SplitRepository, gateway chainGateway, chainID int64, contract, domainName, domainVersion string) *Engine {
	return &Engine{
		repo:       repo,
		gateway:    gateway,
		chainID:    chainID,
		contract:   crypto.NormalizeAddress(contract),
		domainName: domainName,
		domainVer:  domainVersion,
	}
}

func (e *Engine) domain() crypto.Domain {
	return crypto.BuildDomain(e.domainName, e.domainVer, e.chainID, e.contract)
}
