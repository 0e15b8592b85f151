package engine

import (
	"context"
	"math/big"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/db"
	"github.com/AccountantBot/AccountantBot-Backend/internal/repository"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeGateway is a chainGateway double with no RPC dependency, letting
// engine tests exercise every code path around a chain call without
// dialing a provider.
type fakeGateway struct {
	createReceipt   *chain.Receipt
	createErr       error
	settleReceipt   *chain.Receipt
	settleErr       error
	allowance       *big.Int
	allowanceErr    error
	splitCreatedID  *big.Int
	splitCreatedOK  bool
	createCalls     []chainCreateCall
	settleCalls     []chain.SettleArgs
}

type chainCreateCall struct {
	payer, token string
	legs         []chain.Leg
	deadline     *big.Int
	metaHash     [32]byte
}

func (f *fakeGateway) CreateOnchain(_ context.Context, payer, token string, legs []chain.Leg, deadlineSeconds *big.Int, metaHash [32]byte) (*chain.Receipt, error) {
	f.createCalls = append(f.createCalls, chainCreateCall{payer, token, legs, deadlineSeconds, metaHash})
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createReceipt, nil
}

func (f *fakeGateway) Settle(_ context.Context, args chain.SettleArgs) (*chain.Receipt, error) {
	f.settleCalls = append(f.settleCalls, args)
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	return f.settleReceipt, nil
}

func (f *fakeGateway) ERC20Allowance(_ context.Context, _, _, _ string) (*big.Int, error) {
	if f.allowanceErr != nil {
		return nil, f.allowanceErr
	}
	return f.allowance, nil
}

func (f *fakeGateway) ParseSplitCreated(_ []*types.Log) (*big.Int, bool) {
	return f.splitCreatedID, f.splitCreatedOK
}

const (
	testChainID  = int64(534352)
	testContract = "0x0000000000000000000000000000000000000009"
)

func newTestEngine(gw chainGateway) (*Engine, repository.SplitRepository) {
	database, err := db.Connect("sqlite", ":memory:")
	if err != nil {
		panic(err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(database); err != nil {
		panic(err)
	}

	repo := repository.NewSplitRepository(database)
	eng := New(repo, gw, testChainID, testContract, "Accountant", "1")
	return eng, repo
}

func mustReceipt(hash string) *chain.Receipt {
	return &chain.Receipt{TxHash: ethcommon.HexToHash(hash)}
}
