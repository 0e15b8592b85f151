// Package chain binds the coordinator contract and ERC-20 tokens over
// a JSON-RPC provider, per spec.md §4.2. It exposes a read-only handle
// and an optional write-capable handle whose absence makes write
// operations fail fast with a configuration error, grounded on the
// teacher's SigningStrategy split in
// internal/services/blockchain_transaction_service.go.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
	"github.com/AccountantBot/AccountantBot-Backend/internal/metrics"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Receipt is the subset of *types.Receipt callers need.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber *big.Int
	Status      uint64
	Logs        []*types.Log
}

// Gateway is the chain access capability injected into the engine. It
// is a process-wide singleton per spec.md §5 ("shared resources").
type Gateway struct {
	client            *ethclient.Client
	coordinatorAddr   common.Address
	coordinatorBound  *bind.BoundContract
	erc20Bound        map[common.Address]*bind.BoundContract
	chainID           *big.Int
	auth              *bind.TransactOpts // nil unless an executor key was configured
	signerAddress     common.Address
	writeCapable      bool
}

// NewGateway dials rpcURL and binds the coordinator contract at
// contractAddr. If executorPrivateKeyHex is non-empty, a write handle
// is also constructed; otherwise write operations fail lazily with
// KindMisconfigured.
func NewGateway(ctx context.Context, rpcURL string, contractAddr string, chainID int64, executorPrivateKeyHex string) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, core.Wrap(core.KindChainFailed, "dial RPC endpoint", err)
	}

	addr := common.HexToAddress(contractAddr)
	gw := &Gateway{
		client:          client,
		coordinatorAddr: addr,
		chainID:         big.NewInt(chainID),
		erc20Bound:      make(map[common.Address]*bind.BoundContract),
	}
	gw.coordinatorBound = bind.NewBoundContract(addr, coordinatorABI, client, client, client)

	if executorPrivateKeyHex != "" {
		if err := gw.configureWriter(executorPrivateKeyHex); err != nil {
			return nil, err
		}
	}
	return gw, nil
}

func (g *Gateway) configureWriter(privateKeyHex string) error {
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return core.Wrap(core.KindMisconfigured, "invalid executor private key", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return core.New(core.KindMisconfigured, "executor key has no ECDSA public key")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, g.chainID)
	if err != nil {
		return core.Wrap(core.KindMisconfigured, "build transactor", err)
	}

	g.auth = auth
	g.signerAddress = crypto.PubkeyToAddress(*pub)
	g.writeCapable = true
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// requireWriter returns a misconfigured error if no executor key was
// provided at construction.
func (g *Gateway) requireWriter() error {
	if !g.writeCapable {
		return core.New(core.KindMisconfigured, "write operation requested but no executor private key is configured")
	}
	return nil
}

// erc20Contract lazily binds and caches an ERC-20 token address.
func (g *Gateway) erc20Contract(token common.Address) *bind.BoundContract {
	if c, ok := g.erc20Bound[token]; ok {
		return c
	}
	c := bind.NewBoundContract(token, erc20ABI, g.client, g.client, g.client)
	g.erc20Bound[token] = c
	return c
}

// CreateOnchain calls createSplit(payer, token, legs, deadline,
// metaHash) and awaits the receipt.
func (g *Gateway) CreateOnchain(ctx context.Context, payer, token string, legs []Leg, deadlineSeconds *big.Int, metaHash [32]byte) (*Receipt, error) {
	if err := g.requireWriter(); err != nil {
		return nil, err
	}

	opts := g.txOpts(ctx)
	tx, err := g.coordinatorBound.Transact(opts, "createSplit",
		common.HexToAddress(payer),
		common.HexToAddress(token),
		legs,
		deadlineSeconds,
		metaHash,
	)
	if err != nil {
		metrics.RPCFailures.WithLabelValues("createSplit").Inc()
		return nil, core.Wrap(core.KindChainFailed, "createSplit submission failed", err)
	}
	return g.awaitReceipt(ctx, tx)
}

// SettleArgs bundles the parallel arrays settleSplit expects, in the
// enumeration order the engine assembled per spec.md §4.3 "Order".
type SettleArgs struct {
	SplitID      *big.Int
	Participants []common.Address
	Amounts      []*big.Int
	Deadlines    []*big.Int
	Salts        [][32]byte
	Vs           []uint8
	Rs           [][32]byte
	Ss           [][32]byte
}

// Settle calls settleSplit with args and awaits the receipt.
func (g *Gateway) Settle(ctx context.Context, args SettleArgs) (*Receipt, error) {
	if err := g.requireWriter(); err != nil {
		return nil, err
	}

	opts := g.txOpts(ctx)
	tx, err := g.coordinatorBound.Transact(opts, "settleSplit",
		args.SplitID,
		args.Participants,
		args.Amounts,
		args.Deadlines,
		args.Salts,
		args.Vs,
		args.Rs,
		args.Ss,
	)
	if err != nil {
		metrics.RPCFailures.WithLabelValues("settleSplit").Inc()
		return nil, core.Wrap(core.KindChainFailed, "settleSplit submission failed", err)
	}
	return g.awaitReceipt(ctx, tx)
}

// ERC20Allowance calls allowance(owner, spender) on token's read
// handle.
func (g *Gateway) ERC20Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	contract := g.erc20Contract(common.HexToAddress(token))

	var out []interface{}
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance",
		common.HexToAddress(owner),
		common.HexToAddress(spender),
	)
	if err != nil {
		metrics.RPCFailures.WithLabelValues("allowance").Inc()
		return nil, core.Wrap(core.KindChainFailed, "allowance call failed", err)
	}
	if len(out) != 1 {
		return nil, core.New(core.KindChainFailed, "unexpected allowance return shape")
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, core.New(core.KindChainFailed, "allowance did not decode to *big.Int")
	}
	return allowance, nil
}

// ParseSplitCreated scans logs for a SplitCreated event emitted by the
// coordinator contract and returns the decoded splitId. Logs from
// other addresses, or that fail to decode, are skipped rather than
// erroring, per spec.md §4.2.
func (g *Gateway) ParseSplitCreated(logs []*types.Log) (*big.Int, bool) {
	eventID := coordinatorABI.Events["SplitCreated"].ID

	for _, l := range logs {
		if l == nil || l.Address != g.coordinatorAddr {
			continue
		}
		if len(l.Topics) == 0 || l.Topics[0] != eventID {
			continue
		}

		// Only totalAmount is non-indexed; splitId and payer live in
		// Topics[1:], not l.Data.
		event := struct {
			TotalAmount *big.Int
		}{}
		if err := coordinatorABI.UnpackIntoInterface(&event, "SplitCreated", l.Data); err != nil {
			continue
		}
		if len(l.Topics) < 2 {
			continue
		}
		splitID := new(big.Int).SetBytes(l.Topics[1].Bytes())
		return splitID, true
	}
	return nil, false
}

func (g *Gateway) txOpts(ctx context.Context) *bind.TransactOpts {
	opts := new(bind.TransactOpts)
	*opts = *g.auth
	opts.Context = ctx
	return opts
}

func (g *Gateway) awaitReceipt(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, g.client, tx)
	if err != nil {
		metrics.RPCFailures.WithLabelValues("waitMined").Inc()
		return nil, core.Wrap(core.KindChainFailed, "waiting for transaction receipt", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, core.New(core.KindChainFailed, fmt.Sprintf("transaction %s reverted", tx.Hash().Hex()))
	}

	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Status:      receipt.Status,
		Logs:        receipt.Logs,
	}, nil
}

// SignerAddress returns the executor's address, or the zero address
// if no write handle is configured.
func (g *Gateway) SignerAddress() common.Address {
	return g.signerAddress
}

// WriteCapable reports whether write operations are available.
func (g *Gateway) WriteCapable() bool {
	return g.writeCapable
}
