package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// coordinatorABIJSON is the ABI surface spec.md §6 specifies for the
// coordinator contract. It is hand-written (not abigen-generated)
// since the surface is two methods and one event, following the
// teacher's own hand-rolled-ABI style in
// internal/services/blockchain_transaction_service.go.
const coordinatorABIJSON = `[
	{
		"type": "function",
		"name": "createSplit",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "payer", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "legs", "type": "tuple[]", "components": [
				{"name": "participant", "type": "address"},
				{"name": "amount", "type": "uint256"}
			]},
			{"name": "deadline", "type": "uint256"},
			{"name": "metaHash", "type": "bytes32"}
		],
		"outputs": [{"name": "splitId", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "settleSplit",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "splitId", "type": "uint256"},
			{"name": "participants", "type": "address[]"},
			{"name": "amounts", "type": "uint256[]"},
			{"name": "deadlines", "type": "uint256[]"},
			{"name": "salts", "type": "bytes32[]"},
			{"name": "vs", "type": "uint8[]"},
			{"name": "rs", "type": "bytes32[]"},
			{"name": "ss", "type": "bytes32[]"}
		],
		"outputs": []
	},
	{
		"type": "event",
		"name": "SplitCreated",
		"anonymous": false,
		"inputs": [
			{"name": "splitId", "type": "uint256", "indexed": true},
			{"name": "payer", "type": "address", "indexed": true},
			{"name": "totalAmount", "type": "uint256", "indexed": false}
		]
	}
]`

// erc20ABIJSON is the subset of the ERC-20 surface the gateway needs:
// allowance for the pre-flight probe.
const erc20ABIJSON = `[
	{
		"type": "function",
		"name": "allowance",
		"stateMutability": "view",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

var (
	coordinatorABI = mustParseABI(coordinatorABIJSON)
	erc20ABI       = mustParseABI(erc20ABIJSON)
)

// Leg mirrors the coordinator's (address,uint256) tuple for
// createSplit's legs array. Field order and exported names must match
// the ABI's tuple components for go-ethereum's abi.Pack to encode it
// correctly.
type Leg struct {
	Participant common.Address
	Amount      *big.Int
}
