package models

import (
	"strconv"
	"time"
)

// Split is a payment-split job bound to one chain and one coordinator
// contract. See DESIGN.md for the rationale behind Numeric256.
type Split struct {
	ID             uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ChainID        int64      `json:"chain_id" gorm:"not null;index:idx_split_chain_contract"`
	Contract       string     `json:"contract" gorm:"size:42;not null;index:idx_split_chain_contract"`
	SplitIDOnchain *Numeric256 `json:"split_id_onchain" gorm:"type:DECIMAL(78,0)"`
	Payer          string     `json:"payer" gorm:"size:42;not null;index"`
	Token          string     `json:"token" gorm:"size:42;not null;index"`
	TotalAmount    Numeric256 `json:"total_amount" gorm:"type:DECIMAL(78,0);not null"`
	Deadline       *time.Time `json:"deadline"`
	MetaHash       *string    `json:"meta_hash" gorm:"size:66"`
	Settled        bool       `json:"settled" gorm:"not null;default:false;index:idx_split_settled_created"`
	// OnchainCreateTxHash records the transaction hash of a successful
	// createSplit call whose SplitCreated event could not be decoded,
	// so the on-chain id can be reconciled later. See SPEC_FULL.md §9.
	OnchainCreateTxHash *string `json:"onchain_create_tx_hash" gorm:"size:66"`
	CreatedAt           time.Time `json:"created_at" gorm:"index:idx_split_settled_created"`
	UpdatedAt           time.Time `json:"updated_at"`

	Participants []SplitParticipant `json:"participants" gorm:"constraint:OnDelete:CASCADE"`
	Signatures   []SplitSignature   `json:"signatures" gorm:"constraint:OnDelete:CASCADE"`
}

func (Split) TableName() string {
	return "splits"
}

// EffectiveSplitID returns the identifier used for EIP-712 signing and
// settlement: the on-chain id if the coordinator minted one, otherwise
// the local autoincrement id cast to a 256-bit integer. Every caller
// that builds or verifies a signature MUST go through this function so
// the "splitId used for signing" pairing in spec.md §4.3 stays
// consistent between intent generation and settlement.
func (s *Split) EffectiveSplitID() Numeric256 {
	if s.SplitIDOnchain != nil {
		return *s.SplitIDOnchain
	}
	v, _ := ParseNumeric256(strconv.FormatUint(s.ID, 10))
	return v
}

// SplitParticipant is one leg of a split.
type SplitParticipant struct {
	ID                 uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SplitID            uint64     `json:"split_id" gorm:"not null;uniqueIndex:idx_participant_split_addr"`
	Participant        string     `json:"participant" gorm:"size:42;not null;uniqueIndex:idx_participant_split_addr;index"`
	Amount             Numeric256 `json:"amount" gorm:"type:DECIMAL(78,0);not null"`
	ApprovedOffchainAt *time.Time `json:"approved_offchain_at"`
	UsedOnchainAt      *time.Time `json:"used_onchain_at"`
}

func (SplitParticipant) TableName() string {
	return "split_participants"
}

// SignatureStatus is the closed enumeration of SplitSignature
// lifecycle states. Transitions: PENDING -> {VALID, EXPIRED,
// REJECTED}; VALID -> USED_ONCHAIN. All other transitions are
// forbidden and must be rejected by the engine, not by the schema.
type SignatureStatus string

const (
	SignatureStatusPending     SignatureStatus = "PENDING"
	SignatureStatusValid       SignatureStatus = "VALID"
	SignatureStatusUsedOnchain SignatureStatus = "USED_ONCHAIN"
	SignatureStatusExpired     SignatureStatus = "EXPIRED"
	SignatureStatusRejected    SignatureStatus = "REJECTED"
)

// CanTransitionTo reports whether moving from s to next is a legal
// SignatureStatus transition per spec.md §3.
func (s SignatureStatus) CanTransitionTo(next SignatureStatus) bool {
	switch s {
	case SignatureStatusPending:
		switch next {
		case SignatureStatusValid, SignatureStatusExpired, SignatureStatusRejected:
			return true
		}
	case SignatureStatusValid:
		return next == SignatureStatusUsedOnchain
	}
	return false
}

// SplitSignature is one off-chain approval attempt.
type SplitSignature struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	SplitID     uint64          `json:"split_id" gorm:"not null;uniqueIndex:idx_signature_split_participant_salt;index:idx_signature_status_created"`
	Participant string          `json:"participant" gorm:"size:42;not null;uniqueIndex:idx_signature_split_participant_salt;index"`
	Amount      Numeric256      `json:"amount" gorm:"type:DECIMAL(78,0);not null"`
	Deadline    *time.Time      `json:"deadline"`
	Salt        string          `json:"salt" gorm:"size:66;not null;uniqueIndex:idx_signature_split_participant_salt"`
	Signature   string          `json:"signature" gorm:"type:text"`
	Status      SignatureStatus `json:"status" gorm:"size:16;not null;default:'PENDING';index:idx_signature_status_created"`
	Reason      *string         `json:"reason" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index:idx_signature_status_created"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (SplitSignature) TableName() string {
	return "split_signatures"
}

// SupportedToken is the read-only token catalog used by the query
// layer.
type SupportedToken struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	ChainID  int64  `json:"chain_id" gorm:"not null;uniqueIndex:idx_token_chain_addr"`
	Address  string `json:"address" gorm:"size:42;not null;uniqueIndex:idx_token_chain_addr"`
	Symbol   string `json:"symbol" gorm:"size:32;not null"`
	Name     string `json:"name" gorm:"size:128;not null"`
	Decimals int    `json:"decimals" gorm:"not null"`
	Enabled  bool   `json:"enabled" gorm:"not null"`
}

func (SupportedToken) TableName() string {
	return "supported_tokens"
}
