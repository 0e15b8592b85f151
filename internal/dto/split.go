// Package dto is the wire-shape layer described in spec.md §4.5:
// plain structs with json tags plus the functions that project models
// into them, grounded on the teacher's request/response DTO shape.
package dto

import (
	"time"

	"github.com/AccountantBot/AccountantBot-Backend/internal/models"
)

// LegRequest is one leg of a CreateSplitRequest.
type LegRequest struct {
	Participant string `json:"participant" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// CreateSplitRequest is POST /splits' body.
type CreateSplitRequest struct {
	Payer         string       `json:"payer" binding:"required"`
	Token         string       `json:"token" binding:"required"`
	Legs          []LegRequest `json:"legs" binding:"required,min=1"`
	Deadline      *string      `json:"deadline"`
	MetaHash      *string      `json:"metaHash"`
	CreateOnchain bool         `json:"createOnchain"`
}

// CreateSplitResponse is POST /splits' body.
type CreateSplitResponse struct {
	ID     uint64  `json:"id"`
	TxHash *string `json:"txHash"`
}

// GenerateIntentRequest is POST /splits/:id/approve-intent's body.
type GenerateIntentRequest struct {
	Participant string  `json:"participant" binding:"required"`
	Deadline    *string `json:"deadline"`
}

// SubmitSignatureRequest is POST /splits/:id/signatures' body.
type SubmitSignatureRequest struct {
	Participant string  `json:"participant" binding:"required"`
	Amount      string  `json:"amount" binding:"required"`
	Salt        string  `json:"salt" binding:"required"`
	Deadline    *string `json:"deadline"`
	Signature   string  `json:"signature" binding:"required"`
}

// SettleItemRequest is one explicit override item in a SettleRequest.
type SettleItemRequest struct {
	Participant string  `json:"participant" binding:"required"`
	Amount      string  `json:"amount" binding:"required"`
	Deadline    *string `json:"deadline"`
	Salt        string  `json:"salt" binding:"required"`
	Signature   string  `json:"signature" binding:"required"`
}

// SettleRequest is POST /splits/:id/settle's body.
type SettleRequest struct {
	Items []SettleItemRequest `json:"items"`
}

// SettleResponse is POST /splits/:id/settle's body.
type SettleResponse struct {
	TxHash string `json:"txHash"`
}

// AllowanceResponse is GET /splits/allowances/check's body.
type AllowanceResponse struct {
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

// ParticipantView is one participant row in a SplitView.
type ParticipantView struct {
	ID                 uint64  `json:"id"`
	Participant        string  `json:"participant"`
	Amount             string  `json:"amount"`
	ApprovedOffchainAt *string `json:"approvedOffchainAt"`
	UsedOnchainAt      *string `json:"usedOnchainAt"`
}

// SignatureView is one signature row in a SplitView.
type SignatureView struct {
	ID        uint64  `json:"id"`
	Participant string `json:"participant"`
	Amount    string  `json:"amount"`
	Deadline  *string `json:"deadline"`
	Salt      string  `json:"salt"`
	Signature *string `json:"signature"`
	Status    string  `json:"status"`
	Reason    *string `json:"reason"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// SplitView is the canonical Split serialization from spec.md §4.5.
type SplitView struct {
	ID             uint64            `json:"id"`
	ChainID        int64             `json:"chainId"`
	Contract       string            `json:"contract"`
	SplitIDOnchain *string           `json:"splitIdOnchain"`
	Payer          string            `json:"payer"`
	Token          string            `json:"token"`
	TotalAmount    string            `json:"totalAmount"`
	Deadline       *string           `json:"deadline"`
	MetaHash       *string           `json:"metaHash"`
	Settled        bool              `json:"settled"`
	CreatedAt      string            `json:"createdAt"`
	UpdatedAt      string            `json:"updatedAt"`
	Participants   []ParticipantView `json:"participants"`
	Signatures     []SignatureView   `json:"signatures"`
}

// TokenView is one row of GET /tokens.
type TokenView struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

// NewSplitView serializes a fully loaded Split per §4.5. Signatures
// and participants preserve the persistence layer's enumeration order.
func NewSplitView(s *models.Split) SplitView {
	var splitIDOnchain *string
	if s.SplitIDOnchain != nil {
		v := s.SplitIDOnchain.String()
		splitIDOnchain = &v
	}

	var deadline *string
	if s.Deadline != nil {
		v := s.Deadline.UTC().Format(rfc3339)
		deadline = &v
	}

	participants := make([]ParticipantView, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = ParticipantView{
			ID:                 p.ID,
			Participant:        p.Participant,
			Amount:             p.Amount.String(),
			ApprovedOffchainAt: formatTimePtr(p.ApprovedOffchainAt),
			UsedOnchainAt:      formatTimePtr(p.UsedOnchainAt),
		}
	}

	signatures := make([]SignatureView, len(s.Signatures))
	for i, sig := range s.Signatures {
		var signature *string
		if sig.Signature != "" {
			signature = &sig.Signature
		}
		signatures[i] = SignatureView{
			ID:          sig.ID,
			Participant: sig.Participant,
			Amount:      sig.Amount.String(),
			Deadline:    formatTimePtr(sig.Deadline),
			Salt:        sig.Salt,
			Signature:   signature,
			Status:      string(sig.Status),
			Reason:      sig.Reason,
			CreatedAt:   sig.CreatedAt.UTC().Format(rfc3339),
			UpdatedAt:   sig.UpdatedAt.UTC().Format(rfc3339),
		}
	}

	return SplitView{
		ID:             s.ID,
		ChainID:        s.ChainID,
		Contract:       s.Contract,
		SplitIDOnchain: splitIDOnchain,
		Payer:          s.Payer,
		Token:          s.Token,
		TotalAmount:    s.TotalAmount.String(),
		Deadline:       deadline,
		MetaHash:       s.MetaHash,
		Settled:        s.Settled,
		CreatedAt:      s.CreatedAt.UTC().Format(rfc3339),
		UpdatedAt:      s.UpdatedAt.UTC().Format(rfc3339),
		Participants:   participants,
		Signatures:     signatures,
	}
}

// NewTokenViews projects a SupportedToken slice into the wire shape.
func NewTokenViews(tokens []models.SupportedToken) []TokenView {
	views := make([]TokenView, len(tokens))
	for i, t := range tokens {
		views[i] = TokenView{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
		}
	}
	return views
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(rfc3339)
	return &v
}
