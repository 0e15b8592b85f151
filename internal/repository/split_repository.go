// Package repository is the persistence layer described in
// spec.md §4.4: transactional multi-row updates, eager loads, and the
// unique constraints the engine relies on to detect salt reuse.
package repository

import (
	"context"
	"errors"

	"github.com/AccountantBot/AccountantBot-Backend/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup finds no row. Callers
// translate it to core.KindNotFound.
var ErrNotFound = errors.New("record not found")

// SplitRepository is the interface-per-aggregate persistence contract
// for splits, grounded on
// internal/repository/checkbook_repository.go's shape.
type SplitRepository interface {
	// CreateWithParticipants inserts split and its participants in one
	// atomic write.
	CreateWithParticipants(ctx context.Context, split *models.Split) error

	// GetWithChildren eagerly loads a split with its participants and
	// signatures.
	GetWithChildren(ctx context.Context, id uint64) (*models.Split, error)

	// UpdateSplitIDOnchain sets splitIdOnchain (and clears any pending
	// OnchainCreateTxHash) after a SplitCreated event is decoded.
	UpdateSplitIDOnchain(ctx context.Context, id uint64, splitIDOnchain models.Numeric256) error

	// RecordOnchainCreateTxHash persists the tx hash of a create call
	// whose SplitCreated event could not be decoded (SPEC_FULL.md §9).
	RecordOnchainCreateTxHash(ctx context.Context, id uint64, txHash string) error

	// DeleteOrphan removes a Split row inserted just before a failed
	// on-chain createSplit call. Scoped to exactly the one row per
	// spec.md's "Orphan-row cleanup" design note.
	DeleteOrphan(ctx context.Context, id uint64) error

	// InsertSignature inserts a new PENDING signature row.
	InsertSignature(ctx context.Context, sig *models.SplitSignature) error

	// FindSignature looks up a signature row by (splitId, participant,
	// salt).
	FindSignature(ctx context.Context, splitID uint64, participant, saltHex string) (*models.SplitSignature, error)

	// FindValidOrUsedSignature looks up the single VALID or USED_ONCHAIN
	// signature for (splitId, participant), if any.
	FindValidOrUsedSignature(ctx context.Context, splitID uint64, participant string) (*models.SplitSignature, error)

	// ValidSignaturesForSplit returns all VALID signature rows for a
	// split, in stable insertion order.
	ValidSignaturesForSplit(ctx context.Context, splitID uint64) ([]models.SplitSignature, error)

	// MarkSignatureExpired transitions a PENDING row to EXPIRED with a
	// reason.
	MarkSignatureExpired(ctx context.Context, sigID uint64, reason string) error

	// AcceptSignature atomically transitions a signature row from
	// PENDING to VALID and stamps the participant's
	// approvedOffchainAt, per spec.md's Submit Signature effects.
	AcceptSignature(ctx context.Context, sigID uint64, participantID uint64, signatureBytesHex string) error

	// Settle atomically applies the post-settlement state described in
	// spec.md's Settle effects: split.settled=true and, for every
	// item, participant.usedOnchainAt and signature.status=USED_ONCHAIN.
	Settle(ctx context.Context, splitID uint64, items []SettleItemUpdate) error

	// ListTokens returns the SupportedToken catalog.
	ListTokens(ctx context.Context, chainID int64) ([]models.SupportedToken, error)
}

// SettleItemUpdate names the rows one settled leg must update.
type SettleItemUpdate struct {
	ParticipantID uint64
	SignatureID   uint64
}

type splitRepository struct {
	db *gorm.DB
}

// NewSplitRepository constructs a gorm-backed SplitRepository.
func NewSplitRepository(db *gorm.DB) SplitRepository {
	return &splitRepository{db: db}
}

func (r *splitRepository) CreateWithParticipants(ctx context.Context, split *models.Split) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(split).Error
	})
}

func (r *splitRepository) GetWithChildren(ctx context.Context, id uint64) (*models.Split, error) {
	var split models.Split
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Signatures").
		Where("id = ?", id).
		First(&split).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &split, nil
}

func (r *splitRepository) UpdateSplitIDOnchain(ctx context.Context, id uint64, splitIDOnchain models.Numeric256) error {
	return r.db.WithContext(ctx).Model(&models.Split{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"split_id_onchain":       splitIDOnchain,
			"onchain_create_tx_hash": nil,
		}).Error
}

func (r *splitRepository) RecordOnchainCreateTxHash(ctx context.Context, id uint64, txHash string) error {
	return r.db.WithContext(ctx).Model(&models.Split{}).
		Where("id = ?", id).
		Update("onchain_create_tx_hash", txHash).Error
}

func (r *splitRepository) DeleteOrphan(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("split_id = ?", id).Delete(&models.SplitParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("split_id = ?", id).Delete(&models.SplitSignature{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Split{}).Error
	})
}

func (r *splitRepository) InsertSignature(ctx context.Context, sig *models.SplitSignature) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

func (r *splitRepository) FindSignature(ctx context.Context, splitID uint64, participant, saltHex string) (*models.SplitSignature, error) {
	var sig models.SplitSignature
	err := r.db.WithContext(ctx).
		Where("split_id = ? AND participant = ? AND salt = ?", splitID, participant, saltHex).
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *splitRepository) FindValidOrUsedSignature(ctx context.Context, splitID uint64, participant string) (*models.SplitSignature, error) {
	var sig models.SplitSignature
	err := r.db.WithContext(ctx).
		Where("split_id = ? AND participant = ? AND status IN ?", splitID, participant,
			[]models.SignatureStatus{models.SignatureStatusValid, models.SignatureStatusUsedOnchain}).
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *splitRepository) ValidSignaturesForSplit(ctx context.Context, splitID uint64) ([]models.SplitSignature, error) {
	var sigs []models.SplitSignature
	err := r.db.WithContext(ctx).
		Where("split_id = ? AND status = ?", splitID, models.SignatureStatusValid).
		Order("id ASC").
		Find(&sigs).Error
	return sigs, err
}

func (r *splitRepository) MarkSignatureExpired(ctx context.Context, sigID uint64, reason string) error {
	return r.db.WithContext(ctx).Model(&models.SplitSignature{}).
		Where("id = ? AND status = ?", sigID, models.SignatureStatusPending).
		Updates(map[string]interface{}{
			"status": models.SignatureStatusExpired,
			"reason": reason,
		}).Error
}

func (r *splitRepository) AcceptSignature(ctx context.Context, sigID uint64, participantID uint64, signatureHex string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SplitSignature{}).
			Where("id = ? AND status = ?", sigID, models.SignatureStatusPending).
			Updates(map[string]interface{}{
				"status":    models.SignatureStatusValid,
				"signature": signatureHex,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another request already validated this row; the caller
			// treats this as the idempotent-success path, not an
			// error, so we do not fail the transaction here.
			return nil
		}

		return tx.Model(&models.SplitParticipant{}).
			Where("id = ?", participantID).
			Update("approved_offchain_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	})
}

func (r *splitRepository) Settle(ctx context.Context, splitID uint64, items []SettleItemUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Split{}).
			Where("id = ? AND settled = ?", splitID, false).
			Update("settled", true)
		if res.Error != nil {
			return res.Error
		}

		for _, item := range items {
			if err := tx.Model(&models.SplitParticipant{}).
				Where("id = ?", item.ParticipantID).
				Update("used_onchain_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.SplitSignature{}).
				Where("id = ? AND status = ?", item.SignatureID, models.SignatureStatusValid).
				Update("status", models.SignatureStatusUsedOnchain).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *splitRepository) ListTokens(ctx context.Context, chainID int64) ([]models.SupportedToken, error) {
	var tokens []models.SupportedToken
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND enabled = ?", chainID, true).
		Order("symbol ASC").
		Find(&tokens).Error
	return tokens, err
}
