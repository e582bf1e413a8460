package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/neosam/haushalt-sub000/internal/model"
)

// PointsRepository is an append-only ledger of point transactions.
type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

func (r *PointsRepository) Append(ctx context.Context, tx *model.PointTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("append point transaction: %w", err)
	}
	return nil
}

// Balance sums every entry of a member.
func (r *PointsRepository) Balance(ctx context.Context, householdID, userID string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.PointTransaction{}).
		Where("household_id = ? AND user_id = ?", householdID, userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

// UnreversedForCompletion returns the entries booked for a completion that
// no reversal points at yet.
func (r *PointsRepository) UnreversedForCompletion(ctx context.Context, completionID string) ([]model.PointTransaction, error) {
	var entries []model.PointTransaction
	reversed := r.db.Model(&model.PointTransaction{}).
		Select("reverses_id").
		Where("reverses_id IS NOT NULL")
	if err := r.db.WithContext(ctx).
		Where("completion_id = ? AND kind <> ?", completionID, model.PointsReversal).
		Where("id NOT IN (?)", reversed).
		Order("created_at").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list completion point transactions: %w", err)
	}
	return entries, nil
}

// History returns a member's entries, newest first.
func (r *PointsRepository) History(ctx context.Context, householdID, userID string) ([]model.PointTransaction, error) {
	var entries []model.PointTransaction
	if err := r.db.WithContext(ctx).
		Where("household_id = ? AND user_id = ?", householdID, userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list point transactions: %w", err)
	}
	return entries, nil
}
