package sql

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/entity/db"
)

// CreateVerificationCode persists a freshly issued code.
func (r *GormRepository) CreateVerificationCode(ctx context.Context, code *db.VerificationCode) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if code == nil {
		return fmt.Errorf("verification code is nil")
	}
	return r.db.WithContext(ctx).Create(code).Error
}

// GetLatestCode returns the most recently issued code for a target/type pair,
// regardless of use or expiry. Used for cooldown checks.
func (r *GormRepository) GetLatestCode(ctx context.Context, codeType, target string) (*db.VerificationCode, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var code db.VerificationCode
	err := r.db.WithContext(ctx).
		Where("type = ? AND target = ?", codeType, target).
		Order("created_at DESC, id DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// GetLatestUsableCode returns the newest unused, unexpired code matching the
// supplied value for a target/type pair.
func (r *GormRepository) GetLatestUsableCode(ctx context.Context, codeType, target, value string) (*db.VerificationCode, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var code db.VerificationCode
	err := r.db.WithContext(ctx).
		Where("type = ? AND target = ? AND code = ? AND used = ? AND expires_at > ?",
			codeType, target, value, false, time.Now()).
		Order("created_at DESC, id DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// MarkCodeUsed consumes a code. The conditional update guarantees a code is
// consumed at most once even under concurrent reset attempts.
func (r *GormRepository) MarkCodeUsed(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid code id")
	}
	result := r.db.WithContext(ctx).
		Model(&db.VerificationCode{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeConsumed
	}
	return nil
}
