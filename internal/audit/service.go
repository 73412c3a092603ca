package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"petani-backend/internal/models"
)

type LogOptions struct {
	UserID      uint
	Username    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog records one mutation. Pass the transaction that performed the
// mutation so the log commits or rolls back with it.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr, err := snapshotJSON(opts.Before)
	if err != nil {
		return fmt.Errorf("encode audit before: %w", err)
	}
	afterStr, err := snapshotJSON(opts.After)
	if err != nil {
		return fmt.Errorf("encode audit after: %w", err)
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		Username:    opts.Username,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: truncate(opts.Description, 255),
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// snapshotJSON encodes v; jsonb rejects the empty string, so an absent
// snapshot is JSON null.
func snapshotJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type Filter struct {
	EntityType string
	EntityID   uint
	Limit      int
}

// Store reads the audit trail.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// List returns the newest entries written by userID.
func (s *Store) List(ctx context.Context, userID uint, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
