package infrastructure

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gereca/internal/service/reservation/lease"
)

// LeaseModel is the database row behind a persisted lease.
type LeaseModel struct {
	HoldID        string    `gorm:"column:hold_id;primaryKey;size:64"`
	RoomID        string    `gorm:"column:room_id;size:64;not null"`
	ReservationID int64     `gorm:"column:reservation_id;not null"`
	LeaseEnd      time.Time `gorm:"column:lease_end;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (LeaseModel) TableName() string {
	return "hold_leases"
}

// GormLeaseStore is the lease.Store implementation on MySQL.
type GormLeaseStore struct {
	db *gorm.DB
}

func NewGormLeaseStore(db *gorm.DB) *GormLeaseStore {
	return &GormLeaseStore{db: db}
}

// AutoMigrate creates or updates the hold_leases table.
func (s *GormLeaseStore) AutoMigrate() error {
	return s.db.AutoMigrate(&LeaseModel{})
}

func (s *GormLeaseStore) Save(ctx context.Context, l lease.StoredLease) error {
	model := LeaseModel{
		HoldID:        l.HoldID,
		RoomID:        l.RoomID,
		ReservationID: l.ReservationID,
		LeaseEnd:      l.LeaseEnd,
	}
	// Upsert keyed on hold_id; recovery may re-save a lease it just re-armed.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hold_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"room_id", "reservation_id", "lease_end", "updated_at"}),
		}).
		Create(&model).Error
}

func (s *GormLeaseStore) Delete(ctx context.Context, holdID string) error {
	return s.db.WithContext(ctx).
		Where("hold_id = ?", holdID).
		Delete(&LeaseModel{}).Error
}

func (s *GormLeaseStore) List(ctx context.Context) ([]lease.StoredLease, error) {
	var models []LeaseModel
	if err := s.db.WithContext(ctx).Order("lease_end asc").Find(&models).Error; err != nil {
		return nil, err
	}
	leases := make([]lease.StoredLease, 0, len(models))
	for _, m := range models {
		leases = append(leases, lease.StoredLease{
			HoldID:        m.HoldID,
			RoomID:        m.RoomID,
			ReservationID: m.ReservationID,
			LeaseEnd:      m.LeaseEnd,
		})
	}
	return leases, nil
}
