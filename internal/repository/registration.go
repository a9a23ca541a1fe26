package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/aman-churiwal/hackathon-portal/internal/storage"
	"gorm.io/gorm"
)

type RegistrationFilter struct {
	Status models.RegistrationStatus
	Search string
	Limit  int
	Offset int
}

type RegistrationRepository struct {
	db *storage.Postgres
}

func NewRegistrationRepository(db *storage.Postgres) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Inserts a registration. Unique violations come back as ErrDuplicateTeamID or ErrDuplicateEmail.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if err := r.db.DB.WithContext(ctx).Create(reg).Error; err != nil {
		return classifyInsertError(err)
	}
	return nil
}

func (r *RegistrationRepository) FindByTeamID(ctx context.Context, teamID string) (*models.Registration, error) {
	var reg models.Registration
	err := r.db.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		First(&reg).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

// Returns the team id of the most recently created registration with the given prefix
func (r *RegistrationRepository) LatestTeamID(ctx context.Context, prefix string) (string, error) {
	var teamIDs []string
	err := r.db.DB.WithContext(ctx).
		Model(&models.Registration{}).
		Where("team_id LIKE ?", prefix+"-%").
		Order("created_at DESC").
		Order("team_id DESC").
		Limit(1).
		Pluck("team_id", &teamIDs).Error

	if err != nil {
		return "", err
	}
	if len(teamIDs) == 0 {
		return "", nil
	}

	return teamIDs[0], nil
}

func (r *RegistrationRepository) TeamIDExists(ctx context.Context, teamID string) (bool, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Registration{}).
		Where("team_id = ?", teamID).
		Count(&count).Error

	return count > 0, err
}

func (r *RegistrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]models.Registration, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.Registration{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("team_id ILIKE ? OR team_name ILIKE ? OR leader_email ILIKE ? OR college ILIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []models.Registration
	err := query.
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&regs).Error

	return regs, total, err
}

// Returns the number of registrations in each status
func (r *RegistrationRepository) CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error) {
	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.Registration{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.RegistrationStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.RegistrationStatus(status)] = count
	}

	return counts, rows.Err()
}

// Moves a pending registration to status. The WHERE clause makes concurrent decisions race-safe:
// only one reviewer can move a row out of pending.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, teamID string, status models.RegistrationStatus, reviewer, note string) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.Registration{}).
		Where("team_id = ? AND status = ?", teamID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer,
			"review_note": note,
			"reviewed_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotPending, teamID)
	}

	return nil
}

func (r *RegistrationRepository) SetPaymentProof(ctx context.Context, teamID, key string) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Registration{}).
		Where("team_id = ?", teamID).
		Update("payment_proof_key", key).Error
}

func (r *RegistrationRepository) Delete(ctx context.Context, teamID string) error {
	return r.db.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.Registration{}).Error
}
