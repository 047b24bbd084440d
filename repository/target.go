package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"gorm.io/gorm"
)

type TargetRepository struct {
	db *gorm.DB
}

func NewTargetRepository(db *gorm.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

func (r *TargetRepository) Create(target *entity.Target) error {
	if err := r.db.Create(target).Error; err != nil {
		return errs.Connectivity("failed to create target", err)
	}
	return nil
}

// FindByProjectID returns the project's targets ascending by target_index.
// The viewer and the compiler both rely on this order.
func (r *TargetRepository) FindByProjectID(projectID uuid.UUID) ([]entity.Target, error) {
	var targets []entity.Target
	err := r.db.Where("project_id = ?", projectID).
		Order("target_index ASC").Find(&targets).Error
	if err != nil {
		return nil, errs.Connectivity("failed to list targets", err)
	}
	return targets, nil
}

func (r *TargetRepository) FindByID(projectID, targetID uuid.UUID) (*entity.Target, error) {
	var target entity.Target
	err := r.db.Where("id = ? AND project_id = ?", targetID, projectID).First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("target not found")
		}
		return nil, errs.Connectivity("failed to load target", err)
	}
	return &target, nil
}

func (r *TargetRepository) UpdateFields(projectID, targetID uuid.UUID, fields map[string]interface{}) error {
	result := r.db.Model(&entity.Target{}).
		Where("id = ? AND project_id = ?", targetID, projectID).Updates(fields)
	if result.Error != nil {
		return errs.Connectivity("failed to update target", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("target not found")
	}
	return nil
}

func (r *TargetRepository) Delete(projectID, targetID uuid.UUID) error {
	err := r.db.Delete(&entity.Target{}, "id = ? AND project_id = ?", targetID, projectID).Error
	if err != nil {
		return errs.Connectivity("failed to delete target", err)
	}
	return nil
}
