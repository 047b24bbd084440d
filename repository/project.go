package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(project *entity.Project) error {
	if err := r.db.Create(project).Error; err != nil {
		return errs.Connectivity("failed to create project", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	err := r.db.Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("project not found")
		}
		return nil, errs.Connectivity("failed to load project", err)
	}
	return &project, nil
}

func (r *ProjectRepository) FindAll() ([]entity.Project, error) {
	var projects []entity.Project
	if err := r.db.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, errs.Connectivity("failed to list projects", err)
	}
	return projects, nil
}

// UpdateFields merges the given columns onto the project row. UpdatedAt is
// stamped on every call, matching the document-store semantics.
func (r *ProjectRepository) UpdateFields(id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.Model(&entity.Project{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errs.Connectivity("failed to update project", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("project not found")
	}
	return nil
}
