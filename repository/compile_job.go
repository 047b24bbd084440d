package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postarhq/postar/entity"
	"github.com/postarhq/postar/errs"
	"gorm.io/gorm"
)

type CompileJobRepository struct {
	db *gorm.DB
}

func NewCompileJobRepository(db *gorm.DB) *CompileJobRepository {
	return &CompileJobRepository{db: db}
}

func (r *CompileJobRepository) Create(job *entity.CompileJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return errs.Connectivity("failed to create compile job", err)
	}
	return nil
}

func (r *CompileJobRepository) FindByID(id uuid.UUID) (*entity.CompileJob, error) {
	var job entity.CompileJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("compile job not found")
		}
		return nil, errs.Connectivity("failed to load compile job", err)
	}
	return &job, nil
}

func (r *CompileJobRepository) FindByProjectID(projectID uuid.UUID) ([]entity.CompileJob, error) {
	var jobs []entity.CompileJob
	err := r.db.Where("project_id = ?", projectID).
		Order("started_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, errs.Connectivity("failed to list compile jobs", err)
	}
	return jobs, nil
}

// UpdateStatus transitions a job and stamps finished_at on terminal states.
func (r *CompileJobRepository) UpdateStatus(id uuid.UUID, status entity.CompileJobStatus, message string) error {
	fields := map[string]interface{}{
		"status":  status,
		"message": message,
	}
	if status == entity.CompileJobCompleted || status == entity.CompileJobFailed {
		now := time.Now()
		fields["finished_at"] = &now
	}
	err := r.db.Model(&entity.CompileJob{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return errs.Connectivity("failed to update compile job", err)
	}
	return nil
}
