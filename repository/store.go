package repository

import (
	"github.com/google/uuid"
	"github.com/postarhq/postar/entity"
)

// Flat accessors so *Repository satisfies the lifecycle controllers' project
// store contract without an extra adapter type.

func (r *Repository) CreateProject(project *entity.Project) error {
	return r.ProjectRepo.Create(project)
}

func (r *Repository) GetProject(id uuid.UUID) (*entity.Project, error) {
	return r.ProjectRepo.FindByID(id)
}

func (r *Repository) UpdateProject(id uuid.UUID, fields map[string]interface{}) error {
	return r.ProjectRepo.UpdateFields(id, fields)
}

func (r *Repository) ListProjects() ([]entity.Project, error) {
	return r.ProjectRepo.FindAll()
}

func (r *Repository) AddTarget(target *entity.Target) error {
	return r.TargetRepo.Create(target)
}

func (r *Repository) ListTargets(projectID uuid.UUID) ([]entity.Target, error) {
	return r.TargetRepo.FindByProjectID(projectID)
}

func (r *Repository) UpdateTarget(projectID, targetID uuid.UUID, fields map[string]interface{}) error {
	return r.TargetRepo.UpdateFields(projectID, targetID, fields)
}

func (r *Repository) DeleteTarget(projectID, targetID uuid.UUID) error {
	return r.TargetRepo.Delete(projectID, targetID)
}
