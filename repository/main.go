package repository

import (
	"github.com/postarhq/postar/infra"
	"gorm.io/gorm"
)

type Repository struct {
	ProjectRepo    *ProjectRepository
	TargetRepo     *TargetRepository
	CompileJobRepo *CompileJobRepository
}

func InitRepository(infra *infra.Infra) *Repository {
	return NewRepository(infra.Postgres.DB)
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		ProjectRepo:    NewProjectRepository(db),
		TargetRepo:     NewTargetRepository(db),
		CompileJobRepo: NewCompileJobRepository(db),
	}
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}
