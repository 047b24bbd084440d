package dto

import "github.com/google/uuid"

type SaveProjectRequestDTO struct {
	Name         string `json:"name"`
	PortfolioURL string `json:"portfolio_url"`
	LinkedinURL  string `json:"linkedin_url"`
	InstagramURL string `json:"instagram_url"`
}

type LoadProjectRequestDTO struct {
	ProjectID string `json:"project_id" binding:"required"`
}

type LastProjectRequestDTO struct {
	ProjectID string `json:"project_id" binding:"required"`
}

type ProjectResponseDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PortfolioURL string    `json:"portfolio_url,omitempty"`
	LinkedinURL  string    `json:"linkedin_url,omitempty"`
	InstagramURL string    `json:"instagram_url,omitempty"`
	Compiled     bool      `json:"compiled"`
	TargetCount  int       `json:"target_count"`
	MindURL      string    `json:"mind_url,omitempty"`
}

type TargetResponseDTO struct {
	ID             uuid.UUID `json:"id"`
	TargetIndex    int       `json:"target_index"`
	PosterURL      string    `json:"poster_url"`
	PosterFilename string    `json:"poster_filename"`
	VideoURL       *string   `json:"video_url,omitempty"`
	VideoFilename  *string   `json:"video_filename,omitempty"`
	HasLocalPoster bool      `json:"has_local_poster"`
}

type SessionStateResponseDTO struct {
	Project      *ProjectResponseDTO `json:"project"`
	Targets      []TargetResponseDTO `json:"targets"`
	Recompilable bool                `json:"recompilable"`
	MissingCount int                 `json:"missing_poster_count"`
}
