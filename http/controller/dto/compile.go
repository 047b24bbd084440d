package dto

import "github.com/google/uuid"

type CompileJobResponseDTO struct {
	JobID       uuid.UUID `json:"job_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	TargetCount int       `json:"target_count"`
	Message     string    `json:"message,omitempty"`
	MindURL     string    `json:"mind_url,omitempty"`
}
