package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CompileJobStatus string

const (
	CompileJobPending   CompileJobStatus = "pending"
	CompileJobRunning   CompileJobStatus = "running"
	CompileJobCompleted CompileJobStatus = "completed"
	CompileJobFailed    CompileJobStatus = "failed"
)

// CompileJob records one invocation of the external compilation service for
// a project. Live progress lives in Redis; this row is the durable history.
type CompileJob struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   uuid.UUID        `json:"project_id" gorm:"type:uuid;not null;index"`
	Status      CompileJobStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	TargetCount int              `json:"target_count" gorm:"not null"`
	Message     string           `json:"message" gorm:"type:text"`
	Payload     datatypes.JSON   `json:"payload" gorm:"type:jsonb"`
	StartedAt   time.Time        `json:"started_at" gorm:"not null;autoCreateTime"`
	FinishedAt  *time.Time       `json:"finished_at"`

	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}
