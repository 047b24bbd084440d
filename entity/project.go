package entity

import (
	"time"

	"github.com/google/uuid"
)

// Project is one shareable poster-to-video experience. Compiled flips to
// false on every structural edit and back to true only after a successful
// end-to-end compile. TargetCount is the target count at the last successful
// compile, not the live count; the drift flags a stale dataset.
type Project struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	PortfolioURL string    `json:"portfolio_url" gorm:"type:varchar(1024)"`
	LinkedinURL  string    `json:"linkedin_url" gorm:"type:varchar(1024)"`
	InstagramURL string    `json:"instagram_url" gorm:"type:varchar(1024)"`
	Compiled     bool      `json:"compiled" gorm:"not null;default:false"`
	TargetCount  int       `json:"target_count" gorm:"not null;default:0"`
	MindURL      string    `json:"mind_url" gorm:"type:varchar(1024)"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Targets []Target `json:"targets,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}
