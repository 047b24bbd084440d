package entity

import (
	"time"

	"github.com/google/uuid"
)

// Target is one poster with an optional video, addressed by a dense
// zero-based index within its project. TargetIndex is the join key between
// the stored record, the compiled dataset's image order and the tracking
// library's found/lost events, so it must stay contiguous after deletions.
type Target struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID      uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index:idx_project_target_index"`
	TargetIndex    int       `json:"target_index" gorm:"not null;index:idx_project_target_index"`
	PosterURL      string    `json:"poster_url" gorm:"type:varchar(1024);not null"`
	PosterPath     string    `json:"poster_path" gorm:"type:varchar(1024);not null"`
	PosterFilename string    `json:"poster_filename" gorm:"type:varchar(512)"`
	VideoURL       *string   `json:"video_url" gorm:"type:varchar(1024)"`
	VideoPath      *string   `json:"video_path" gorm:"type:varchar(1024)"`
	VideoFilename  *string   `json:"video_filename" gorm:"type:varchar(512)"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;autoCreateTime"`

	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// HasVideo reports whether a playable video is attached.
func (t *Target) HasVideo() bool {
	return t.VideoURL != nil && *t.VideoURL != ""
}
