package models

import (
	"time"

	"github.com/google/uuid"
)

// Magazine is a published article. Premium articles require an active
// subscription to read the body.
type Magazine struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category    string    `gorm:"column:category;not null"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description"`
	Content     string    `gorm:"column:content;not null"`
	Tags        []string  `gorm:"column:tags;type:jsonb;serializer:json"`
	ImageURL    string    `gorm:"column:image_url"`
	Premium     bool      `gorm:"column:premium;not null;default:true"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps articles on the magazines table.
func (Magazine) TableName() string {
	return "magazines"
}
