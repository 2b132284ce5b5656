package models

import (
	"time"
)

// Post represents a post. RequiredAccessID is the minimum tier a viewer needs
// to read it.
type Post struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"size:70;not null" json:"title"`
	Description      string       `gorm:"size:250" json:"description"`
	OwnerID          uint         `gorm:"not null;index" json:"owner_id"`
	Owner            *User        `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	RequiredAccessID uint         `gorm:"not null;index" json:"required_access_id"`
	RequiredAccess   *EntryAccess `gorm:"foreignKey:RequiredAccessID" json:"required_access,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// PostChanges is the set of assignable post fields. A nil field was not
// provided by the caller.
type PostChanges struct {
	Title            *string `json:"title" form:"title" validate:"omitempty,min=1,max=70"`
	Description      *string `json:"description" form:"description" validate:"omitempty,max=250"`
	RequiredAccessID *uint   `json:"required_access_id" form:"required_access_id" validate:"omitempty,min=1"`
}

// Apply copies the change set onto p. A full update clears the description
// when it is absent.
func (ch PostChanges) Apply(p *Post, partial bool) {
	if ch.Title != nil || !partial {
		p.Title = deref(ch.Title)
	}
	if ch.Description != nil || !partial {
		p.Description = deref(ch.Description)
	}
	if ch.RequiredAccessID != nil || !partial {
		p.RequiredAccessID = deref(ch.RequiredAccessID)
	}
}

// Empty reports whether no field was provided.
func (ch PostChanges) Empty() bool {
	return ch.Title == nil && ch.Description == nil && ch.RequiredAccessID == nil
}
