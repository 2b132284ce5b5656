package models

import "time"

// AccessTitle labels an access tier.
type AccessTitle string

const (
	AccessDefault AccessTitle = "default"
	AccessPremium AccessTitle = "premium"
	AccessVIP     AccessTitle = "vip"
)

// DefaultAccessTiers is the ordered set of tiers ensured at startup. The
// insertion order fixes their ids, so default < premium < vip.
var DefaultAccessTiers = []EntryAccess{
	{AccessTitle: AccessDefault, Description: "Standard access"},
	{AccessTitle: AccessPremium, Description: "Premium access"},
	{AccessTitle: AccessVIP, Description: "VIP access"},
}

// EntryAccess is an access tier. Tiers are totally ordered by ID: a higher ID
// unlocks more content.
type EntryAccess struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	AccessTitle AccessTitle `gorm:"type:varchar(20);not null;uniqueIndex" json:"access_title"`
	Description string      `gorm:"size:250" json:"description"`
	CreatedAt   time.Time   `json:"-"`
	UpdatedAt   time.Time   `json:"-"`
}

// TableName keeps the historical table name.
func (EntryAccess) TableName() string {
	return "entry_accesses"
}

// Valid reports whether t is a known tier label.
func (t AccessTitle) Valid() bool {
	switch t {
	case AccessDefault, AccessPremium, AccessVIP:
		return true
	}
	return false
}

// CanView reports whether a viewer holding viewerAccessID may read content
// that requires requiredAccessID.
func CanView(viewerAccessID, requiredAccessID uint) bool {
	return requiredAccessID <= viewerAccessID
}
