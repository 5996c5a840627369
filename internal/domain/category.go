package domain

import (
	"strings"
	"time"
)

// Category is a user-defined label that plans may reference by name.
type Category struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	NameKey   string    `bson:"nameKey" json:"-"` // lower-cased name, unique
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// CategoryKey is the case-insensitive identity of a category name.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
