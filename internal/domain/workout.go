// internal/domain/workout.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Validation limits applied at the edge, before anything reaches the store.
const (
	MaxTitleLength = 100
	MinSetCount    = 1
)

// WorkoutPlan is a named collection of exercise sets with owned media and links.
type WorkoutPlan struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	Sets        []Set     `bson:"sets" json:"sets"`
	Media       []Media   `bson:"-" json:"media"` // Loaded from the media collection
	URLLinks    []URLLink `bson:"urlLinks" json:"urlLinks"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Set is one exercise set within a plan.
type Set struct {
	ID     string   `bson:"id" json:"id"`
	Reps   int      `bson:"reps" json:"reps"`
	Weight *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	Notes  string   `bson:"notes,omitempty" json:"notes,omitempty"`
}

// SetInput is a set as submitted by a caller. ID is only meaningful on edit,
// where it lets an existing set keep its identity.
type SetInput struct {
	ID     string   `json:"id,omitempty"`
	Reps   int      `json:"reps" validate:"gt=0"`
	Weight *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Notes  string   `json:"notes,omitempty"`
}

// NewWorkoutPlan is the data needed to create a plan.
type NewWorkoutPlan struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Sets        []SetInput `json:"sets" validate:"min=1,dive"`
}

// WorkoutPlanPatch is a partial update. Nil fields are left untouched.
type WorkoutPlanPatch struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string     `json:"description,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Sets        *[]SetInput `json:"sets,omitempty" validate:"omitempty,min=1,dive"`
	URLLinks    *[]URLLink  `json:"urlLinks,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p WorkoutPlanPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Sets == nil && p.URLLinks == nil
}

// NewSets builds sets from caller input, generating a fresh id for each one.
func NewSets(inputs []SetInput) []Set {
	sets := make([]Set, 0, len(inputs))
	for _, in := range inputs {
		sets = append(sets, Set{
			ID:     uuid.NewString(),
			Reps:   in.Reps,
			Weight: in.Weight,
			Notes:  in.Notes,
		})
	}
	return sets
}

// Apply merges the patch into the plan and refreshes UpdatedAt.
// Submitted sets that carry the id of an existing set keep it; every other set
// gets a new id, so ids stay unique within the plan.
func (p *WorkoutPlan) Apply(patch WorkoutPlanPatch, now time.Time) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Sets != nil {
		p.Sets = p.mergeSets(*patch.Sets)
	}
	if patch.URLLinks != nil {
		p.URLLinks = p.mergeLinks(*patch.URLLinks, now)
	}
	p.Touch(now)
}

// Touch refreshes UpdatedAt, never letting it fall behind CreatedAt.
func (p *WorkoutPlan) Touch(now time.Time) {
	if now.Before(p.CreatedAt) {
		now = p.CreatedAt
	}
	p.UpdatedAt = now
}

func (p *WorkoutPlan) mergeSets(inputs []SetInput) []Set {
	existing := make(map[string]bool, len(p.Sets))
	for _, s := range p.Sets {
		existing[s.ID] = true
	}

	seen := make(map[string]bool, len(inputs))
	sets := make([]Set, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" || !existing[id] || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		sets = append(sets, Set{ID: id, Reps: in.Reps, Weight: in.Weight, Notes: in.Notes})
	}
	return sets
}

func (p *WorkoutPlan) mergeLinks(links []URLLink, now time.Time) []URLLink {
	seen := make(map[string]bool, len(links))
	merged := make([]URLLink, 0, len(links))
	for _, l := range links {
		if l.ID == "" || seen[l.ID] {
			l.ID = uuid.NewString()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		seen[l.ID] = true
		merged = append(merged, l)
	}
	return merged
}

// FindURLLink returns the index of the link with the given id, or -1.
func (p *WorkoutPlan) FindURLLink(linkID string) int {
	for i, l := range p.URLLinks {
		if l.ID == linkID {
			return i
		}
	}
	return -1
}
