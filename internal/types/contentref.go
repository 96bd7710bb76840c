package types

import (
	"github.com/google/uuid"
)

// ContentType tags the two recommendable entity kinds. Branching on content
// kind goes through this type, never raw strings.
type ContentType string

const (
	ContentTypeStory  ContentType = "story"
	ContentTypeModule ContentType = "module"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeStory || t == ContentTypeModule
}

// ContentRef identifies one recommendable item. External suggestion entries
// are resolved onto a ref before the engine looks the rows up; an entry that
// cannot produce a valid ref is discarded.
type ContentRef struct {
	Type ContentType `json:"type"`
	ID   uuid.UUID   `json:"id"`
}
