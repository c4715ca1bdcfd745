package models

import (
	"time"

	"github.com/google/uuid"
)

type Folder struct {
	ID             uuid.UUID  `json:"id"`
	CollectionID   uuid.UUID  `json:"collection_id"`
	ParentFolderID *uuid.UUID `json:"parent_folder_id,omitempty"`
	Name           string     `json:"name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (f *Folder) IsRoot() bool {
	return f.ParentFolderID == nil
}
