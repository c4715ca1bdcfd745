package dto

import "github.com/google/uuid"

// MoveFolderRequest re-parents a folder. A null parent moves it to the root.
type MoveFolderRequest struct {
	ParentFolderID *uuid.UUID `json:"parent_folder_id"`
}
