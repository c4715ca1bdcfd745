package dto

import (
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

type CreateCollectionRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Variables   []models.Variable `json:"variables,omitempty"`
}

// UpdateCollectionRequest changes collection settings. Omitted fields are
// left as they are; UnlinkEnvironment drops the environment link.
type UpdateCollectionRequest struct {
	Name              *string            `json:"name,omitempty"`
	Description       *string            `json:"description,omitempty"`
	EnvironmentID     *uuid.UUID         `json:"environment_id,omitempty"`
	UnlinkEnvironment bool               `json:"unlink_environment,omitempty"`
	Variables         *[]models.Variable `json:"variables,omitempty"`
	FollowRedirects   *bool              `json:"follow_redirects,omitempty"`
	Timeout           *int               `json:"timeout,omitempty"`
	ParseANSIColors   *bool              `json:"parse_ansi_colors,omitempty"`
}

func (r UpdateCollectionRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.EnvironmentID == nil && !r.UnlinkEnvironment &&
		r.Variables == nil && r.FollowRedirects == nil && r.Timeout == nil && r.ParseANSIColors == nil
}

type CollectionDetailResponse struct {
	models.Collection
	Folders  []models.Folder  `json:"folders"`
	Requests []models.Request `json:"requests"`
}
