package dto

import "github.com/dimitrije/nikode-engine/internal/models"

// DraftEditRequest carries the full in-progress state of the request form.
type DraftEditRequest struct {
	Fields models.RequestFields `json:"fields"`
}

type DraftEditResponse struct {
	HasDraftEdits bool `json:"has_draft_edits"`
	Pending       bool `json:"pending"`
}

type DraftDiffResponse struct {
	HasDraftEdits bool   `json:"has_draft_edits"`
	Diff          string `json:"diff"`
}

type DraftFieldsResponse struct {
	Fields models.RequestFields `json:"fields"`
}

type ResolvedRequestResponse struct {
	Fields     models.RequestFields `json:"fields"`
	Unresolved []string             `json:"unresolved"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}
