package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/nikode-engine/internal/database"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrRequestNotFound = errors.New("request not found")

const requestColumns = `id, collection_id, folder_id, name,
	method, url, headers, params, path_params, request_type, content_type, body, form_data, url_encoded_data,
	has_draft_edits, draft_method, draft_url, draft_headers, draft_params, draft_path_params,
	draft_request_type, draft_content_type, draft_body, draft_form_data, draft_url_encoded_data,
	response_snapshot, created_at, updated_at`

type RequestService struct {
	db *database.DB
}

func NewRequestService(db *database.DB) *RequestService {
	return &RequestService{db: db}
}

// rowColumns holds the raw list columns of one field set.
type rowColumns struct {
	headers, params, pathParams, formData, urlEncoded []byte
}

func (c rowColumns) decode(f *models.RequestFields) error {
	for _, col := range []struct {
		data []byte
		dst  *[]models.KeyValue
	}{
		{c.headers, &f.Headers},
		{c.params, &f.Params},
		{c.pathParams, &f.PathParams},
		{c.formData, &f.FormData},
		{c.urlEncoded, &f.URLEncodedData},
	} {
		if err := decodeJSON(col.data, col.dst); err != nil {
			return err
		}
	}
	return nil
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var (
		r            models.Request
		requestType  string
		saved, draft rowColumns
		hasDraft     bool
		dMethod      *string
		dURL         *string
		dType        *string
		dContentType *string
		dBody        *string
		snapshot     []byte
	)
	err := row.Scan(
		&r.ID, &r.CollectionID, &r.FolderID, &r.Name,
		&r.Saved.Method, &r.Saved.URL, &saved.headers, &saved.params, &saved.pathParams,
		&requestType, &r.Saved.ContentType, &r.Saved.Body, &saved.formData, &saved.urlEncoded,
		&hasDraft, &dMethod, &dURL, &draft.headers, &draft.params, &draft.pathParams,
		&dType, &dContentType, &dBody, &draft.formData, &draft.urlEncoded,
		&snapshot, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	r.Saved.RequestType = models.RequestType(requestType)
	if err := saved.decode(&r.Saved); err != nil {
		return nil, fmt.Errorf("decode request %s: %w", r.ID, err)
	}

	if hasDraft {
		overlay := &models.DraftOverlay{
			Method:      dMethod,
			URL:         dURL,
			ContentType: dContentType,
			Body:        dBody,
		}
		if dType != nil {
			rt := models.RequestType(*dType)
			overlay.RequestType = &rt
		}
		for _, col := range []struct {
			data []byte
			dst  **[]models.KeyValue
		}{
			{draft.headers, &overlay.Headers},
			{draft.params, &overlay.Params},
			{draft.pathParams, &overlay.PathParams},
			{draft.formData, &overlay.FormData},
			{draft.urlEncoded, &overlay.URLEncodedData},
		} {
			if len(col.data) == 0 {
				continue
			}
			var rows []models.KeyValue
			if err := decodeJSON(col.data, &rows); err != nil {
				return nil, fmt.Errorf("decode draft of request %s: %w", r.ID, err)
			}
			*col.dst = &rows
		}
		r.Draft = overlay
	}

	if len(snapshot) > 0 {
		var snap models.ResponseSnapshot
		if err := decodeJSON(snapshot, &snap); err != nil {
			return nil, fmt.Errorf("decode response snapshot of request %s: %w", r.ID, err)
		}
		r.ResponseSnapshot = &snap
	}
	return &r, nil
}

func (s *RequestService) GetByID(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	return scanRequest(s.db.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM requests WHERE id = $1
	`, requestID))
}

func (s *RequestService) ListByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Request, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests WHERE collection_id = $1
		ORDER BY created_at, name
	`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []models.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// encodeRows marshals a list column, mapping nil to an empty array.
func encodeRows(rows []models.KeyValue) ([]byte, error) {
	if rows == nil {
		rows = []models.KeyValue{}
	}
	return encodeJSON(rows)
}

// encodeDraftRows marshals a draft list column; nil stays SQL NULL.
func encodeDraftRows(rows *[]models.KeyValue) ([]byte, error) {
	if rows == nil {
		return nil, nil
	}
	return encodeRows(*rows)
}

func encodeFields(f models.RequestFields) ([]any, error) {
	out := []any{f.Method, f.URL}
	for _, rows := range [][]models.KeyValue{f.Headers, f.Params, f.PathParams} {
		data, err := encodeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	out = append(out, string(f.RequestType), f.ContentType, f.Body)
	for _, rows := range [][]models.KeyValue{f.FormData, f.URLEncodedData} {
		data, err := encodeRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// SaveDraft stores overlay in the draft columns. A nil overlay clears them.
func (s *RequestService) SaveDraft(ctx context.Context, requestID uuid.UUID, overlay *models.DraftOverlay) error {
	if overlay == nil {
		return s.exec(ctx, `
			UPDATE requests SET
				has_draft_edits = FALSE,
				draft_method = NULL, draft_url = NULL, draft_headers = NULL, draft_params = NULL,
				draft_path_params = NULL, draft_request_type = NULL, draft_content_type = NULL,
				draft_body = NULL, draft_form_data = NULL, draft_url_encoded_data = NULL,
				updated_at = NOW()
			WHERE id = $1
		`, requestID)
	}

	args := []any{overlay.Method, overlay.URL}
	for _, rows := range []*[]models.KeyValue{overlay.Headers, overlay.Params, overlay.PathParams} {
		data, err := encodeDraftRows(rows)
		if err != nil {
			return err
		}
		args = append(args, data)
	}
	var requestType *string
	if overlay.RequestType != nil {
		rt := string(*overlay.RequestType)
		requestType = &rt
	}
	args = append(args, requestType, overlay.ContentType, overlay.Body)
	for _, rows := range []*[]models.KeyValue{overlay.FormData, overlay.URLEncodedData} {
		data, err := encodeDraftRows(rows)
		if err != nil {
			return err
		}
		args = append(args, data)
	}
	args = append(args, requestID)

	return s.exec(ctx, `
		UPDATE requests SET
			has_draft_edits = TRUE,
			draft_method = $1, draft_url = $2, draft_headers = $3, draft_params = $4,
			draft_path_params = $5, draft_request_type = $6, draft_content_type = $7,
			draft_body = $8, draft_form_data = $9, draft_url_encoded_data = $10,
			updated_at = NOW()
		WHERE id = $11
	`, args...)
}

// ApplyDraft makes fields the saved form and clears the draft in one statement.
func (s *RequestService) ApplyDraft(ctx context.Context, requestID uuid.UUID, fields models.RequestFields) error {
	args, err := encodeFields(fields)
	if err != nil {
		return err
	}
	args = append(args, requestID)
	return s.exec(ctx, `
		UPDATE requests SET
			method = $1, url = $2, headers = $3, params = $4, path_params = $5,
			request_type = $6, content_type = $7, body = $8, form_data = $9, url_encoded_data = $10,
			has_draft_edits = FALSE,
			draft_method = NULL, draft_url = NULL, draft_headers = NULL, draft_params = NULL,
			draft_path_params = NULL, draft_request_type = NULL, draft_content_type = NULL,
			draft_body = NULL, draft_form_data = NULL, draft_url_encoded_data = NULL,
			updated_at = NOW()
		WHERE id = $11
	`, args...)
}

// SaveSnapshot records the last successful response of a request.
func (s *RequestService) SaveSnapshot(ctx context.Context, requestID uuid.UUID, snapshot *models.ResponseSnapshot) error {
	data, err := encodeJSON(snapshot)
	if err != nil {
		return err
	}
	return s.exec(ctx, `UPDATE requests SET response_snapshot = $1 WHERE id = $2`, data, requestID)
}

func (s *RequestService) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}
