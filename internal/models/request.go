package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RequestType string

const (
	RequestTypeNone       RequestType = "none"
	RequestTypeRaw        RequestType = "raw"
	RequestTypeFormData   RequestType = "form-data"
	RequestTypeURLEncoded RequestType = "url-encoded"
)

// IsForm reports whether the body is sent as a form submission.
func (t RequestType) IsForm() bool {
	return t == RequestTypeFormData || t == RequestTypeURLEncoded
}

const (
	FieldTypeText = "text"
	FieldTypeFile = "file"
)

// KeyValue is a header, query/path parameter or form field row.
// Disabled rows stay on the request but are never sent.
type KeyValue struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	Type    string `json:"type,omitempty"`
}

func (kv KeyValue) IsFile() bool {
	return kv.Type == FieldTypeFile
}

// NewKeyValue returns an enabled row with a fresh id.
func NewKeyValue(key, value string) KeyValue {
	return KeyValue{ID: uuid.NewString(), Key: key, Value: value, Enabled: true}
}

// EnabledOnly filters rows down to the ones that go on the wire.
func EnabledOnly(rows []KeyValue) []KeyValue {
	out := make([]KeyValue, 0, len(rows))
	for _, row := range rows {
		if row.Enabled {
			out = append(out, row)
		}
	}
	return out
}

// RequestFields is the editable part of a request, shared by the saved form
// and the draft overlay.
type RequestFields struct {
	Method         string      `json:"method"`
	URL            string      `json:"url"`
	Headers        []KeyValue  `json:"headers"`
	Params         []KeyValue  `json:"params"`
	PathParams     []KeyValue  `json:"path_params"`
	RequestType    RequestType `json:"request_type"`
	ContentType    string      `json:"content_type"`
	Body           string      `json:"body"`
	FormData       []KeyValue  `json:"form_data"`
	URLEncodedData []KeyValue  `json:"url_encoded_data"`
}

// Clone deep-copies every list so the copy can be mutated independently.
func (f RequestFields) Clone() RequestFields {
	out := f
	out.Headers = cloneRows(f.Headers)
	out.Params = cloneRows(f.Params)
	out.PathParams = cloneRows(f.PathParams)
	out.FormData = cloneRows(f.FormData)
	out.URLEncodedData = cloneRows(f.URLEncodedData)
	return out
}

func cloneRows(rows []KeyValue) []KeyValue {
	if rows == nil {
		return nil
	}
	out := make([]KeyValue, len(rows))
	copy(out, rows)
	return out
}

// DraftOverlay carries unsaved edits. A nil field means "not edited" and the
// saved value shows through.
type DraftOverlay struct {
	Method         *string      `json:"draft_method,omitempty"`
	URL            *string      `json:"draft_url,omitempty"`
	Headers        *[]KeyValue  `json:"draft_headers,omitempty"`
	Params         *[]KeyValue  `json:"draft_params,omitempty"`
	PathParams     *[]KeyValue  `json:"draft_path_params,omitempty"`
	RequestType    *RequestType `json:"draft_request_type,omitempty"`
	ContentType    *string      `json:"draft_content_type,omitempty"`
	Body           *string      `json:"draft_body,omitempty"`
	FormData       *[]KeyValue  `json:"draft_form_data,omitempty"`
	URLEncodedData *[]KeyValue  `json:"draft_url_encoded_data,omitempty"`
}

// ApplyTo returns saved with every non-nil overlay field substituted.
func (o *DraftOverlay) ApplyTo(saved RequestFields) RequestFields {
	out := saved.Clone()
	if o == nil {
		return out
	}
	if o.Method != nil {
		out.Method = *o.Method
	}
	if o.URL != nil {
		out.URL = *o.URL
	}
	if o.Headers != nil {
		out.Headers = cloneRows(*o.Headers)
	}
	if o.Params != nil {
		out.Params = cloneRows(*o.Params)
	}
	if o.PathParams != nil {
		out.PathParams = cloneRows(*o.PathParams)
	}
	if o.RequestType != nil {
		out.RequestType = *o.RequestType
	}
	if o.ContentType != nil {
		out.ContentType = *o.ContentType
	}
	if o.Body != nil {
		out.Body = *o.Body
	}
	if o.FormData != nil {
		out.FormData = cloneRows(*o.FormData)
	}
	if o.URLEncodedData != nil {
		out.URLEncodedData = cloneRows(*o.URLEncodedData)
	}
	return out
}

type ResponseHeader struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Documented bool   `json:"documented"`
}

// ResponseSnapshot is the last received response, kept for display.
type ResponseSnapshot struct {
	Status     int              `json:"status"`
	Headers    []ResponseHeader `json:"headers"`
	Body       string           `json:"body"`
	TimeMs     float64          `json:"time_ms"`
	Size       int64            `json:"size"`
	IsBinary   bool             `json:"is_binary"`
	ReceivedAt time.Time        `json:"received_at"`
}

// Request is either Saved (Draft == nil) or SavedWithDraft. Callers read the
// effective values through Fields instead of checking the overlay themselves.
type Request struct {
	ID               uuid.UUID         `json:"id"`
	CollectionID     uuid.UUID         `json:"collection_id"`
	FolderID         *uuid.UUID        `json:"folder_id,omitempty"`
	Name             string            `json:"name"`
	Saved            RequestFields     `json:"saved"`
	Draft            *DraftOverlay     `json:"draft,omitempty"`
	ResponseSnapshot *ResponseSnapshot `json:"response_snapshot,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (r *Request) HasDraftEdits() bool {
	return r.Draft != nil
}

// Fields returns the saved fields shadowed by the draft overlay, if any.
func (r *Request) Fields() RequestFields {
	return r.Draft.ApplyTo(r.Saved)
}

// MarshalJSON flattens the effective fields next to the saved ones so clients
// do not need to merge the overlay themselves.
func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	return json.Marshal(struct {
		plain
		Effective     RequestFields `json:"fields"`
		HasDraftEdits bool          `json:"has_draft_edits"`
	}{
		plain:         plain(r),
		Effective:     r.Fields(),
		HasDraftEdits: r.HasDraftEdits(),
	})
}
