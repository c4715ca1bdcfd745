package draft

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// nil and empty lists or strings compare equal.
var equateEmpty = cmpopts.EquateEmpty()

func same[T any](a, b T) bool {
	return cmp.Equal(a, b, equateEmpty)
}

// HasChanges compares every trackable field of current against saved.
func HasChanges(saved, current models.RequestFields) bool {
	return Overlay(saved, current) != nil
}

// Overlay returns the fields of current that differ from saved, or nil when
// nothing differs.
func Overlay(saved, current models.RequestFields) *models.DraftOverlay {
	var o models.DraftOverlay
	changed := false

	if saved.Method != current.Method {
		o.Method = ptr(current.Method)
		changed = true
	}
	if saved.URL != current.URL {
		o.URL = ptr(current.URL)
		changed = true
	}
	if !same(saved.Headers, current.Headers) {
		o.Headers = rows(current.Headers)
		changed = true
	}
	if !same(saved.Params, current.Params) {
		o.Params = rows(current.Params)
		changed = true
	}
	if !same(saved.PathParams, current.PathParams) {
		o.PathParams = rows(current.PathParams)
		changed = true
	}
	if saved.RequestType != current.RequestType {
		o.RequestType = ptr(current.RequestType)
		changed = true
	}
	if saved.ContentType != current.ContentType {
		o.ContentType = ptr(current.ContentType)
		changed = true
	}
	if saved.Body != current.Body {
		o.Body = ptr(current.Body)
		changed = true
	}
	if !same(saved.FormData, current.FormData) {
		o.FormData = rows(current.FormData)
		changed = true
	}
	if !same(saved.URLEncodedData, current.URLEncodedData) {
		o.URLEncodedData = rows(current.URLEncodedData)
		changed = true
	}

	if !changed {
		return nil
	}
	return &o
}

func ptr[T any](v T) *T {
	return &v
}

func rows(r []models.KeyValue) *[]models.KeyValue {
	out := make([]models.KeyValue, len(r))
	copy(out, r)
	return &out
}

// Diff renders saved and current as request text and returns a unified
// diff between them. It is empty when there are no changes.
func Diff(saved, current models.RequestFields) string {
	return udiff.Unified("saved", "draft", render(saved), render(current))
}

func render(f models.RequestFields) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(f.Method) + " " + f.URL + "\n")
	for _, h := range f.Headers {
		writeRow(&b, h.Key+": "+h.Value, h.Enabled)
	}
	for _, p := range f.Params {
		writeRow(&b, "?"+p.Key+"="+p.Value, p.Enabled)
	}
	for _, p := range f.PathParams {
		writeRow(&b, ":"+p.Key+"="+p.Value, p.Enabled)
	}
	b.WriteString("\n")

	switch f.RequestType {
	case models.RequestTypeFormData:
		for _, r := range f.FormData {
			line := r.Key + "=" + r.Value
			if r.IsFile() {
				line = r.Key + "=@" + r.Value
			}
			writeRow(&b, line, r.Enabled)
		}
	case models.RequestTypeURLEncoded:
		for _, r := range f.URLEncodedData {
			writeRow(&b, r.Key+"="+r.Value, r.Enabled)
		}
	case models.RequestTypeRaw:
		if f.ContentType != "" {
			b.WriteString("# " + f.ContentType + "\n")
		}
		b.WriteString(f.Body)
		if f.Body != "" && !strings.HasSuffix(f.Body, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRow(b *strings.Builder, line string, enabled bool) {
	if !enabled {
		b.WriteString("# ")
	}
	b.WriteString(line + "\n")
}
