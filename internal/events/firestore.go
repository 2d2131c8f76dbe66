// Package events decodes document-store trigger payloads.
package events

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
)

// documentEvent is the JSON form of a Firestore document trigger
// (google.events.cloud.firestore.v1.DocumentEventData).
type documentEvent struct {
	OldValue *document `json:"oldValue"`
	Value    *document `json:"value"`
}

type document struct {
	Name   string           `json:"name"`
	Fields map[string]value `json:"fields"`
}

type value struct {
	NullValue      *string      `json:"nullValue"`
	BooleanValue   *bool        `json:"booleanValue"`
	IntegerValue   *json.Number `json:"integerValue"`
	DoubleValue    *float64     `json:"doubleValue"`
	TimestampValue *string      `json:"timestampValue"`
	StringValue    *string      `json:"stringValue"`
	BytesValue     *string      `json:"bytesValue"`
	ReferenceValue *string      `json:"referenceValue"`
	GeoPointValue  *geoPoint    `json:"geoPointValue"`
	ArrayValue     *arrayValue  `json:"arrayValue"`
	MapValue       *mapValue    `json:"mapValue"`
}

type geoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type arrayValue struct {
	Values []value `json:"values"`
}

type mapValue struct {
	Fields map[string]value `json:"fields"`
}

// DecodeDeletion parses a document-deleted payload. The deleted document's
// fields come from oldValue; a body without oldValue decodes to an empty
// record.
func DecodeDeletion(body []byte, eventID string) (domain.DeletionEvent, error) {
	ev := domain.DeletionEvent{ID: eventID}

	var payload documentEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return ev, fmt.Errorf("decode document event: %w", err)
	}

	doc := payload.OldValue
	if doc == nil {
		ev.OldValue = domain.Record{}
		return ev, nil
	}

	ev.Document = doc.Name
	ev.Collection, ev.DocumentID = SplitDocumentName(doc.Name)
	ev.OldValue = decodeFields(doc.Fields)
	return ev, nil
}

// SplitDocumentName extracts the innermost collection id and document id from
// "projects/{p}/databases/{d}/documents/{collection}/{id}[/...]".
func SplitDocumentName(name string) (collection, id string) {
	if i := strings.Index(name, "/documents/"); i >= 0 {
		name = name[i+len("/documents/"):]
	}
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

func decodeFields(fields map[string]value) domain.Record {
	rec := make(domain.Record, len(fields))
	for k, v := range fields {
		rec[k] = v.native()
	}
	return rec
}

func (v value) native() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.NullValue != nil:
		return nil
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.IntegerValue != nil:
		if n, err := v.IntegerValue.Int64(); err == nil {
			return n
		}
		return v.IntegerValue.String()
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.ReferenceValue != nil:
		return *v.ReferenceValue
	case v.BytesValue != nil:
		if b, err := base64.StdEncoding.DecodeString(*v.BytesValue); err == nil {
			return b
		}
		return *v.BytesValue
	case v.GeoPointValue != nil:
		return map[string]any{"latitude": v.GeoPointValue.Latitude, "longitude": v.GeoPointValue.Longitude}
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, item.native())
		}
		return out
	case v.MapValue != nil:
		return map[string]any(decodeFields(v.MapValue.Fields))
	default:
		return nil
	}
}
