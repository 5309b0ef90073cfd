package model

import (
	"encoding/json"
	"time"
)

// Database is a logical collection of JSON records. OwnerEmail is a
// lookup backreference, not a lifetime relationship.
type Database struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	OwnerEmail  string    `json:"ownerEmail"`
	CreatedAt   time.Time `json:"createdAt"`
	Records     []*Record `json:"records"`
}

// Clone deep-copies the database and its records.
func (d *Database) Clone() *Database {
	cp := *d
	cp.Records = make([]*Record, len(d.Records))
	for i, r := range d.Records {
		cp.Records[i] = r.Clone()
	}
	return &cp
}

// Record is an opaque JSON object owned by its parent database.
type Record struct {
	ID        string
	Fields    map[string]any
	Timestamp time.Time
}

// Clone copies the record and its payload map.
func (r *Record) Clone() *Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{ID: r.ID, Fields: fields, Timestamp: r.Timestamp}
}

// Merge overlays the given payload onto the record, last write wins per field.
// The reserved id and timestamp keys are never overwritten.
func (r *Record) Merge(fields map[string]any) {
	for k, v := range fields {
		if k == "id" || k == "timestamp" {
			continue
		}
		r.Fields[k] = v
	}
}

// MarshalJSON flattens the payload with id and timestamp alongside the
// user-supplied fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["timestamp"] = r.Timestamp
	return json.Marshal(out)
}

// UnmarshalJSON splits id and timestamp back out of the flattened shape.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"].(string); ok {
		r.ID = id
	}
	if ts, ok := raw["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Timestamp = t
		}
	}
	delete(raw, "id")
	delete(raw, "timestamp")
	r.Fields = raw
	return nil
}
