package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction is the verb recorded for a privileged action.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditView   AuditAction = "view"
)

// Valid reports whether a is one of the four ledger actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditDelete, AuditView:
		return true
	}
	return false
}

// AuditDetail is free-form context stored in a JSON column.
type AuditDetail map[string]any

// Value implements driver.Valuer. A nil detail is stored as {}.
func (d AuditDetail) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *AuditDetail) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = AuditDetail{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("audit detail scan: unsupported type %T", value)
	}
	out := AuditDetail{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("audit detail scan: %w", err)
		}
	}
	*d = out
	return nil
}

// AuditEntry mirrors a row of `audit_logs`. Rows are append-only.
type AuditEntry struct {
	ID           uint64      `json:"id"`
	ActorID      string      `json:"actor_id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   *string     `json:"resource_id,omitempty"`
	Detail       AuditDetail `json:"detail"`
	CreatedAt    time.Time   `json:"created_at"`
}
