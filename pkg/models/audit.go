package models

import (
	"time"
)

// AuditLog records an order lifecycle event.
type AuditLog struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	Service   string         `bson:"service" json:"service"`
	Action    string         `bson:"action" json:"action"`
	EntityID  string         `bson:"entity_id" json:"entityId"`
	Data      map[string]any `bson:"data" json:"data"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}
