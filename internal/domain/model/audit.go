package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type AuditAction string

const (
	AuditTokenCreated       AuditAction = "token_created"
	AuditTokenAccessed      AuditAction = "token_accessed"
	AuditTokenActivated     AuditAction = "token_activated"
	AuditActivationRejected AuditAction = "activation_rejected"
	AuditTagBlocked         AuditAction = "tag_blocked"
	AuditTagUnblocked       AuditAction = "tag_unblocked"
	AuditTagsImported       AuditAction = "tags_imported"
	AuditAdminLogin         AuditAction = "admin_login"
	AuditAdminLogout        AuditAction = "admin_logout"
)

// ActorSystem is the actor recorded for request-driven events.
const ActorSystem = "system"

// AuditEntry is an append-only record. IDs are ULIDs so they sort by creation time.
type AuditEntry struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Action    AuditAction    `json:"action"`
	TagID     *string        `json:"tag_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewAuditEntry(actor string, action AuditAction, tagID *string, meta map[string]any) *AuditEntry {
	if actor == "" {
		actor = ActorSystem
	}
	now := time.Now().UTC()
	return &AuditEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Actor:     actor,
		Action:    action,
		TagID:     tagID,
		Meta:      meta,
		CreatedAt: now,
	}
}
