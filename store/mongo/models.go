package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/keeper/access"
	"github.com/xraph/keeper/audit"
	"github.com/xraph/keeper/id"
)

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:keeper_users"`
	ID              string         `grove:"id,pk"          bson:"_id"`
	Username        string         `grove:"username"       bson:"username"`
	Email           string         `grove:"email"          bson:"email,omitempty"`
	IsActive        bool           `grove:"is_active"      bson:"is_active"`
	IsAdmin         bool           `grove:"is_admin"       bson:"is_admin"`
	DefaultGroup    string         `grove:"default_group"  bson:"default_group,omitempty"`
	Groups          []string       `grove:"groups"         bson:"groups,omitempty"`
	Profile         map[string]any `grove:"profile"        bson:"profile,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"     bson:"created_at"`
	UpdatedAt       time.Time      `grove:"updated_at"     bson:"updated_at"`
}

func userFromModel(m *userModel) *access.User {
	uid, _ := id.ParseUserID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &access.User{
		ID:           uid,
		Username:     m.Username,
		Email:        m.Email,
		IsActive:     m.IsActive,
		IsAdmin:      m.IsAdmin,
		DefaultGroup: m.DefaultGroup,
		Groups:       m.Groups,
		Profile:      m.Profile,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Access key model
// ──────────────────────────────────────────────────

type accessKeyModel struct {
	grove.BaseModel `grove:"table:keeper_access_keys"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	UserID          string    `grove:"user_id"     bson:"user_id"`
	Token           string    `grove:"token"       bson:"token"`
	ExpiresAt       time.Time `grove:"expires_at"  bson:"expires_at"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
}

func accessKeyFromModel(m *accessKeyModel) *access.AccessKey {
	kid, _ := id.ParseAccessKeyID(m.ID) //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseUserID(m.UserID)  //nolint:errcheck
	return &access.AccessKey{
		ID:        kid,
		UserID:    uid,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role grant model
// ──────────────────────────────────────────────────

type roleGrantModel struct {
	grove.BaseModel `grove:"table:keeper_role_grants"`
	ID              string    `grove:"id,pk"        bson:"_id"`
	Group           string    `grove:"group"        bson:"group"`
	ServiceRef      string    `grove:"service_ref"  bson:"service_ref"`
	Category        string    `grove:"category"     bson:"category,omitempty"`
	CanRead         bool      `grove:"can_read"     bson:"can_read"`
	CanCreate       bool      `grove:"can_create"   bson:"can_create"`
	CanUpdate       bool      `grove:"can_update"   bson:"can_update"`
	CanDelete       bool      `grove:"can_delete"   bson:"can_delete"`
	IsActive        bool      `grove:"is_active"    bson:"is_active"`
	CreatedAt       time.Time `grove:"created_at"   bson:"created_at"`
}

func roleGrantFromModel(m *roleGrantModel) access.RoleGrant {
	gid, _ := id.ParseRoleGrantID(m.ID) //nolint:errcheck // stored IDs are always valid
	return access.RoleGrant{
		ID:         gid,
		Group:      m.Group,
		ServiceRef: m.ServiceRef,
		Category:   m.Category,
		CanRead:    m.CanRead,
		CanCreate:  m.CanCreate,
		CanUpdate:  m.CanUpdate,
		CanDelete:  m.CanDelete,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Audit log model
// ──────────────────────────────────────────────────

type auditLogModel struct {
	grove.BaseModel `grove:"table:keeper_audit_logs"`
	ID              string         `grove:"id,pk"       bson:"_id"`
	Collection      string         `grove:"collection"  bson:"collection"`
	Kind            string         `grove:"kind"        bson:"kind"`
	Document        map[string]any `grove:"document"    bson:"document,omitempty"`
	Before          map[string]any `grove:"before"      bson:"before,omitempty"`
	ActorID         string         `grove:"actor_id"    bson:"actor_id"`
	CreatedAt       time.Time      `grove:"created_at"  bson:"created_at"`
}

func auditLogToModel(e *audit.Entry) *auditLogModel {
	return &auditLogModel{
		ID:         e.ID.String(),
		Collection: e.Collection,
		Kind:       e.Kind,
		Document:   e.Document,
		Before:     e.Before,
		ActorID:    e.ActorID,
		CreatedAt:  e.CreatedAt,
	}
}

func auditLogFromModel(m *auditLogModel) *audit.Entry {
	lid, _ := id.ParseAuditLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &audit.Entry{
		ID:         lid,
		Collection: m.Collection,
		Kind:       m.Kind,
		Document:   m.Document,
		Before:     m.Before,
		ActorID:    m.ActorID,
		CreatedAt:  m.CreatedAt,
	}
}
