package models

import "time"

// QuickReply is a tenant-authored canned reply triggered by its shortcut
type QuickReply struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Shortcut        string     `json:"shortcut"`
	Content         string     `json:"content"`
	IsActive        bool       `json:"is_active"`
	UsageCount      int64      `json:"usage_count"`
	UsageTodayCount int64      `json:"usage_today_count"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Eligible reports whether the reply may take part in matching.
func (q *QuickReply) Eligible() bool {
	return q != nil && q.IsActive && q.Shortcut != ""
}
