package models

// SuppressionEntry records the last auto-reply sent to a contact of a tenant
type SuppressionEntry struct {
	TenantID     string `json:"tenant_id"`
	ContactID    string `json:"contact_id"`
	LastSentAt   int64  `json:"last_sent_at"`
	QuickReplyID string `json:"quick_reply_id"`
}
