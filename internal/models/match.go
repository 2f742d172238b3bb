package models

import "time"

type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchKeyword  MatchType = "keyword"
	MatchFuzzy    MatchType = "fuzzy"
)

// MatchContext describes one inbound message being evaluated for an auto-reply
type MatchContext struct {
	TenantID       string `json:"tenant_id"`
	ContactID      string `json:"contact_id"`
	ConversationID string `json:"conversation_id"`
	MessageText    string `json:"message"`
	// Timestamp is the evaluation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewMatchContext stamps the context with t.
func NewMatchContext(tenantID, contactID, conversationID, text string, t time.Time) *MatchContext {
	return &MatchContext{
		TenantID:       tenantID,
		ContactID:      contactID,
		ConversationID: conversationID,
		MessageText:    text,
		Timestamp:      t.UnixMilli(),
	}
}

// MatchResult is the winning quick reply for a message
type MatchResult struct {
	Reply     *QuickReply `json:"quick_reply"`
	Score     float64     `json:"score"`
	MatchType MatchType   `json:"match_type"`
}
