package reporting

// Analytics is the body of GET /api/analytics.
type Analytics struct {
	TotalLeads          int `json:"total_leads"`
	TotalCommunications int `json:"total_communications"`

	// LeadsBySource counts leads per source; leads without one count under UnknownSource.
	LeadsBySource map[string]int `json:"leads_by_source"`

	// CommunicationStats is keyed by communication type (sms, whatsapp, call).
	CommunicationStats map[string]TypeStats `json:"communication_stats"`
}

// TypeStats aggregates the communications of one type.
type TypeStats struct {
	Total    int            `json:"total"`
	Outbound int            `json:"outbound"`
	Inbound  int            `json:"inbound"`
	ByStatus map[string]int `json:"by_status"`

	// TotalDurationSeconds sums reported durations; only calls carry one.
	TotalDurationSeconds int `json:"total_duration_seconds"`
}

const UnknownSource = "unknown"
