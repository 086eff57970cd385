package dto

import "encoding/json"

// WebhookRequest is the envelope every external producer posts.
type WebhookRequest struct {
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

func (r WebhookRequest) RawData() json.RawMessage {
	b, err := json.Marshal(r.Data)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

type WebhookResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	EventID  string `json:"eventId,omitempty"`
	ReportID *uint  `json:"reportId,omitempty"`
}
