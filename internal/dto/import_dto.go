package dto

// ImportRow is one record produced by the spreadsheet import adapter.
type ImportRow struct {
	ClientID          string `json:"clientId"`
	Key               string `json:"key"`
	Modules           string `json:"modules"`
	Origin            string `json:"origin"`
	Reason            string `json:"reason"`
	AssignedAgent     string `json:"assignedAgent"`
	Records           string `json:"records"`
	Status            string `json:"status"`
	TicketURL         string `json:"ticketUrl"`
	RecommendedAction string `json:"recommendedAction"`
	Priority          string `json:"priority"`
}

type ImportRequest struct {
	Rows []ImportRow `json:"rows"`
}
