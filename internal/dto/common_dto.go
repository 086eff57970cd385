package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BatchResult reports a multi-item operation where every item succeeds or
// fails on its own.
type BatchResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func (r *BatchResult) Fail(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}

type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	DB          string  `json:"db"`
	LastSweepAt *string `json:"lastSweepAt"`
	Sources     int     `json:"sources"`
}
