package dto

type NotificationsQuery struct {
	UnreadOnly bool `query:"unreadOnly"`
	Limit      int  `query:"limit"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type EmailTestRequest struct {
	To string `json:"to"`
}
