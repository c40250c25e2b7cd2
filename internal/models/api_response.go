package models

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type JobAccepted struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}
