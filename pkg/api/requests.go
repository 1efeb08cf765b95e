package api

// SubmitTaskRequest is the HTTP request body for POST /api/v1/tasks.
type SubmitTaskRequest struct {
	DeityID       string            `json:"deity_id"`
	FortuneNumber int               `json:"fortune_number"`
	Question      string            `json:"question"`
	Context       map[string]string `json:"context,omitempty"`
	Language      string            `json:"language,omitempty"`
}
