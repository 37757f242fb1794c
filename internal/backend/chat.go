package backend

// Endpoint paths served by the chat server
const (
	PathChat       = "/api/chat"
	PathLegacyChat = "/chat"
	PathWebSocket  = "/ws/chat"
	PathHealth     = "/healthz"
)

// ChatRequest represents the request body for the chat endpoint
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents the response body from the chat endpoint
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse represents a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response from the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
