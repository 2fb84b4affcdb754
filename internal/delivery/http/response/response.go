package response

// SeedResponse reports which seeds were accepted.
type SeedResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Accepted []string `json:"accepted"`
}

type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
