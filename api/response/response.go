package response

type ErrorResponse struct {
	Message      string   `json:"message"`
	RejectedKeys []string `json:"rejectedKeys,omitempty"`
}
