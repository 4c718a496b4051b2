package handler

// ErrorDetail carries the stable code and message of a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON envelope for every API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
