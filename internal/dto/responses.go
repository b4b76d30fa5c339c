package dto

// ApiResponse is the envelope of every successful response
type ApiResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// ErrorResponse is the envelope of every failed response
type ErrorResponse struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
	Errors     []string    `json:"errors"`
	Data       interface{} `json:"data"`
}

// NewApiResponse builds a success envelope
func NewApiResponse(statusCode int, data interface{}, message string) ApiResponse {
	return ApiResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// NewErrorResponse builds an error envelope. Errors is never null.
func NewErrorResponse(statusCode int, message string, errors []string) ErrorResponse {
	if errors == nil {
		errors = []string{}
	}
	return ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
		Success:    false,
		Errors:     errors,
	}
}
