package handler

import "github.com/labstack/echo/v4"

// apiResponse is the success envelope shared by every account endpoint.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c echo.Context, code int, data any, message string) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(code, apiResponse{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < 400,
	})
}
