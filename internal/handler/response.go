package handler

import (
	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "SUCCESS"
	statusError   = "ERROR"
)

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Ok(c *gin.Context, message string, data any) {
	c.JSON(200, apiResponse{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{
		Status:  statusError,
		Message: message,
	})
}
