package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GTDGit/order_console/internal/notice"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool           `json:"success"`
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorInfo     `json:"error,omitempty"`
	Notice  *notice.Notice `json:"notice,omitempty"`
	Meta    Meta           `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	SuccessWithNotice(c, code, message, data, nil)
}

// SuccessWithNotice writes a success response that carries a console notice.
func SuccessWithNotice(c *gin.Context, code int, message string, data interface{}, n *notice.Notice) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Notice:  n,
		Meta:    newMeta(c),
	})
}

// SuccessWithPagination writes a success response with pagination metadata
// and an optional console notice. An empty list has one page.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int, n *notice.Notice) {
	// safety defaults
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 5
	}
	meta := newMeta(c)
	meta.Pagination = &Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: totalItems,
		TotalPages: max((totalItems+limit-1)/limit, 1),
	}
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Notice:  n,
		Meta:    meta,
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	ErrorWithNotice(c, code, errCode, message, nil, nil)
}

// ErrorWithNotice writes an error response with optional details and notice.
func ErrorWithNotice(c *gin.Context, code int, errCode, message string, details interface{}, n *notice.Notice) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error: &ErrorInfo{
			Code:    errCode,
			Message: message,
			Details: details,
		},
		Notice: n,
		Meta:   newMeta(c),
	})
}

func newMeta(c *gin.Context) Meta {
	return Meta{
		RequestID: getRequestID(c),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
