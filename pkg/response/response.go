// Package response holds the JSON envelope shared by every API handler.
// The HTTP status is always 200; the business status lives in the code
// field so browser extensions and the dashboard parse one shape.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func write(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	write(c, 200, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, 200, message, data)
}

func Error(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

func BadRequest(c *gin.Context, message string) { Error(c, 400, message) }

func Unauthorized(c *gin.Context, message string) { Error(c, 401, message) }

func Forbidden(c *gin.Context, message string) { Error(c, 403, message) }

func NotFound(c *gin.Context, message string) { Error(c, 404, message) }

func InternalServerError(c *gin.Context, message string) { Error(c, 500, message) }

func Page(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	Success(c, PageData{List: list, Total: total, Page: page, PageSize: pageSize})
}
