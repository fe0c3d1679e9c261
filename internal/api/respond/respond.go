package respond

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Response is the single envelope used for every API reply. Success and
// error cases share the shape; they are told apart by the HTTP status code
// and the presence of Data.
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON sends the envelope with the specified HTTP status code.
func JSON(c *ginext.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Message: message, Data: data})
}

// OK sends a 200 OK envelope with message "success".
func OK(c *ginext.Context, data interface{}) {
	JSON(c, http.StatusOK, "success", data)
}

// Created sends a 201 Created envelope with message "success".
func Created(c *ginext.Context, data interface{}) {
	JSON(c, http.StatusCreated, "success", data)
}

// Fail sends an error envelope with the specified HTTP status code.
// The Data field is omitted.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, err.Error(), nil)
}
