package response

import (
	"net/http"

	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func Success(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

// Invalid answers 400 with per-field messages.
func Invalid(c *gin.Context, msg string, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Success: false, Message: msg, Errors: fields})
}

func AbortWithStatus(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: msg})
}

// Error translates err into its HTTP status. Unclassified errors are logged
// and their text is kept out of the body.
func Error(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	msg := errors.GetMessage(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "서버 오류가 발생했습니다"
		}
	}
	c.AbortWithStatusJSON(status, Response{Success: false, Message: msg, Errors: fieldErrors(err)})
}

// fieldErrors 把校验错误的上下文作为字段错误返回
func fieldErrors(err error) map[string]string {
	var e *errors.Error
	if !errors.As(err, &e) || e.Code != errors.CodeValidation || len(e.Context) == 0 {
		return nil
	}
	fields := make(map[string]string, len(e.Context))
	for _, kv := range e.Context {
		fields[kv.Key] = kv.Value
	}
	return fields
}
