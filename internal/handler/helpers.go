package handlers

import (
	"net/http"
	"strconv"

	"GuardianSOS/internal/validation"
	"GuardianSOS/pkg/middleware"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
)

// msg 按协商语言取提示文本
func (h *Handlers) msg(c *gin.Context, key string) string {
	if h.i18n == nil {
		return key
	}
	lang := middleware.Lang(c)
	if lang == "" {
		lang = h.i18n.DefaultLang()
	}
	return h.i18n.T(lang, key, nil)
}

func (h *Handlers) msgFunc(key string) func(c *gin.Context) string {
	return func(c *gin.Context) string { return h.msg(c, key) }
}

// bindJSON answers 400 itself and returns false when the body is invalid.
func (h *Handlers) bindJSON(c *gin.Context, obj any, msgs validation.Messages) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		fields, _ := validation.FieldErrors(err, msgs)
		response.Invalid(c, h.msg(c, "invalid_input"), fields)
		return false
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.AbortWithStatus(c, http.StatusBadRequest, "잘못된 ID입니다: "+c.Param("id"))
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) uint {
	return c.GetUint(middleware.CtxUserID)
}
