package handlers

import (
	"GuardianSOS/internal/auth"
	"GuardianSOS/internal/contacts"
	"GuardianSOS/internal/validation"
	"GuardianSOS/pkg/response"

	"github.com/gin-gonic/gin"
)

var signupMessages = validation.Messages{
	"username.required": "사용자명은 필수입니다",
	"username.min":      "사용자명은 3자 이상 50자 이하여야 합니다",
	"username.max":      "사용자명은 3자 이상 50자 이하여야 합니다",
	"password.required": "비밀번호는 필수입니다",
	"password.min":      "비밀번호는 6자 이상이어야 합니다",
	"password.max":      "비밀번호는 100자 이하여야 합니다",
	"email.required":    "이메일은 필수입니다",
	"email.email":       "올바른 이메일 형식이 아닙니다",
	"name.required":     "이름은 필수입니다",
}

var loginMessages = validation.Messages{
	"usernameOrEmail.required": "사용자명 또는 이메일은 필수입니다",
	"password.required":        "비밀번호는 필수입니다",
}

func (h *Handlers) handleSignup(c *gin.Context) {
	var req auth.SignupRequest
	if !h.bindJSON(c, &req, signupMessages) {
		return
	}
	user, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "signup_done"), user)
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if !h.bindJSON(c, &req, loginMessages) {
		return
	}
	jwt, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "login_done"), jwt)
}

func (h *Handlers) handleLogout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), auth.CurrentClaims(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "logout_done"), nil)
}

func (h *Handlers) handleUserInfo(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "user_info"), user)
}

func (h *Handlers) handleAddContact(c *gin.Context) {
	var req contacts.Request
	if !h.bindJSON(c, &req, contacts.Messages) {
		return
	}
	contact, err := h.contacts.Add(c.Request.Context(), currentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "contact_added"), contact)
}

func (h *Handlers) handleListContacts(c *gin.Context) {
	list, err := h.contacts.List(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "contact_list"), list)
}

func (h *Handlers) handleUpdateContact(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req contacts.Request
	if !h.bindJSON(c, &req, contacts.Messages) {
		return
	}
	contact, err := h.contacts.Update(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "contact_updated"), contact)
}

func (h *Handlers) handleDeleteContact(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.contacts.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.msg(c, "contact_deleted"), nil)
}
