package middleware

// gin 上下文键，由认证中间件写入
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)
