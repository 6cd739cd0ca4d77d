package reconcile

// Navigator is the UI surface the session drives.
type Navigator interface {
	// Notify shows a transient, auto-dismissing message.
	Notify(message string)
	// Redirect navigates to path.
	Redirect(path string)
}

// User-visible messages.
const (
	MessageSessionExpired = "登录已过期，请重新登录"
	MessageActionFailed   = "操作失败，请稍后重试"
)

// LoginPath is where invalidated sessions are sent.
const LoginPath = "/login"
