// Package notice maps failures and operation outcomes to the short
// user-facing messages shown by the console.
package notice

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Level is the severity a console renders a notice with.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Console routes used as redirect targets.
const (
	LoginPath  = "/auth/login"
	OrdersPath = "/orders"
)

// Notice is a transient message plus an optional navigation target.
type Notice struct {
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// WithRedirect returns a copy of n that navigates to path.
func (n Notice) WithRedirect(path string) Notice {
	n.Redirect = path
	return n
}

// Operation notices.
var (
	Welcome         = Notice{Level: LevelSuccess, Message: "Welcome!"}
	SignedOut       = Notice{Level: LevelInfo, Message: "You have been signed out.", Redirect: LoginPath}
	SaveSucceeded   = Notice{Level: LevelSuccess, Message: "Order saved successfully"}
	SaveFailed      = Notice{Level: LevelError, Message: "Save failed. Changes have been reverted"}
	OrderDeleted    = Notice{Level: LevelSuccess, Message: "Order deleted"}
	DeleteFailed    = Notice{Level: LevelError, Message: "Failed to delete order"}
	LastItem        = Notice{Level: LevelWarning, Message: "An order must contain at least one item"}
	RequiredFields  = Notice{Level: LevelWarning, Message: "Fill in all required fields"}
	OrderLoadFailed = Notice{Level: LevelError, Message: "Failed to load order", Redirect: OrdersPath}
	ConfirmDelete   = Notice{Level: LevelWarning, Message: "Are you sure you want to delete this order? Repeat with confirm=true"}
	SaveInProgress  = Notice{Level: LevelWarning, Message: "A save is already in progress"}
	InvalidLogin    = Notice{Level: LevelError, Message: "Invalid email or password"}
	TooManyAttempts = Notice{Level: LevelError, Message: "Too many failed sign-in attempts. Try again later"}
	Generic         = Notice{Level: LevelError, Message: "An error occurred"}
)

// StatusError is implemented by transport failures that carry an HTTP status.
// A status of 0 means the server could not be reached.
type StatusError interface {
	error
	HTTPStatus() int
	ServerMessage() string
}

// ForStatus maps a transport status code to its notice.
func ForStatus(status int, serverMessage string) Notice {
	n := Notice{Level: LevelError}
	switch status {
	case 0:
		n.Message = "Server unreachable. Check your connection."
	case 400:
		n.Message = orDefault(serverMessage, "Bad request")
	case 401:
		n.Message = "Session expired. Sign in again."
		n.Redirect = LoginPath
	case 403:
		n.Message = "Access denied"
	case 404:
		n.Message = "Resource not found"
	case 500:
		n.Message = "Internal server error"
	case 502, 503, 504:
		n.Message = "Server temporarily unavailable"
	default:
		n.Message = orDefault(serverMessage, fmt.Sprintf("Error: %d", status))
	}
	return n
}

// ForcesLogout reports whether a transport status must end the session.
func ForcesLogout(status int) bool {
	return status == 401
}

// Status extracts the transport status carried by err. Unreachable servers,
// dial failures and timeouts report 0. ok is false for non-transport errors.
func Status(err error) (status int, serverMessage string, ok bool) {
	var se StatusError
	if errors.As(err, &se) {
		return se.HTTPStatus(), se.ServerMessage(), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return 0, "", true
	}
	return 0, "", false
}

// FromError maps a transport error to its notice, falling back to Generic.
func FromError(err error) Notice {
	if status, msg, ok := Status(err); ok {
		return ForStatus(status, msg)
	}
	return Generic
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
