package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/utils"
)

// Fail records err on the request for ErrorPresenter. n, when given,
// replaces the notice derived from err.
func Fail(c *gin.Context, err error, n ...notice.Notice) {
	ge := c.Error(err)
	if len(n) > 0 {
		ge.SetMeta(n[0])
	}
}

// Presentation is how one error is answered.
type Presentation struct {
	Status      int
	Code        string
	Message     string
	Details     interface{}
	Notice      notice.Notice
	ForceLogout bool
}

// Present maps err to its HTTP status, error code and notice. Transport
// failures follow the notice status table and a transport 401 ends the
// session.
func Present(err error) Presentation {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return Presentation{Status: http.StatusBadRequest, Code: "VALIDATION_FAILED", Message: "Validation failed",
			Details: verr.Fields, Notice: notice.RequiredFields}
	case errors.Is(err, utils.ErrValidation):
		return Presentation{Status: http.StatusBadRequest, Code: "VALIDATION_FAILED", Message: err.Error(),
			Notice: notice.ForStatus(400, err.Error())}
	case errors.Is(err, utils.ErrOrderNotFound):
		return Presentation{Status: http.StatusNotFound, Code: "ORDER_NOT_FOUND", Message: "Order not found",
			Notice: notice.ForStatus(404, "").WithRedirect(notice.OrdersPath)}
	case errors.Is(err, utils.ErrLastItem):
		return Presentation{Status: http.StatusUnprocessableEntity, Code: "LAST_ITEM", Message: "Cannot remove the last item",
			Notice: notice.LastItem}
	case errors.Is(err, utils.ErrItemIndex):
		return Presentation{Status: http.StatusBadRequest, Code: "INVALID_ITEM_INDEX", Message: "Item index out of range",
			Notice: notice.ForStatus(400, "Item index out of range")}
	case errors.Is(err, utils.ErrConfirmationRequired):
		return Presentation{Status: http.StatusPreconditionRequired, Code: "CONFIRMATION_REQUIRED", Message: "Deletion must be confirmed",
			Notice: notice.ConfirmDelete}
	case errors.Is(err, utils.ErrSaveInProgress):
		return Presentation{Status: http.StatusConflict, Code: "SAVE_IN_PROGRESS", Message: "A save is already in progress",
			Notice: notice.SaveInProgress}
	case errors.Is(err, utils.ErrEditorClosed), errors.Is(err, utils.ErrEditorNotOpen):
		return Presentation{Status: http.StatusConflict, Code: "EDITOR_NOT_OPEN", Message: "Order editor is not open",
			Notice: notice.ForStatus(409, "Order editor is not open").WithRedirect(notice.OrdersPath)}
	case errors.Is(err, utils.ErrInvalidCredentials):
		return Presentation{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid email or password",
			Notice: notice.InvalidLogin}
	case errors.Is(err, utils.ErrInvalidToken), errors.Is(err, utils.ErrSessionNotFound):
		return Presentation{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication required",
			Notice: notice.ForStatus(401, ""), ForceLogout: true}
	}

	if status, msg, ok := notice.Status(err); ok {
		p := Presentation{Status: http.StatusBadGateway, Code: "UPSTREAM_ERROR", Message: "Dataset source request failed",
			Notice: notice.ForStatus(status, msg)}
		switch {
		case notice.ForcesLogout(status):
			p.Status = http.StatusUnauthorized
			p.Code = "UNAUTHORIZED"
			p.ForceLogout = true
		case status == 0:
			p.Status = http.StatusServiceUnavailable
		case status == http.StatusNotFound:
			p.Status = http.StatusNotFound
		}
		return p
	}
	if errors.Is(err, context.Canceled) {
		return Presentation{Status: http.StatusServiceUnavailable, Code: "CANCELLED", Message: "Request cancelled",
			Notice: notice.Generic}
	}
	return Presentation{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error",
		Notice: notice.ForStatus(500, "")}
}

// ErrorPresenter turns errors recorded with Fail into the response envelope
// with a notice. A 401 from the dataset source also ends the session.
func ErrorPresenter(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		p := Present(last.Err)
		if n, ok := last.Meta.(notice.Notice); ok {
			if p.ForceLogout {
				n = n.WithRedirect(notice.LoginPath)
			}
			p.Notice = n
		}

		if p.ForceLogout && sessions != nil {
			if token := GetToken(c); token != "" {
				if err := sessions.Logout(c.Request.Context(), token); err != nil {
					log.Warn().Err(err).Msg("Forced logout failed")
				}
			}
		}

		evt := log.Warn()
		if p.Status >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.Err(last.Err).
			Str("request_id", c.GetString("request_id")).
			Int("status", p.Status).
			Str("code", p.Code).
			Msg("Request failed")

		utils.ErrorWithNotice(c, p.Status, p.Code, p.Message, p.Details, &p.Notice)
	}
}
