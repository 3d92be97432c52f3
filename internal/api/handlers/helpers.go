package handlers

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/api/response"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
)

// failure writes err as an API error, auditing denied access
func failure(c echo.Context, audit *logger.AuditLogger, err error, messageID, action string) error {
	if errors.Is(err, apperrors.ErrForbidden) && audit != nil {
		audit.AccessDenied(callerUID(c), messageID, action)
	}
	return response.Error(c, err)
}

func callerUID(c echo.Context) string {
	if identity, ok := auth.FromContext(c.Request().Context()); ok {
		return identity.UID
	}
	return ""
}

// messageID reads and checks the :id path parameter
func messageID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	return id, id != ""
}

// splitDepartments accepts repeated form values and comma-separated lists
func splitDepartments(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}
