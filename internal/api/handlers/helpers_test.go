package handlers

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/auth"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/realtime"
	"github.com/welldanyogia/icd-messaging-backend/internal/services"
	"github.com/welldanyogia/icd-messaging-backend/tests/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMessageService(repo *mocks.MockMessageRepository) *services.MessageService {
	return services.NewMessageService(repo, realtime.NewFeed(0), nil, discardLogger())
}

// newContext builds a request context, optionally carrying an authenticated identity
func newContext(e *echo.Echo, method, path, contentType string, body io.Reader, identity *models.Identity) (echo.Context, *httptest.ResponseRecorder) {
	if body == nil {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}
