package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
	"github.com/welldanyogia/icd-messaging-backend/internal/websocket"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedStats websocket.HubStats

func (f fixedStats) Stats() websocket.HubStats { return websocket.HubStats(f) }

func setupHealthTestDB(t *testing.T) (repository.MessageRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// GORM pings during initialization
	mock.ExpectPing()

	dialector := postgres.New(postgres.Config{
		Conn:       db,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return repository.NewMessageRepository(gormDB), mock
}

func serveHealth(handler echo.HandlerFunc, path string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestHealthHandler_Health_ReturnsOKWhenHealthy(t *testing.T) {
	store, mock := setupHealthTestDB(t)

	// Expect ping to succeed during health check
	mock.ExpectPing()

	rec := serveHealth(NewHealthHandler(store, nil).Health, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthHandler_Health_ReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	store, mock := setupHealthTestDB(t)

	// Expect ping to fail during health check
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	rec := serveHealth(NewHealthHandler(store, nil).Health, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"unhealthy"`)
}

func TestHealthHandler_Ready_ReturnsOKWithHubStats(t *testing.T) {
	store, mock := setupHealthTestDB(t)
	mock.ExpectPing()

	hub := fixedStats{Clients: 3, Sessions: 2, Broadcasts: 7}
	rec := serveHealth(NewHealthHandler(store, hub).Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","websocket":{"clients":3,"sessions":2,"broadcasts":7}}`, rec.Body.String())
}

func TestHealthHandler_Ready_OmitsStatsWithoutHub(t *testing.T) {
	store, mock := setupHealthTestDB(t)
	mock.ExpectPing()

	rec := serveHealth(NewHealthHandler(store, nil).Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHealthHandler_Ready_ReturnsServiceUnavailableWhenNotReady(t *testing.T) {
	store, mock := setupHealthTestDB(t)

	// Expect ping to fail during ready check
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	rec := serveHealth(NewHealthHandler(store, fixedStats{}).Ready, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not ready"`)
	assert.Contains(t, rec.Body.String(), "database ping failed")
}
