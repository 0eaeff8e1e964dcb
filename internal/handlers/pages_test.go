package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoquest/internal/notify"
)

func TestStrayRequestKeepsPageController(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, StudentLoginPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ctrl, ok := app.controllers.Get(app.sid, pageID(t, rec.Body.String()))
	require.True(t, ok)
	require.True(t, ctrl.ScannerRunning())

	app.views.Flash(context.Background(), app.sid, notify.Info("Saved."))
	rec = app.do(http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.NoError(t, ctrl.Context().Err())
	assert.True(t, ctrl.ScannerRunning(), "the scanner of the open page keeps running")
	assert.Equal(t, 1, app.controllers.Len())

	rec = app.do(http.MethodGet, LandingPath, nil)
	assert.Equal(t, "landing|Saved.", rec.Body.String(), "stray requests leave flash messages queued")
	assert.Error(t, ctrl.Context().Err(), "navigating to the landing page disposes the previous page")
	assert.Equal(t, 0, app.controllers.Len())
}

func TestEveryPageLoadInstallsAController(t *testing.T) {
	app := newTestApp(t)

	first := pageID(t, app.do(http.MethodGet, StudentLoginPath, nil).Body.String())
	second := pageID(t, app.do(http.MethodGet, StudentLoginPath, nil).Body.String())
	assert.NotEqual(t, first, second)

	_, ok := app.controllers.Get(app.sid, first)
	assert.False(t, ok)
	_, ok = app.controllers.Get(app.sid, second)
	assert.True(t, ok)
}
