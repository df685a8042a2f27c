package view_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikshaspace/gateway/internal/shared"
	"github.com/shikshaspace/gateway/internal/view"
	_ "github.com/shikshaspace/gateway/testing"
)

type loginData struct {
	Form struct {
		Username string
	}
	Errors map[string]string
}

func TestEngineParsesEmbeddedTemplates(t *testing.T) {
	_, err := view.NewEngine()
	require.NoError(t, err)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/login.html", view.TemplateData{
		Title:     "Sign in",
		CSRFToken: "tok-123",
		Data:      loginData{},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "Sign in")
	assert.Contains(t, body, `value="tok-123"`)
	assert.NotContains(t, body, "accounts.google.com", "Google widget renders only with a client id")
}

func TestRenderLoginPageWithGoogleSignIn(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/login.html", view.TemplateData{
		Title:          "Sign in",
		GoogleClientID: "client-id-42",
		Data:           loginData{},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "client-id-42")
	assert.Contains(t, body, "accounts.google.com")
}

func TestRenderShowsFlashMessage(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/home.html", view.TemplateData{
		Title:         "Home",
		Authenticated: true,
		Flash:         &shared.FlashMessage{Kind: "success", Message: "Welcome to ShikshaSpace"},
		Data:          map[string]any{"Username": "alice"},
	})
	require.NoError(t, err)

	assert.Contains(t, rec.Body.String(), "Welcome to ShikshaSpace")
}

func TestRenderNavReflectsAuthentication(t *testing.T) {
	engine, err := view.NewEngine()
	require.NoError(t, err)

	anon := httptest.NewRecorder()
	require.NoError(t, engine.Render(anon, "pages/about.html", view.TemplateData{Title: "About"}))
	assert.Contains(t, anon.Body.String(), "/login")

	authed := httptest.NewRecorder()
	require.NoError(t, engine.Render(authed, "pages/about.html", view.TemplateData{Title: "About", Authenticated: true}))
	assert.Contains(t, authed.Body.String(), "/logout")
}
