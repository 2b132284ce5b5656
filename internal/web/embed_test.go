package web

import (
	"bytes"
	"testing"

	"postgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRendersPagesInLayout(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	err = engine.Render(&buf, "login", map[string]any{"Title": "Log in", "Msg": "hello <b>"}, "layouts/main")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Log in · Postgate</title>")
	assert.Contains(t, out, `action="/login"`)
	assert.Contains(t, out, "hello &lt;b&gt;", "messages are escaped")
}

func TestEngineRendersPostList(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	owner := &models.User{ID: 1, Username: "ann"}
	posts := []models.Post{
		{ID: 7, Title: "Hello", Description: "world", RequiredAccessID: 1, Owner: owner},
		{ID: 8, Title: "No owner loaded", RequiredAccessID: 2},
	}

	var buf bytes.Buffer
	err = engine.Render(&buf, "index", map[string]any{"Title": "Posts", "Posts": posts}, "layouts/main")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `href="/post/7"`)
	assert.Contains(t, out, "by ann")
	assert.Contains(t, out, "No owner loaded")
}

func TestEngineRendersOwnerForms(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	user := &models.User{ID: 1, Username: "ann", Email: "ann@example.com"}
	data := map[string]any{
		"Title":   "Hello",
		"User":    user,
		"Post":    &models.Post{ID: 3, Title: "Hello", OwnerID: 1, RequiredAccessID: 2},
		"IsOwner": true,
		"Tiers":   []models.EntryAccess{{ID: 1, AccessTitle: models.AccessDefault}, {ID: 2, AccessTitle: models.AccessPremium}},
	}

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "post_detail", data, "layouts/main"))

	out := buf.String()
	assert.Contains(t, out, `action="/update_post_partial"`)
	assert.Contains(t, out, `<option value="2" selected>premium</option>`)
	assert.Contains(t, out, `action="/delete_post/3"`)
}
