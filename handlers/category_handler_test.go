package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCategoryRoutes(t *testing.T) {
	db := newTestDB(t)
	for _, cat := range []models.Category{
		{Name: "Furniture", Slug: "furniture"},
		{Name: "Books", Slug: "books"},
	} {
		require.NoError(t, db.Create(&cat).Error)
	}

	handler := NewCategoryHandler(db, zerolog.Nop())
	app := fiber.New()
	app.Get("/api/categories", handler.GetCategories)
	app.Get("/api/categories/:slug", handler.GetCategory)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/categories", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list struct {
		Data []models.Category `json:"data"`
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Data, 2)
	require.Equal(t, "Books", list.Data[0].Name) // ordered by name

	resp, err = app.Test(httptest.NewRequest("GET", "/api/categories/books", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/categories/vehicles", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
