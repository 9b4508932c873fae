package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

type CatalogHandler struct {
	catalog usecase.CatalogReader
}

func NewCatalogHandler(catalog usecase.CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type itemView struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	Sizes       []string `json:"sizes"`
	Category    string   `json:"category,omitempty"`
}

func newItemView(it *domain.Item) itemView {
	return itemView{
		SKU:         it.SKU,
		Name:        it.Name,
		Description: it.Description,
		PriceCents:  it.PriceCents,
		Currency:    it.Currency,
		Sizes:       it.Sizes,
		Category:    it.Category,
	}
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	items, err := h.catalog.ListItems(ctx, c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, newItemView(&items[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}

func (h *CatalogHandler) GetItem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	it, err := h.catalog.GetItem(ctx, c.Param("sku"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, newItemView(it))
}
