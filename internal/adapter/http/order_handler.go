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

type OrderHandler struct {
	query usecase.OrderStore
	cache usecase.OrderCache // optional
}

func NewOrderHandler(query usecase.OrderStore, cache usecase.OrderCache) *OrderHandler {
	return &OrderHandler{query: query, cache: cache}
}

type orderView struct {
	Number        string     `json:"number"`
	UserID        string     `json:"userId"`
	Status        string     `json:"status"`
	Lines         []lineView `json:"lines"`
	SubtotalCents int64      `json:"subtotalCents"`
	DiscountCents int64      `json:"discountCents"`
	TotalCents    int64      `json:"totalCents"`
	Currency      string     `json:"currency"`
	Delivery      string     `json:"delivery"`
	Address       string     `json:"address,omitempty"`
	Phone         string     `json:"phone"`
	PromoCode     string     `json:"promoCode,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type lineView struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Size           string `json:"size"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

func newOrderView(o *domain.Order) *orderView {
	v := &orderView{
		Number:        o.Number,
		UserID:        o.UserID,
		Status:        string(o.Status),
		SubtotalCents: o.Subtotal.Cents,
		DiscountCents: o.Discount.Cents,
		TotalCents:    o.Total.Cents,
		Currency:      o.Total.Currency,
		Delivery:      string(o.Delivery),
		Address:       o.Address,
		Phone:         o.Phone,
		PromoCode:     o.PromoCode,
		CreatedAt:     o.CreatedAt,
	}
	for _, l := range o.Lines {
		v.Lines = append(v.Lines, lineView{
			SKU:            l.SKU,
			Name:           l.Name,
			Size:           l.Size,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
		})
	}
	return v
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	number := c.Param("number")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ord, err := h.query.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, newOrderView(ord))
}

// GetOrderStatus reads the cache first and only falls back to the store.
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	number := c.Param("number")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.cache != nil {
		if status, err := h.cache.GetStatus(ctx, number); err == nil {
			c.JSON(http.StatusOK, gin.H{"number": number, "status": status})
			return
		}
	}

	ord, err := h.query.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if h.cache != nil {
		_ = h.cache.SetStatus(ctx, number, string(ord.Status))
	}
	c.JSON(http.StatusOK, gin.H{"number": number, "status": string(ord.Status)})
}

func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	orders, err := h.query.ListByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	views := make([]*orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}
