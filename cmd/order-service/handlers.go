package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ord "github.com/TheTrustGroup/chez-amis-bar-and-grill-sub000/internal/order"
)

func createOrderHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
			return
		}
		created, err := svc.CreateOrder(c.Request.Context(), req.ToOrder())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"orderId": created.OrderID,
			"order":   created,
		})
	}
}

func getOrderHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func listOrdersHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if raw := c.Query("status"); raw != "" {
			st := ord.Status(raw)
			if !st.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
				return
			}
			orders, _ := repo.ListByStatus(ctx, st)
			c.JSON(http.StatusOK, gin.H{"orders": orders})
			return
		}
		orders, _ := repo.ListAll(ctx)
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func updateOrderStatusHandler(svc *ord.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.StatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
			return
		}

		res, err := svc.UpdateStatus(c.Request.Context(), ord.StatusUpdate{
			OrderID:       c.Param("id"),
			Target:        ord.Status(req.Status),
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			CustomerEmail: req.CustomerEmail,
			OrderType:     ord.Type(req.OrderType),
			EstimatedTime: req.EstimatedTime,
		})
		if err != nil {
			var mf *ord.MissingFieldsError
			switch {
			case errors.Is(err, ord.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.As(err, &mf):
				c.JSON(http.StatusBadRequest, gin.H{
					"error":         err.Error(),
					"missingFields": mf.Fields,
				})
			case errors.Is(err, ord.ErrInvalidStatus),
				errors.Is(err, ord.ErrTerminalOrder),
				errors.Is(err, ord.ErrInvalidTransition):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"orderId":      res.Order.OrderID,
			"status":       res.Status,
			"order":        res.Order,
			"notification": res.Notification,
		})
	}
}

// getStatusOptionsHandler is the read-only companion of the status
// endpoint: it reports the valid target values and, when the order
// exists, its current status.
func getStatusOptionsHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"orderId":       c.Param("id"),
			"validStatuses": ord.UpdatableStatuses,
		}
		if o, err := repo.GetByID(c.Request.Context(), c.Param("id")); err == nil {
			body["currentStatus"] = o.Status
		}
		c.JSON(http.StatusOK, body)
	}
}

func healthHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := repo.HealthCheck(c.Request.Context())
		code := http.StatusOK
		if !h.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, h)
	}
}
