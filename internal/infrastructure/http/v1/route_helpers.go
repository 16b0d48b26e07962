package v1

import (
	"github.com/gin-gonic/gin"
)

// InvoiceRouteHandler defines the methods the invoice routes dispatch to.
type InvoiceRouteHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
	RenameNumber(c *gin.Context)
	NumberExists(c *gin.Context)
}

// RegisterInvoiceRoutes registers the invoice routes on group.
// The static /number-exists segment must be registered before /:id.
func RegisterInvoiceRoutes(group *gin.RouterGroup, handler InvoiceRouteHandler) {
	group.POST("", handler.Create)
	group.GET("", handler.List)
	group.GET("/number-exists", handler.NumberExists)
	group.GET("/:id", handler.Get)
	group.DELETE("/:id", handler.Delete)
	group.PATCH("/:id/number", handler.RenameNumber)
}
