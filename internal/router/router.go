package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickshop/quickshop-backend/config"
	"github.com/quickshop/quickshop-backend/internal/app/controller"
	"github.com/quickshop/quickshop-backend/internal/app/model"
	"github.com/quickshop/quickshop-backend/internal/middleware"
	"github.com/quickshop/quickshop-backend/internal/realtime"
)

// Controllers bundles everything the router wires up
type Controllers struct {
	Auth     *controller.AuthController
	Product  *controller.ProductController
	Cart     *controller.CartController
	Checkout *controller.CheckoutController
	Order    *controller.OrderController
	Payment  *controller.PaymentController
	Admin    *controller.AdminController
	Upload   *controller.UploadController
}

// Setup builds the gin engine with all routes and middleware
func Setup(cfg *config.Config, ctrls Controllers, hub *realtime.Hub) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	secret := cfg.JWT.Secret
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", ctrls.Auth.Register)
			auth.POST("/login", ctrls.Auth.Login)
			auth.POST("/refresh", ctrls.Auth.Refresh)
			auth.POST("/logout", middleware.Authenticate(secret), ctrls.Auth.Logout)
			auth.GET("/me", middleware.Authenticate(secret), ctrls.Auth.Profile)
		}

		v1.GET("/products", ctrls.Product.ListProducts)
		v1.GET("/products/:idOrSlug", ctrls.Product.GetProduct)
		v1.GET("/categories", ctrls.Product.ListCategories)

		// Live product change feed
		v1.GET("/feed/products", realtime.ServeWS(hub))

		cart := v1.Group("/cart", middleware.OptionalAuthenticate(secret))
		{
			cart.GET("", ctrls.Cart.GetCart)
			cart.DELETE("", ctrls.Cart.Clear)
			cart.POST("/items", ctrls.Cart.AddItem)
			cart.PUT("/items/:productID", ctrls.Cart.UpdateItem)
			cart.DELETE("/items/:productID", ctrls.Cart.RemoveItem)
			cart.POST("/sync", middleware.Authenticate(secret), ctrls.Cart.Sync)
		}

		v1.POST("/checkout", middleware.Authenticate(secret), ctrls.Checkout.Checkout)

		orders := v1.Group("/orders", middleware.Authenticate(secret))
		{
			orders.GET("", ctrls.Order.ListOrders)
			orders.GET("/:id", ctrls.Order.GetOrder)
		}

		// Gateway webhook, authenticated by payload signature
		v1.POST("/payments/notify", ctrls.Payment.Notify)

		admin := v1.Group("/admin",
			middleware.Authenticate(secret),
			middleware.RequireRole(string(model.RoleAdmin)))
		{
			admin.POST("/products", ctrls.Product.CreateProduct)
			admin.PATCH("/products/:id", ctrls.Product.UpdateProduct)
			admin.DELETE("/products/:id", ctrls.Product.DeleteProduct)

			admin.GET("/orders", ctrls.Admin.ListOrders)
			admin.GET("/orders/export", ctrls.Admin.ExportOrders)
			admin.PATCH("/orders/:id/status", ctrls.Admin.UpdateOrderStatus)

			admin.POST("/uploads/product-image", ctrls.Upload.PresignProductImage)
		}
	}

	return r
}
