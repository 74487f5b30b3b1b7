package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: config.AppEnv.RedisAddr})

	coupons := handlers.DefaultCoupons()

	r := gin.Default()

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))

	cart := r.Group("/cart")
	cart.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		cart.GET("", handlers.GetCart(db))
		cart.GET("/count", handlers.GetCartCount(db))
		cart.POST("/add", handlers.AddToCart(db, coupons))
		cart.POST("/coupon", handlers.ApplyCoupon(db, coupons))
		cart.DELETE("/coupon", handlers.RemoveCoupon(db))
		cart.PUT("/:itemId", handlers.UpdateCartItem(db, coupons))
		cart.DELETE("/:itemId", handlers.RemoveFromCart(db, coupons))
		cart.DELETE("", handlers.ClearCart(db))
	}

	orders := r.Group("/orders")
	orders.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		orders.POST("/checkout", handlers.Checkout(db, rdb, coupons))
		orders.POST("/buy-now", handlers.BuyNow(db, rdb))
		orders.POST("", handlers.CreateOrder(db))
		orders.GET("/:id", handlers.GetOrder(db))
	}

	admin := r.Group("/orders/admin")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/all", handlers.GetOrders(db))
		admin.GET("/analytics", handlers.GetAnalytics(db))
	}

	r.PUT("/orders/:id/status", middleware.AdminAuth(config.AppEnv.JWTSecret), handlers.UpdateOrderStatus(db))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
