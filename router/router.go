package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/controllers"
	"github.com/yeremiapane/cafe-pos/middlewares"
	"github.com/yeremiapane/cafe-pos/services"
	"gorm.io/gorm"
)

// Options carries the pieces main wires up outside the router. Zero values
// fall back to a log-only publisher and a monitor with the default threshold.
type Options struct {
	Events     services.EventPublisher
	Stock      *services.StockMonitor
	CORSOrigin string
	// requests per second per IP, 0 disables the global limiter
	RateLimit int
}

func SetupRouter(db *gorm.DB, opts Options) (*gin.Engine, error) {
	if opts.Events == nil {
		opts.Events = services.LogPublisher{}
	}
	if opts.Stock == nil {
		opts.Stock = services.NewStockMonitor(db, opts.Events, 5)
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	billing := services.NewBillingService(db, opts.Events)
	billing.Stock = opts.Stock
	reports, err := services.NewReportService(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.SecurityHeaders())
	if opts.RateLimit > 0 {
		r.Use(middlewares.NewRateLimiter(opts.RateLimit, 1).RateLimit())
	}

	// Inisialisasi controller
	accountCtrl := controllers.NewAccountController(db)
	tableCtrl := controllers.NewTableController(db, billing)
	categoryCtrl := controllers.NewCategoryController(db)
	unitCtrl := controllers.NewUnitController(db)
	materialCtrl := controllers.NewMaterialController(db)
	drinkCtrl := controllers.NewDrinkController(db)
	recipeCtrl := controllers.NewRecipeController(services.NewRecipeService(db))
	billingCtrl := controllers.NewBillingController(billing)
	customerCtrl := controllers.NewCustomerController(db, billing.Loyalty)
	ruleCtrl := controllers.NewDiscountRuleController(db, billing.Loyalty)
	reportCtrl := controllers.NewReportController(reports)
	adminCtrl := controllers.NewAdminController(db, opts.Stock)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/ws", middlewares.WebSocketAuthMiddleware(), controllers.POSHandler)

	api := r.Group("/api")
	api.POST("/login", middlewares.NewStrictRateLimiter(), accountCtrl.Login)

	// ----------------------------------------------------------------
	//                      STAFF + ADMIN
	// ----------------------------------------------------------------
	auth := api.Group("/")
	auth.Use(middlewares.AuthMiddleware(db))

	auth.POST("/logout", accountCtrl.Logout)
	auth.GET("/profile", accountCtrl.GetProfile)
	auth.PUT("/profile/password", accountCtrl.ChangePassword)

	// Dashboard
	auth.GET("/tables", tableCtrl.GetAllTables)
	billingGroup := auth.Group("/billing")
	{
		billingGroup.GET("/categories", billingCtrl.GetCategories)
		billingGroup.GET("/menu", billingCtrl.GetMenu)
		billingGroup.GET("/drinks/:drink_id/stock", billingCtrl.GetDrinkStock)
		billingGroup.GET("/tables/:table_id/bill", billingCtrl.GetOpenBill)
		billingGroup.POST("/tables/:table_id/items", billingCtrl.AddItems)
		billingGroup.PUT("/tables/:table_id/items", billingCtrl.UpdateItem)
		billingGroup.DELETE("/tables/:table_id/items/:drink_id", billingCtrl.RemoveItem)
		billingGroup.POST("/tables/:table_id/checkout", billingCtrl.Checkout)
	}

	// Checkout needs the customer list and the printed invoice
	auth.GET("/customers", customerCtrl.GetAllCustomers)
	auth.POST("/customers", customerCtrl.CreateCustomer)
	auth.GET("/invoices/:bill_id/pdf", reportCtrl.GetInvoicePDF)
	auth.GET("/reports/employee-revenue", reportCtrl.GetEmployeeRevenue)

	// ----------------------------------------------------------------
	//                      ADMIN ONLY
	// ----------------------------------------------------------------
	admin := auth.Group("/")
	admin.Use(middlewares.AdminOnly())

	admin.GET("/accounts", accountCtrl.GetAllAccounts)
	admin.POST("/accounts", accountCtrl.CreateAccount)
	admin.PUT("/accounts/:user_name", accountCtrl.UpdateAccount)
	admin.DELETE("/accounts/:user_name", accountCtrl.DeleteAccount)

	admin.POST("/tables", tableCtrl.CreateTable)
	admin.PUT("/tables/:table_id", tableCtrl.UpdateTable)
	admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

	admin.GET("/categories", categoryCtrl.GetAllCategories)
	admin.POST("/categories", categoryCtrl.CreateCategory)
	admin.PUT("/categories/:category_id", categoryCtrl.UpdateCategory)
	admin.DELETE("/categories/:category_id", categoryCtrl.DeleteCategory)

	admin.GET("/units", unitCtrl.GetAllUnits)
	admin.POST("/units", unitCtrl.CreateUnit)
	admin.PUT("/units/:unit_id", unitCtrl.UpdateUnit)
	admin.DELETE("/units/:unit_id", unitCtrl.DeleteUnit)

	admin.GET("/materials", materialCtrl.GetAllMaterials)
	admin.POST("/materials", materialCtrl.CreateMaterial)
	admin.PUT("/materials/:material_id", materialCtrl.UpdateMaterial)
	admin.POST("/materials/:material_id/restock", materialCtrl.RestockMaterial)
	admin.DELETE("/materials/:material_id", materialCtrl.DeleteMaterial)

	admin.GET("/drinks", drinkCtrl.GetMenu)
	admin.POST("/drinks", drinkCtrl.CreateDrink)
	admin.PUT("/drinks/:drink_id", drinkCtrl.UpdateDrink)
	admin.DELETE("/drinks/:drink_id", drinkCtrl.DeleteDrink)
	admin.GET("/drinks-stock", drinkCtrl.GetStockedDrinks)
	admin.PUT("/drinks/:drink_id/pricing", drinkCtrl.UpdateDrinkPricing)

	admin.GET("/recipes", recipeCtrl.GetRecipeSummary)
	admin.POST("/recipes/cost", recipeCtrl.CalculateCost)
	admin.GET("/recipes/:drink_id", recipeCtrl.GetRecipe)
	admin.PUT("/recipes/:drink_id", recipeCtrl.SaveRecipe)
	admin.DELETE("/recipes/:drink_id", recipeCtrl.DeleteRecipe)
	admin.PUT("/recipes/:drink_id/active", recipeCtrl.SetRecipeActive)

	admin.PUT("/customers/:customer_id", customerCtrl.UpdateCustomer)
	admin.DELETE("/customers/:customer_id", customerCtrl.DeleteCustomer)
	admin.GET("/customers/:customer_id/rules", customerCtrl.GetCustomerRules)
	admin.PUT("/customers/:customer_id/rules", customerCtrl.ReplaceCustomerRules)

	admin.GET("/discount-rules", ruleCtrl.GetAllRules)
	admin.POST("/discount-rules", ruleCtrl.CreateRule)
	admin.POST("/discount-rules/apply", ruleCtrl.ApplyRules)
	admin.DELETE("/discount-rules", ruleCtrl.DeleteRules)
	admin.DELETE("/discount-rules/:rule_id", ruleCtrl.DeleteRules)

	admin.GET("/invoices", reportCtrl.GetInvoiceHistory)
	admin.GET("/invoices/:bill_id", reportCtrl.GetInvoiceDetail)
	admin.GET("/reports/profit", reportCtrl.GetProfitStatistics)
	admin.GET("/reports/loyal-customers", reportCtrl.GetLoyalCustomers)
	admin.GET("/reports/revenue-chart", reportCtrl.GetRevenueChart)

	admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
	admin.GET("/dashboard/low-stock", adminCtrl.GetLowStock)

	return r, nil
}
