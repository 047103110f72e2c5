package routes

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/example/foodshare/internal/config"
	"github.com/example/foodshare/internal/handlers"
	"github.com/example/foodshare/internal/middleware"
	"github.com/example/foodshare/internal/services"
	"github.com/example/foodshare/internal/store"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Store     store.Store
	Auth      *services.AuthService
	Listings  *services.ListingService
	Donations *services.DonationService
}

// NewApp builds the Fiber application with middleware and every route.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.Observability())

	Register(app, cfg, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, deps Deps) {
	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	healthHandler := handlers.NewHealthHandler(cfg.AppName, deps.Store)
	authHandler := handlers.NewAuthHandler(deps.Auth)
	userHandler := handlers.NewUserHandler(deps.Auth)
	listingHandler := handlers.NewListingHandler(deps.Listings)
	donationHandler := handlers.NewDonationHandler(deps.Donations)

	app.Get("/", healthHandler.Banner)
	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", auth.Require(authHandler.Me))

	// Food listings; /nearby is registered before /:id so it is not taken as an id.
	listings := api.Group("/food-listings")
	listings.Get("/", listingHandler.ListListings)
	listings.Get("/nearby", listingHandler.Nearby)
	listings.Get("/:id", listingHandler.GetListing)
	listings.Post("/", auth.Require(listingHandler.CreateListing))
	listings.Put("/:id", auth.Require(listingHandler.UpdateListing))
	listings.Delete("/:id", auth.Require(listingHandler.DeleteListing))
	listings.Put("/:id/reserve", auth.Require(listingHandler.ReserveListing))

	// Donations
	donations := api.Group("/donations")
	donations.Get("/", auth.Require(donationHandler.ListDonations))
	donations.Post("/", auth.Require(donationHandler.CreateDonation))
	donations.Put("/:id/status", auth.Require(donationHandler.UpdateStatus))
	donations.Put("/:id/rate", auth.Require(donationHandler.RateDonation))

	// Users
	api.Get("/users/:id", userHandler.GetUser)
}
