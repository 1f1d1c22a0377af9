package routes

import (
	"github.com/Dosada05/game-booking-system/handlers"
	"github.com/Dosada05/game-booking-system/middleware"
	"github.com/Dosada05/game-booking-system/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes регистрирует все HTTP-маршруты приложения.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	allowedOrigins []string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	gameHandler *handlers.GameHandler,
	venueHandler *handlers.VenueHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/venues", func(r chi.Router) {
		// Каталог площадок открыт на чтение
		r.Get("/", venueHandler.ListVenues)
		r.Get("/{venueID}", venueHandler.GetVenueByID)
		r.Get("/{venueID}/slots", venueHandler.SlotGrid)

		// Пакетная загрузка каталога — только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(string(models.RoleAdmin)))
			r.Post("/", venueHandler.AddVenues)
		})
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", userHandler.Me)
		r.Get("/{id}", userHandler.GetUserByID)
		r.Post("/{id}/avatar", userHandler.UploadAvatar)
	})

	router.Route("/games", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", gameHandler.CreateGame)
		r.Get("/upcoming", gameHandler.ListUpcoming)
		r.Get("/current", gameHandler.ListCurrent)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/players", gameHandler.ListPlayers)
			r.Get("/requests", gameHandler.ListRequests)
			r.Post("/request", gameHandler.RequestJoin)
			r.Delete("/request", gameHandler.CancelRequest)
			r.Post("/accept", gameHandler.AcceptRequest)
			r.Post("/toggle-match-full", gameHandler.ToggleMatchFull)
			r.Post("/queries", gameHandler.SubmitQuery)
			r.Post("/book", gameHandler.Book)
		})
	})

	router.Get("/ws/games/{gameID}", webSocketHandler.ServeWs)
}
