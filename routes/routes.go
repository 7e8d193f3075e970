package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/futsal-pulse/handlers"
	"github.com/Dosada05/futsal-pulse/middleware"
	"github.com/Dosada05/futsal-pulse/models"
)

// Handlers собирает все HTTP-обработчики для маршрутизатора.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Teams         *handlers.TeamHandler
	Invitations   *handlers.InvitationHandler
	Registrations *handlers.RegistrationHandler
	Tournaments   *handlers.TournamentHandler
	Matches       *handlers.MatchHandler
	Players       *handlers.PlayerHandler
	Notifications *handlers.NotificationHandler
	Reviews       *handlers.ReviewHandler
	Announcements *handlers.AnnouncementHandler
}

func SetupRoutes(h Handlers, auth *middleware.Auth) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/api", func(api chi.Router) {
		api.Route("/users", func(r chi.Router) {
			r.Get("/{userID}", h.Users.GetPublicProfile)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.Get("/me", h.Users.GetMe)
				r.Patch("/me", h.Users.UpdateMe)
				r.Post("/me/avatar", h.Users.UploadAvatar)
				r.Get("/search", h.Users.SearchPlayers)
			})
		})

		api.Route("/teams", func(r chi.Router) {
			// Публичный просмотр команд
			r.Get("/", h.Teams.List)
			r.Get("/{teamID}", h.Teams.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.Post("/", h.Teams.Create)
				r.Get("/my", h.Teams.ListMine)
				r.Delete("/{teamID}", h.Teams.Delete)
				r.Post("/{teamID}/invitations", h.Invitations.Invite)
				r.Delete("/{teamID}/players/{playerID}", h.Teams.RemovePlayer)
			})
		})

		api.Route("/invitations", func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{notificationID}/respond", h.Invitations.Respond)
		})

		api.Route("/registrations", func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", h.Registrations.Register)
			r.Get("/", h.Registrations.List)
			r.Patch("/{registrationID}", h.Registrations.SetStatus)
		})

		api.Route("/tournaments", func(r chi.Router) {
			// Публичный просмотр турниров и отзывов
			r.Get("/", h.Tournaments.List)
			r.Get("/{tournamentID}", h.Tournaments.GetByID)
			r.Get("/{tournamentID}/reviews", h.Reviews.List)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.Post("/{tournamentID}/reviews", h.Reviews.Upsert)

				r.Get("/{tournamentID}/announcements", h.Announcements.List)
				r.Get("/{tournamentID}/subscription", h.Announcements.GetSubscription)
				r.Put("/{tournamentID}/subscription", h.Announcements.Subscribe)
				r.Delete("/{tournamentID}/subscription", h.Announcements.Unsubscribe)
			})

			// Только для организаторов
			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Use(auth.Authorize(string(models.RoleOrganizer)))

				r.Post("/", h.Tournaments.Create)
				r.Patch("/{tournamentID}", h.Tournaments.Update)
				r.Delete("/{tournamentID}", h.Tournaments.Delete)
				r.Post("/{tournamentID}/image", h.Tournaments.UploadImage)
				r.Get("/{tournamentID}/allowed-stages", h.Matches.AllowedStages)
				r.Get("/{tournamentID}/eligible-teams", h.Matches.EligibleTeams)
				r.Post("/{tournamentID}/announcements", h.Announcements.Create)
				r.Delete("/{tournamentID}/announcements/{announcementID}", h.Announcements.Delete)
			})
		})

		api.Route("/reviews", func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Delete("/{reviewID}", h.Reviews.Delete)
		})

		api.Route("/matches", func(r chi.Router) {
			// Публичный просмотр матчей
			r.Get("/", h.Matches.List)
			r.Get("/{matchID}", h.Matches.GetByID)
			r.Get("/tournament/{tournamentID}", h.Matches.ListByTournament)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.Post("/", h.Matches.Create)
				r.Delete("/{matchID}", h.Matches.Delete)
				r.Patch("/{matchID}/finish", h.Matches.Finish)
				r.Post("/{matchID}/events", h.Matches.AddEvent)
				r.Delete("/{matchID}/events/{eventID}", h.Matches.DeleteEvent)
				r.Post("/{matchID}/penalties", h.Matches.AddPenaltyKick)
			})
		})

		api.Route("/players", func(r chi.Router) {
			// Публичная статистика и поиск игроков
			r.Get("/search", h.Users.SearchPlayers)
			r.Get("/{playerID}/stats", h.Players.GetTotals)
			r.Get("/{playerID}/matches", h.Players.GetMatchLog)
		})

		api.Route("/stats", func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.Authorize(string(models.RoleOrganizer)))

			r.Post("/recompute", h.Players.Recompute)
		})

		api.Route("/notifications", func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Get("/", h.Notifications.List)
			r.Get("/unread-count", h.Notifications.UnreadCount)
			r.Patch("/read-all", h.Notifications.MarkAllRead)
			r.Patch("/{notificationID}/read", h.Notifications.MarkRead)
			r.Delete("/", h.Notifications.DeleteAll)
			r.Delete("/{notificationID}", h.Notifications.Delete)
		})
	})

	return router
}
