package routes

import (
	"net/http"

	"github.com/AnshRaj112/rpd-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// Deps are the handlers and the token middleware the routes are built from.
type Deps struct {
	Adapter      *handlers.Adapter
	RPD          *handlers.RPDHandler
	Users        *handlers.UsersHandler
	Auth         *handlers.AuthHandler
	RequireToken func(http.Handler) http.Handler
}

func SetupRoutes(r chi.Router, d Deps) {
	a := d.Adapter

	// Public
	r.Get("/health", a.Handle("health", handlers.Health))
	r.Post("/auth/signin", a.Handle("auth.signin", d.Auth.SignIn))

	// Everything else needs a valid, unrevoked ID token
	r.Group(func(r chi.Router) {
		r.Use(d.RequireToken)

		r.Get("/rpd", a.Handle("rpd.list", d.RPD.List))
		r.Post("/rpd", a.Handle("rpd.upsert", d.RPD.Upsert))
		r.Delete("/rpd", a.Handle("rpd.delete", d.RPD.Delete))

		r.Post("/users", a.Handle("users.create", d.Users.Create))
		r.Delete("/users", a.Handle("users.delete", d.Users.Delete))

		r.Delete("/signout", a.Handle("auth.signout", d.Auth.SignOut))
	})
}
