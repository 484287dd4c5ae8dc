package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"congresy/internal/delivery/http/controllers"
	"congresy/internal/delivery/http/middleware"
	"congresy/internal/domain"
)

// Controllers bundles the route handlers.
type Controllers struct {
	Auth        *controllers.AuthController
	Actors      *controllers.ActorController
	Conferences *controllers.ConferenceController
	Events      *controllers.EventController
	Enrollment  *controllers.EnrollmentController
	Messages    *controllers.MessageController
	Posts       *controllers.PostController
	Repair      *controllers.RepairController
}

// NewRouter initializes the HTTP router with all application routes.
// Mutating routes and every /me route require a bearer token.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/register", c.Auth.Register)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Actors and folders
	mux.HandleFunc("GET /actors", c.Actors.ListActors)
	mux.HandleFunc("GET /actors/{actorID}", c.Actors.GetActor)
	mux.HandleFunc("PATCH /actors/{actorID}", auth(c.Actors.EditActor))
	mux.HandleFunc("DELETE /actors/{actorID}", auth(c.Actors.DeleteActor))
	mux.HandleFunc("GET /actors/{actorID}/events", c.Events.ListActorEvents)
	mux.HandleFunc("GET /actors/{actorID}/posts", c.Posts.ListActorPosts)
	mux.HandleFunc("GET /me/folders", auth(c.Actors.ListMyFolders))
	mux.HandleFunc("POST /me/folders", auth(c.Actors.CreateFolder))
	mux.HandleFunc("GET /me/folders/{folder}/messages", auth(c.Messages.ListFolder))

	// Conferences
	mux.HandleFunc("POST /conferences", auth(c.Conferences.CreateConference))
	mux.HandleFunc("GET /conferences", c.Conferences.ListConferences)
	mux.HandleFunc("GET /conferences/{conferenceID}", c.Conferences.GetConference)
	mux.HandleFunc("PATCH /conferences/{conferenceID}", auth(c.Conferences.EditConference))
	mux.HandleFunc("DELETE /conferences/{conferenceID}", auth(c.Conferences.DeleteConference))
	mux.HandleFunc("POST /conferences/{conferenceID}/events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /conferences/{conferenceID}/events", c.Events.ListConferenceEvents)

	// Events and enrollment
	mux.HandleFunc("GET /events/{eventID}", c.Events.GetEvent)
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.EditEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Events.DeleteEvent))
	mux.HandleFunc("GET /events/{eventID}/participants", c.Enrollment.ListParticipants)
	mux.HandleFunc("POST /events/{eventID}/participants", auth(c.Enrollment.Enroll))
	mux.HandleFunc("DELETE /events/{eventID}/participants", auth(c.Enrollment.Withdraw))
	mux.HandleFunc("GET /events/{eventID}/speakers", c.Enrollment.ListSpeakers)
	mux.HandleFunc("POST /events/{eventID}/speakers", auth(c.Enrollment.AssignSpeaker))
	mux.HandleFunc("DELETE /events/{eventID}/speakers/{actorID}", auth(c.Enrollment.RemoveSpeaker))

	// Messages
	mux.HandleFunc("POST /messages", auth(c.Messages.Send))
	mux.HandleFunc("GET /messages/{messageID}", auth(c.Messages.GetMessage))
	mux.HandleFunc("POST /messages/{messageID}/bin", auth(c.Messages.MoveToBin))
	mux.HandleFunc("DELETE /messages/{messageID}", auth(c.Messages.DeletePermanently))

	// Posts
	mux.HandleFunc("POST /posts", auth(c.Posts.CreatePost))
	mux.HandleFunc("GET /posts", c.Posts.ListPosts)
	mux.HandleFunc("GET /posts/{postID}", c.Posts.GetPost)
	mux.HandleFunc("PATCH /posts/{postID}", auth(c.Posts.EditPost))
	mux.HandleFunc("DELETE /posts/{postID}", auth(c.Posts.DeletePost))
	mux.HandleFunc("POST /posts/{postID}/publish", auth(c.Posts.PublishPost))
	mux.HandleFunc("PUT /posts/{postID}/votes", auth(c.Posts.Vote))
	mux.HandleFunc("DELETE /posts/{postID}/votes", auth(c.Posts.Unvote))
	mux.HandleFunc("GET /me/posts", auth(c.Posts.ListMyPosts))

	// Admin
	mux.HandleFunc("POST /admin/repair", auth(c.Repair.Run))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
