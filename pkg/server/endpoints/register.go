package endpoints

import (
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/server/middleware"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	srv.Router.Use(middleware.WithClientIP)

	RegisterStatusEndpoints(srv)
	RegisterSessionEndpoints(srv)
	RegisterEventsEndpoint(srv)
	RegisterAuthorizeEndpoint(srv)
	RegisterUsernamesEndpoint(srv)
}
