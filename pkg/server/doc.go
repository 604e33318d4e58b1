// Package server provides the HTTP front end of the quizdesk session
// service.
//
// The server holds the session controller, the authorization gate and the
// route table, and uses gorilla/mux for routing. Handlers live in the
// endpoints subpackage:
//
//	srv := server.NewServer(server.Options{...}, "0.0.0.0", "8000")
//	endpoints.RegisterAll(srv)
//	log.Fatal(srv.Start())
//
// Endpoints:
//
//   - GET /status - readiness of the session
//   - GET /session, POST /session/login, DELETE /session
//   - GET /session/events - server-sent identity changes
//   - GET /session/resume - pops the post-login destination
//   - GET /authorize?path=... - navigation decision
//   - GET /usernames/{username}/availability
package server
