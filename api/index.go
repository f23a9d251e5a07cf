package handler

import (
	"net/http"

	"assetverse-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var server *bootstrap.Server

// The serverless runtime freezes idle instances, so the restock relay only runs under cmd/api.
func init() {
	var err error
	server, err = bootstrap.New()
	if err != nil {
		panic("app create: " + err.Error())
	}
}

// Handler is the Vercel serverless entry point. All requests are rewritten here.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()
	adaptor.FiberApp(server.App)(w, r)
}
