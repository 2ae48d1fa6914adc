package controllers

import (
	"net/http"

	"github.com/nochance19900208-source/Real-Estate/api/middleware"
	"github.com/nochance19900208-source/Real-Estate/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if user := middleware.UserFromContext(r.Context()); user != nil {
			payload["user_id"] = user.PublicID()
		}
		responses.WriteSuccess(w, payload)
	}
}
