package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz)
	r.Get("/ws", g.handleWS)
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
