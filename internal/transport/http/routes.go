package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"chwazi-quiz/internal/app"
	"chwazi-quiz/internal/domain"
	"github.com/gorilla/handlers"
)

// NewRouter wires the game endpoints behind recovery and access logging.
func NewRouter(service *app.GameService, ws *WSHandler, accessLog io.Writer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/categories", categoriesHandler(service))
	mux.HandleFunc("/ws", ws.ServeWS)

	var h http.Handler = mux
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(log.Default()))(h)
	if accessLog != nil {
		h = handlers.CombinedLoggingHandler(accessLog, h)
	}
	return h
}

func categoriesHandler(service *app.GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		names, err := service.Categories(r.Context())
		if err != nil {
			log.Printf("list categories: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorPayload{Kind: domain.Kind(err), Message: "cannot list categories"})
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"categories":      names,
			"minParticipants": domain.MinParticipants,
			"maxParticipants": domain.MaxParticipants,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
