package health

import (
	"net/http"

	"github.com/hilthontt/liveshare/internal/infrastructure/json"
)

const version = "1.0.0"

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version,
	})
}
