package middleware

import (
	"net/http"

	"github.com/nklymok/monobank-mcp/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
