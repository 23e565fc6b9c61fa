package http

import (
	"net/http"
	"strconv"

	syncx "github.com/ujianhub/ujianhub/internal/sync"
)

// GET /api/admin/events?after=&limit= — admin audit trail, oldest first.
func ListEventsHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := events.List(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "list events", http.StatusServiceUnavailable)
			return
		}
		if out == nil {
			out = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
