package decisions

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/events"
)

// NewLogHandler serves GET /api/decisions. Query parameters: start and end
// (RFC3339), kind, subject_id and limit.
func NewLogHandler(m Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		params := r.URL.Query()
		q := logging.LogQuery{
			Kind:      events.Kind(params.Get("kind")),
			SubjectID: params.Get("subject_id"),
		}
		var err error
		if s := params.Get("start"); s != "" {
			if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
		}
		if s := params.Get("end"); s != "" {
			if q.End, err = time.Parse(time.RFC3339, s); err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
		}
		if s := params.Get("limit"); s != "" {
			if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
		}
		records, err := m.Decisions(r.Context(), q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if records == nil {
			records = []logging.DecisionRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}
