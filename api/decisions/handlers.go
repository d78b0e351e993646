// Package decisions exposes the dispatch manager over HTTP.
package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/binfleet/core/dispatch"
	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/model"
	coremon "github.com/kilianp07/binfleet/core/monitoring"
	"github.com/kilianp07/binfleet/core/roster"
	"github.com/kilianp07/binfleet/core/spatial"
)

// Manager is the part of dispatch.Manager the handlers use.
type Manager interface {
	AssignPending(ctx context.Context) (dispatch.AssignmentOutcome, error)
	AssignOne(ctx context.Context, orderID string) (dispatch.AssignmentOutcome, error)
	PlanRoute(ctx context.Context, driverID string, c model.RouteConstraints) (dispatch.RouteOutcome, error)
	Quote(ctx context.Context, f model.PricingFactors, zone spatial.Zone) (dispatch.QuoteOutcome, error)
	MaintenanceSweep(ctx context.Context, asOf time.Time) (dispatch.MaintenanceOutcome, error)
	Decisions(ctx context.Context, q logging.LogQuery) ([]logging.DecisionRecord, error)
	Roster() roster.Store
}

const maxBodyBytes = 1 << 20

// Register mounts every handler on mux. Requests must carry
// "Authorization: Bearer <token>" when token is non-empty.
func Register(mux *http.ServeMux, m Manager, token string) {
	mux.Handle("/api/assignments", withAuth(token, NewAssignHandler(m)))
	mux.Handle("/api/routes/optimize", withAuth(token, NewRouteHandler(m)))
	mux.Handle("/api/quotes", withAuth(token, NewQuoteHandler(m)))
	mux.Handle("/api/maintenance/alerts", withAuth(token, NewMaintenanceHandler(m)))
	mux.Handle("/api/decisions", withAuth(token, NewLogHandler(m)))
	mux.Handle("/api/drivers", withAuth(token, NewDriverHandler(m.Roster())))
	mux.Handle("/api/orders", withAuth(token, NewOrderHandler(m.Roster())))
	mux.Handle("/api/orders/complete", withAuth(token, NewCompleteHandler(m.Roster())))
	mux.Handle("/api/vehicles", withAuth(token, NewVehicleHandler(m.Roster())))
}

// AssignRequest selects a single order; an empty OrderID assigns every
// pending order.
type AssignRequest struct {
	OrderID string `json:"order_id"`
}

// NewAssignHandler serves POST /api/assignments.
func NewAssignHandler(m Manager) http.Handler {
	return postJSON(func(r *http.Request, req AssignRequest) (any, error) {
		if req.OrderID == "" {
			return m.AssignPending(r.Context())
		}
		return m.AssignOne(r.Context(), req.OrderID)
	})
}

// RouteRequest asks for the route of a driver's committed orders.
type RouteRequest struct {
	DriverID    string                 `json:"driver_id"`
	Constraints model.RouteConstraints `json:"constraints"`
}

// NewRouteHandler serves POST /api/routes/optimize.
func NewRouteHandler(m Manager) http.Handler {
	return postJSON(func(r *http.Request, req RouteRequest) (any, error) {
		if req.DriverID == "" {
			return nil, badRequest("driver_id is required")
		}
		return m.PlanRoute(r.Context(), req.DriverID, req.Constraints)
	})
}

// QuoteRequest prices a job. Demand is scoped to Zone, or to the zone of
// Position when Zone is empty, or to the whole roster when both are unset.
type QuoteRequest struct {
	model.PricingFactors
	Zone     spatial.Zone    `json:"zone,omitempty"`
	Position *model.GeoPoint `json:"position,omitempty"`
}

// NewQuoteHandler serves POST /api/quotes.
func NewQuoteHandler(m Manager) http.Handler {
	return postJSON(func(r *http.Request, req QuoteRequest) (any, error) {
		zone := req.Zone
		if zone == "" && req.Position != nil {
			if err := req.Position.Validate(); err != nil {
				return nil, err
			}
			zone = spatial.ZoneOf(*req.Position)
		}
		return m.Quote(r.Context(), req.PricingFactors, zone)
	})
}

// MaintenanceRequest sets the evaluation instant; zero means now.
type MaintenanceRequest struct {
	AsOf time.Time `json:"as_of"`
}

// NewMaintenanceHandler serves POST /api/maintenance/alerts.
func NewMaintenanceHandler(m Manager) http.Handler {
	return postJSON(func(r *http.Request, req MaintenanceRequest) (any, error) {
		return m.MaintenanceSweep(r.Context(), req.AsOf)
	})
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

// postJSON decodes the request body into Req, runs fn and encodes its result.
func postJSON[Req any](fn func(*http.Request, Req) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req Req
		if r.ContentLength != 0 {
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		res, err := fn(r, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, model.ErrInvalidPosition),
		errors.Is(err, model.ErrInvalidWeight),
		errors.Is(err, model.ErrInvalidCapacity),
		errors.Is(err, model.ErrInvalidRating),
		errors.Is(err, model.ErrInvalidInterval),
		errors.Is(err, model.ErrInvalidMileage),
		errors.Is(err, model.ErrInvalidWindow),
		errors.Is(err, model.ErrMissingID),
		errors.Is(err, model.ErrUnknownValue):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrUnknownDriver), errors.Is(err, roster.ErrUnknownOrder):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrOrderNotPending),
		errors.Is(err, roster.ErrCapacityExceeded),
		errors.Is(err, roster.ErrDriverUnavailable):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrNoDecisionLog):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		coremon.CaptureException(err, coremon.Tags{"module": "api", "path": r.URL.Path})
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func withAuth(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
