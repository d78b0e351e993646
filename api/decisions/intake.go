package decisions

import (
	"net/http"

	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/roster"
)

// NewDriverHandler serves POST /api/drivers. The response is the stored
// driver, whose load stays the one the roster tracks.
func NewDriverHandler(r roster.Store) http.Handler {
	return postJSON(func(_ *http.Request, d model.Driver) (any, error) {
		if err := r.UpsertDriver(d); err != nil {
			return nil, err
		}
		stored, _ := r.Driver(d.ID)
		return stored, nil
	})
}

// NewOrderHandler serves POST /api/orders. Only pending orders may be
// replaced.
func NewOrderHandler(r roster.Store) http.Handler {
	return postJSON(func(_ *http.Request, o model.Order) (any, error) {
		if err := r.UpsertOrder(o); err != nil {
			return nil, err
		}
		st, _ := r.Order(o.ID)
		return st, nil
	})
}

// NewVehicleHandler serves POST /api/vehicles.
func NewVehicleHandler(r roster.Store) http.Handler {
	return postJSON(func(_ *http.Request, v model.Vehicle) (any, error) {
		if err := r.UpsertVehicle(v); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// CompleteRequest names a finished order.
type CompleteRequest struct {
	OrderID string `json:"order_id"`
}

// NewCompleteHandler serves POST /api/orders/complete. The order leaves the
// roster and its weight is released from the driver.
func NewCompleteHandler(r roster.Store) http.Handler {
	return postJSON(func(_ *http.Request, req CompleteRequest) (any, error) {
		if req.OrderID == "" {
			return nil, badRequest("order_id is required")
		}
		if err := r.Complete(req.OrderID); err != nil {
			return nil, err
		}
		return map[string]string{"order_id": req.OrderID, "status": "completed"}, nil
	})
}
