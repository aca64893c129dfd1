package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"evrental-backend/internal/security"
	"evrental-backend/internal/service"
	"evrental-backend/internal/storage"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Tokens        security.TokenManager
	Fleet         service.FleetService
	Bookings      service.BookingService
	Rides         service.RideService
	Penalties     service.PenaltyService
	Notifications service.NotificationService
	Storage       storage.StorageInterface
}

// NewRouter wires every endpoint. Everything under /api/v1 except the
// health check, the payment webhook, and the storage endpoints sits
// behind the auth middleware.
func NewRouter(deps RouterDeps) *mux.Router {
	fleet := NewFleetHandler(deps.Fleet)
	bookings := NewBookingHandler(deps.Bookings, deps.Penalties)
	rides := NewRideHandler(deps.Rides)
	penalties := NewPenaltyHandler(deps.Penalties)
	notes := NewNotificationHandler(deps.Notifications)

	root := mux.NewRouter()
	root.Use(LoggingMiddleware)

	root.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Payment provider webhook, trusted at the network level.
	root.HandleFunc("/api/v1/webhooks/payments/{id}", bookings.ConfirmPayment).Methods("POST")

	if deps.Storage != nil {
		photos := NewPhotoHandler(deps.Storage)
		root.HandleFunc("/api/v1/upload/{token}", photos.HandleUpload).Methods("PUT")
		root.HandleFunc("/api/v1/download/{key}", photos.HandleDownload).Methods("GET")
	}

	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(deps.Tokens))

	// Stations and vehicles
	api.HandleFunc("/stations", fleet.ListStations).Methods("GET")
	api.HandleFunc("/stations", fleet.CreateStation).Methods("POST")
	api.HandleFunc("/stations/{id}", fleet.GetStation).Methods("GET")
	api.HandleFunc("/stations/{id}/vehicles", fleet.ListStationVehicles).Methods("GET")

	api.HandleFunc("/vehicles", fleet.CreateVehicle).Methods("POST")
	api.HandleFunc("/vehicles/{id}", fleet.GetVehicle).Methods("GET")
	api.HandleFunc("/vehicles/{id}/release", fleet.ReleaseVehicle).Methods("POST")
	api.HandleFunc("/vehicles/{id}/location", fleet.UpdateVehicleLocation).Methods("POST")
	api.HandleFunc("/vehicles/{id}/battery", fleet.UpdateVehicleBattery).Methods("POST")
	api.HandleFunc("/vehicles/{id}/maintenance", fleet.RecordMaintenance).Methods("POST")
	api.HandleFunc("/vehicles/{id}/maintenance", fleet.ListMaintenance).Methods("GET")
	api.HandleFunc("/vehicles/{id}/maintenance", fleet.ClearMaintenance).Methods("DELETE")

	// Booking lifecycle
	api.HandleFunc("/bookings", bookings.Create).Methods("POST")
	api.HandleFunc("/bookings", bookings.List).Methods("GET")
	api.HandleFunc("/bookings/mine", bookings.ListMine).Methods("GET")
	api.HandleFunc("/bookings/{id}", bookings.Get).Methods("GET")
	api.HandleFunc("/bookings/{id}/approve", bookings.Approve).Methods("POST")
	api.HandleFunc("/bookings/{id}/decline", bookings.Decline).Methods("POST")
	api.HandleFunc("/bookings/{id}/cancel", bookings.Cancel).Methods("POST")
	api.HandleFunc("/bookings/{id}/damage", bookings.ReportDamage).Methods("POST")
	api.HandleFunc("/bookings/{id}/penalties", bookings.ListPenalties).Methods("GET")

	// Ride sessions
	api.HandleFunc("/rides", rides.Start).Methods("POST")
	api.HandleFunc("/rides/{id}", rides.Get).Methods("GET")
	api.HandleFunc("/rides/{id}/location", rides.TrackLocation).Methods("POST")
	api.HandleFunc("/rides/{id}/end", rides.End).Methods("POST")
	api.HandleFunc("/rides/{id}/issues", rides.ReportIssue).Methods("POST")
	api.HandleFunc("/rides/{id}/issues", rides.ListIssues).Methods("GET")
	api.HandleFunc("/rides/{id}/rating", rides.Rate).Methods("POST")

	// Penalty ledger
	api.HandleFunc("/penalties", penalties.Accrue).Methods("POST")
	api.HandleFunc("/penalties/mine", penalties.ListMine).Methods("GET")
	api.HandleFunc("/penalties/statistics", penalties.Statistics).Methods("GET")
	api.HandleFunc("/penalties/{id}", penalties.Get).Methods("GET")
	api.HandleFunc("/penalties/{id}/waive", penalties.Waive).Methods("POST")
	api.HandleFunc("/penalties/{id}/pay", penalties.MarkPaid).Methods("POST")
	api.HandleFunc("/penalties/{id}", penalties.Remove).Methods("DELETE")

	// Notifications
	api.HandleFunc("/notifications", notes.List).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", notes.MarkAsRead).Methods("POST")

	return root
}
