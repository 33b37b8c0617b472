package proxy

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/amadeus"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream/openai"
)

// Upstream client contracts, one per provider. Handlers depend on these
// rather than the concrete clients so tests can drop in spies.
type (
	ChatClient interface {
		Chat(ctx context.Context, messages []openai.Message) (string, error)
	}

	WeatherClient interface {
		CurrentByCity(ctx context.Context, city string) (json.RawMessage, error)
	}

	EventsClient interface {
		SearchByCity(ctx context.Context, city string) (json.RawMessage, error)
	}

	TravelClient interface {
		FlightOffers(ctx context.Context, origin, destination, date string) (json.RawMessage, error)
		HotelsByCity(ctx context.Context, cityCode string) (json.RawMessage, error)
		HotelsByGeocode(ctx context.Context, lat, lon string) (json.RawMessage, error)
		CarRentals(ctx context.Context, crit amadeus.CarCriteria) (json.RawMessage, error)
	}

	CurrencyClient interface {
		Latest(ctx context.Context) (json.RawMessage, error)
	}
)

// Handler owns every route of the gateway.
type Handler struct {
	chat     ChatClient
	weather  WeatherClient
	events   EventsClient
	travel   TravelClient
	currency CurrencyClient
	logger   *log.Logger
}

// NewHandler wires the route handlers to their upstream clients.
func NewHandler(chat ChatClient, weather WeatherClient, events EventsClient, travel TravelClient, currency CurrencyClient, logger *log.Logger) *Handler {
	return &Handler{
		chat:     chat,
		weather:  weather,
		events:   events,
		travel:   travel,
		currency: currency,
		logger:   logger,
	}
}

// HandleRoot answers the liveness probe.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("travel-ai-mobile-backend is running"))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "healthy", "service": "travel-ai-mobile-backend"}`))
}

type askRequest struct {
	Messages []openai.Message `json:"messages"`
}

// validMessages requires a non-empty history where every turn carries both
// role and content.
func validMessages(messages []openai.Message) bool {
	if len(messages) == 0 {
		return false
	}
	for _, m := range messages {
		if m.Role == "" || m.Content == "" {
			return false
		}
	}
	return true
}

// HandleAsk proxies a chat history to the completion provider and unwraps
// the first reply (POST /ask).
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	var req askRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil || !validMessages(req.Messages) {
		writeError(w, http.StatusBadRequest, "Invalid message history.")
		return
	}

	reply, err := h.chat.Chat(r.Context(), req.Messages)
	if err != nil {
		h.logger.Printf("ERROR [ask] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get a reply.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// HandleWeather passes through current conditions for a city (GET /weather).
func (h *Handler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, "Missing required query parameter: city")
		return
	}

	payload, err := h.weather.CurrentByCity(r.Context(), city)
	if err != nil {
		h.logger.Printf("ERROR [weather] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch weather data.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// HandleEvents returns the unwrapped events list for a city (GET /events).
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, "Missing required query parameter: city")
		return
	}

	payload, err := h.events.SearchByCity(r.Context(), city)
	if err != nil {
		h.logger.Printf("ERROR [events] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch events.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// HandleFlights searches flight offers (GET /flights). Validation runs
// before any token exchange: a request missing a parameter never reaches the
// travel provider.
func (h *Handler) HandleFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, destination, date := q.Get("origin"), q.Get("destination"), q.Get("date")
	if origin == "" || destination == "" || date == "" {
		writeError(w, http.StatusBadRequest, "Missing required query parameters: origin, destination, date")
		return
	}

	payload, err := h.travel.FlightOffers(r.Context(), origin, destination, date)
	if err != nil {
		h.logger.Printf("ERROR [flights] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch flight offers.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// HandleHotels lists hotels by city code or coordinates (GET /hotels).
func (h *Handler) HandleHotels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cityCode, lat, lon := q.Get("cityCode"), q.Get("lat"), q.Get("lon")

	var payload json.RawMessage
	var err error
	switch {
	case cityCode != "":
		payload, err = h.travel.HotelsByCity(r.Context(), cityCode)
	case lat != "" && lon != "":
		payload, err = h.travel.HotelsByGeocode(r.Context(), lat, lon)
	default:
		writeError(w, http.StatusBadRequest, "Provide either cityCode or both lat and lon")
		return
	}

	if err != nil {
		h.logger.Printf("ERROR [hotels] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch hotels.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// HandleCars searches car rentals for a location and date range (GET /cars).
func (h *Handler) HandleCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crit := amadeus.CarCriteria{
		CityCode:  q.Get("cityCode"),
		Lat:       q.Get("lat"),
		Lon:       q.Get("lon"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}

	if crit.CityCode == "" && (crit.Lat == "" || crit.Lon == "") {
		writeError(w, http.StatusBadRequest, "Provide either cityCode or both lat and lon")
		return
	}
	if crit.StartDate == "" || crit.EndDate == "" {
		writeError(w, http.StatusBadRequest, "Missing required query parameters: startDate, endDate")
		return
	}

	payload, err := h.travel.CarRentals(r.Context(), crit)
	if err != nil {
		h.logger.Printf("ERROR [cars] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch car rentals.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// HandleCurrency passes through the latest exchange-rate table
// (GET /currency). Two identical requests mean two provider calls; nothing
// is cached here.
func (h *Handler) HandleCurrency(w http.ResponseWriter, r *http.Request) {
	payload, err := h.currency.Latest(r.Context())
	if err != nil {
		h.logger.Printf("ERROR [currency] upstream: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch exchange rates.")
		return
	}
	writeRaw(w, http.StatusOK, payload)
}
