package proxy

import (
	"net/http"
	"time"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/config"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/middleware"
	"github.com/Barnhirg/travel-ai-mobile-backend/internal/ratelimit"
)

// Route is one declarative entry of the gateway's surface: method, path, the
// fixed-window limit guarding it, and the handler behind it.
type Route struct {
	Method  string
	Path    string
	Limit   ratelimit.Config
	Handler http.HandlerFunc
}

// Routes returns the full route table with default limits. The chat and
// travel routes are the expensive ones; weather and events are cheap lookups
// and get roomier windows.
func (h *Handler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Handler: h.HandleRoot},
		{Method: http.MethodGet, Path: "/health", Handler: h.HandleHealth},
		{Method: http.MethodPost, Path: "/ask", Limit: ratelimit.Config{Max: 5, Window: time.Minute}, Handler: h.HandleAsk},
		{Method: http.MethodGet, Path: "/weather", Limit: ratelimit.Config{Max: 100, Window: time.Minute}, Handler: h.HandleWeather},
		{Method: http.MethodGet, Path: "/events", Limit: ratelimit.Config{Max: 100, Window: time.Minute}, Handler: h.HandleEvents},
		{Method: http.MethodGet, Path: "/flights", Limit: ratelimit.Config{Max: 50, Window: 24 * time.Hour}, Handler: h.HandleFlights},
		{Method: http.MethodGet, Path: "/hotels", Limit: ratelimit.Config{Max: 50, Window: 24 * time.Hour}, Handler: h.HandleHotels},
		{Method: http.MethodGet, Path: "/cars", Limit: ratelimit.Config{Max: 50, Window: 24 * time.Hour}, Handler: h.HandleCars},
		{Method: http.MethodGet, Path: "/currency", Limit: ratelimit.Config{Max: 500, Window: 24 * time.Hour}, Handler: h.HandleCurrency},
	}
}

// ApplyOverrides replaces route limits that have a RATE_LIMIT_<ROUTE>
// environment override set.
func ApplyOverrides(routes []Route) ([]Route, error) {
	for i, rt := range routes {
		if rt.Path == "/" {
			continue
		}
		max, window, ok, err := config.RouteLimit(rt.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			routes[i].Limit = ratelimit.Config{Max: max, Window: window}
		}
	}
	return routes, nil
}

// Mount registers the route table on mux, wrapping each limited route with
// the rate-limit middleware.
func Mount(mux *http.ServeMux, routes []Route, rl *middleware.RateLimitMiddleware) {
	for _, rt := range routes {
		pattern := rt.Method + " " + rt.Path
		if rt.Path == "/" {
			// "/" would otherwise swallow every unmatched path.
			pattern = rt.Method + " /{$}"
		}
		mux.Handle(pattern, rl.Limit(rt.Path, rt.Limit, rt.Handler))
	}
}
