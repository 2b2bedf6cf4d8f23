package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rubiojr/fuelrescue/internal/i18n"
	"github.com/rubiojr/fuelrescue/pkg/geo"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	s.writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func translations(r *http.Request) i18n.Translations {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}
	return i18n.GetTranslations(lang)
}

// parseCoordinate reads a latitude and longitude pair from the query.
func parseCoordinate(q url.Values, latKey, lngKey string) (geo.Coordinate, error) {
	latStr, lngStr := strings.TrimSpace(q.Get(latKey)), strings.TrimSpace(q.Get(lngKey))
	if latStr == "" || lngStr == "" {
		return geo.Coordinate{}, fmt.Errorf("%s and %s are required", latKey, lngKey)
	}
	lat, err := geo.ParseLatLong(latStr)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid %s value: %w", latKey, err)
	}
	lng, err := geo.ParseLatLong(lngStr)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid %s value: %w", lngKey, err)
	}
	c := geo.Coordinate{Lat: lat, Lon: lng}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate out of range: %s", c)
	}
	return c, nil
}
