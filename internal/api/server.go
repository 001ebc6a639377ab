// Package api exposes the composite lights over HTTP: read-only state,
// the on/off/toggle command surface, health endpoints and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/virtlight/virtlightd/internal/light"
)

// Server is the HTTP front for the composites.
type Server struct {
	addr           string
	composites     map[string]*light.Composite
	order          []string
	metricsHandler http.Handler
	httpServer     *http.Server
}

// NewServer creates a server for the given composites. metricsHandler may
// be nil to disable the /metrics endpoint.
func NewServer(host string, port int, composites []*light.Composite, metricsHandler http.Handler) *Server {
	s := &Server{
		addr:           fmt.Sprintf("%s:%d", host, port),
		composites:     make(map[string]*light.Composite, len(composites)),
		metricsHandler: metricsHandler,
	}
	for _, c := range composites {
		s.composites[c.Name()] = c
		s.order = append(s.order, c.Name())
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	mux.HandleFunc("GET /groups", s.handleList)
	mux.HandleFunc("GET /groups/{name}", s.handleGet)
	mux.HandleFunc("POST /groups/{name}/{action}", s.handleCommand)

	return mux
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	views := make([]stateView, 0, len(s.order))
	for _, name := range s.order {
		views = append(views, newStateView(s.composites[name]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.composites[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown group")
		return
	}
	writeJSON(w, http.StatusOK, newStateView(c))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	c, ok := s.composites[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown group")
		return
	}

	attrs, err := decodeAttrs(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	switch r.PathValue("action") {
	case "turn_on":
		err = c.TurnOn(r.Context(), attrs)
	case "turn_off":
		err = c.TurnOff(r.Context(), attrs)
	case "toggle":
		err = c.Toggle(r.Context(), attrs)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	if err != nil {
		log.Error().Err(err).Str("group", c.Name()).Msg("Command dispatch failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newStateView(c))
}

// decodeAttrs parses an optional JSON attribute payload. An empty body is
// an empty payload.
func decodeAttrs(body io.Reader) (light.Attributes, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var attrs light.Attributes
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// stateView is the JSON representation of one composite.
type stateView struct {
	Name              string    `json:"name"`
	IsOn              bool      `json:"is_on"`
	PrimaryOn         bool      `json:"primary_on"`
	Available         bool      `json:"available"`
	Brightness        *int      `json:"brightness,omitempty"`
	HSColor           []float64 `json:"hs_color,omitempty"`
	ColorTemp         *int      `json:"color_temp,omitempty"`
	MinMireds         int       `json:"min_mireds"`
	MaxMireds         int       `json:"max_mireds"`
	WhiteValue        *int      `json:"white_value,omitempty"`
	Effect            string    `json:"effect,omitempty"`
	EffectList        []string  `json:"effect_list,omitempty"`
	SupportedFeatures uint32    `json:"supported_features"`
}

func newStateView(c *light.Composite) stateView {
	st := c.State()
	v := stateView{
		Name:              c.Name(),
		IsOn:              st.IsOn,
		PrimaryOn:         st.PrimaryOn,
		Available:         st.Available,
		Brightness:        st.Brightness,
		ColorTemp:         st.ColorTemp,
		MinMireds:         st.MinMireds,
		MaxMireds:         st.MaxMireds,
		WhiteValue:        st.WhiteValue,
		Effect:            st.Effect,
		EffectList:        st.EffectList,
		SupportedFeatures: st.SupportedFeatures,
	}
	if st.HSColor != nil {
		v.HSColor = []float64{st.HSColor.Hue, st.HSColor.Sat}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode API response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
