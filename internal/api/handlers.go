package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/dashboard"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/strategy"
)

// envelope is the response shape of every API route.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// StatusClientClosedRequest is nginx's code for a client that went away mid-request.
const StatusClientClosedRequest = 499

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ev := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, envelope{Success: false, Error: publicMessage(err, status)})
}

// statusFor maps the error taxonomy onto HTTP status codes. Context errors are
// checked first since fetchers wrap them in ProviderError.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownMarket), errors.Is(err, dashboard.ErrUnsupported):
		return http.StatusNotFound
	case calculator.IsDataError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing error text. Upstream and internal details
// stay in the log.
func publicMessage(err error, status int) string {
	switch status {
	case StatusClientClosedRequest:
		return "request cancelled"
	case http.StatusGatewayTimeout:
		return "upstream data provider timed out"
	case http.StatusBadGateway:
		var pe *model.ProviderError
		if errors.As(err, &pe) {
			return fmt.Sprintf("data provider %s failed for %s", pe.Provider, pe.Symbol)
		}
		return "data provider failed"
	case http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: "not found: " + r.URL.Path})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	markets := make([]string, 0)
	for _, m := range s.svc.Markets() {
		markets = append(markets, m.Key)
	}
	writeData(w, map[string]interface{}{
		"status":   "ok",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"markets":  markets,
		"provider": s.guard.State(),
	})
}

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.svc.Markets()
	out := make([]marketDTO, 0, len(markets))
	for _, m := range markets {
		out = append(out, presentMarket(m))
	}
	writeData(w, out)
}

// periodParam reads ?period=, defaulting to 5y.
func periodParam(r *http.Request) (model.Period, error) {
	return model.ParsePeriod(r.URL.Query().Get("period"))
}

func (s *Server) ratio(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.svc.RatioReport(r.Context(), mux.Vars(r)["market"], period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, presentRatio(rep))
}

func (s *Server) volatility(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.svc.VolatilityReport(r.Context(), mux.Vars(r)["market"], period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, presentVolatility(rep))
}

func (s *Server) spread(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.svc.SpreadReport(r.Context(), mux.Vars(r)["market"], period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, presentSpread(rep))
}

func (s *Server) bubbleIndex(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["market"]
	m, err := s.svc.Market(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := metricRequest(r, m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.BubbleIndex(key, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, presentBubble(res, m.Profile.Signal.Kind))
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.svc.Overview(r.Context(), mux.Vars(r)["market"], period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, presentOverview(ov))
}

// signalParams names the query alias each signal kind may be sent under,
// besides the generic ?signal=.
var signalParams = map[model.SignalKind]string{
	model.SignalSpreadTrend: "spreadTrend",
	model.SignalVolatility:  "volatility",
}

// metricRequest parses the bubble-index query for market m. Absent parameters
// stay nil so validation can name them. The alias of another market's signal
// is rejected rather than scored on the wrong table.
func metricRequest(r *http.Request, m dashboard.Market) (strategy.MetricRequest, error) {
	q := r.URL.Query()
	kind := m.Profile.Signal.Kind
	for k, name := range signalParams {
		if _, ok := q[name]; ok && k != kind {
			return strategy.MetricRequest{}, &model.ValidationError{
				Param:  name,
				Reason: "not the signal of market " + m.Key,
			}
		}
	}

	var req strategy.MetricRequest
	var err error
	parse := func(names ...string) *float64 {
		if err != nil {
			return nil
		}
		for _, name := range names {
			raw := q.Get(name)
			if raw == "" {
				continue
			}
			v, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				err = &model.ValidationError{Param: name, Reason: "must be a number"}
				return nil
			}
			return &v
		}
		return nil
	}
	req.Ratio = parse("ratio")
	req.ZScore = parse("zScore")
	req.Mean = parse("mean")
	req.Max = parse("max")
	signalNames := []string{"signal"}
	if alias, ok := signalParams[kind]; ok {
		signalNames = append(signalNames, alias)
	}
	req.Signal = parse(signalNames...)
	if err != nil {
		return strategy.MetricRequest{}, err
	}
	return req, nil
}
