package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	applog "healthdash/internal/log"
	"healthdash/internal/services"
)

type (
	mapRow struct {
		Code  string
		Label string
		Value string
		Raw   float64
	}
	mapData struct {
		Title string
		Year  int
		Rows  []mapRow
	}

	barRow struct {
		Label string
		Value string
		Width int
	}
	topData struct {
		Title string
		Year  int
		N     int
		Rows  []barRow
	}

	trendRow struct {
		Year  int
		Value string
	}
	trendData struct {
		Title   string
		Country string
		Rows    []trendRow
	}

	indexData struct {
		Selection services.Selection
		Years     services.YearsView
		Countries []string
		Map       mapData
		Top       topData
		Trend     trendData
		Source    string
		ImportID  string
		LoadedAt  string
	}
)

func newMapData(v services.MapView) mapData {
	d := mapData{Title: v.Title, Year: v.Year}
	for _, p := range v.Points {
		d.Rows = append(d.Rows, mapRow{Code: p.LocationCode, Label: p.Label, Value: formatUSD(p.Value), Raw: p.Value})
	}
	return d
}

func newTopData(v services.TopView) topData {
	d := topData{Title: v.Title, Year: v.Year, N: v.N}
	var max float64
	for _, p := range v.Points {
		if p.Value > max {
			max = p.Value
		}
	}
	for _, p := range v.Points {
		d.Rows = append(d.Rows, barRow{Label: p.Label, Value: formatUSD(p.Value), Width: barWidth(p.Value, max)})
	}
	return d
}

func newTrendData(v services.TrendView) trendData {
	d := trendData{Title: v.Title, Country: v.Country}
	for _, p := range v.Points {
		d.Rows = append(d.Rows, trendRow{Year: p.Year, Value: formatUSD(p.Value)})
	}
	return d
}

// cacheKey prefixes parts with the dataset generation.
func (s *Server) cacheKey(parts ...string) string {
	key := strconv.FormatUint(s.generation.Load(), 10)
	for _, p := range parts {
		key += "|" + p
	}
	return key
}

func (s *Server) mapView(ctx context.Context, year int) (services.MapView, error) {
	key := s.cacheKey(strconv.Itoa(year))
	if v, ok := s.mapCache.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Map view cache hit", applog.FieldYear, year)
		return v, nil
	}
	v, err := s.dashboard.Map(year)
	if err != nil {
		return services.MapView{}, fmt.Errorf("map view (year=%d): %w", year, err)
	}
	s.mapCache.Set(key, v)
	return v, nil
}

func (s *Server) topView(ctx context.Context, year, n int) (services.TopView, error) {
	key := s.cacheKey(strconv.Itoa(year), strconv.Itoa(n))
	if v, ok := s.topCache.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Top view cache hit", applog.FieldYear, year, applog.FieldTopN, n)
		return v, nil
	}
	v, err := s.dashboard.Top(year, n)
	if err != nil {
		return services.TopView{}, fmt.Errorf("top view (year=%d, n=%d): %w", year, n, err)
	}
	s.topCache.Set(key, v)
	return v, nil
}

func (s *Server) trendView(ctx context.Context, country string, strict bool) (services.TrendView, error) {
	key := s.cacheKey(strconv.FormatBool(strict), country)
	if v, ok := s.trendCache.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Trend view cache hit", applog.FieldCountry, country)
		return v, nil
	}
	v, err := s.dashboard.Trend(country, strict)
	if err != nil {
		return services.TrendView{}, fmt.Errorf("trend view (country=%q): %w", country, err)
	}
	s.trendCache.Set(key, v)
	return v, nil
}

// selection parses the query and fills in defaults.
func (s *Server) selection(r *http.Request) (services.Selection, error) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		return services.Selection{}, err
	}
	return s.dashboard.Resolve(sel)
}

func (s *Server) render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// fail logs err and answers with an HTML error fragment.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logFailure(r, op, status, err)
	ErrorResponse(status, publicMessage(err, status)).Write(w)
}

func logFailure(r *http.Request, op string, status int, err error) {
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldOperation, op, applog.FieldError, err)
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", applog.FieldOperation, op, applog.FieldStatusCode, status, applog.FieldError, err)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}

	years, err := s.dashboard.Years()
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}
	countries, err := s.dashboard.Countries()
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}
	mv, err := s.mapView(ctx, sel.Year)
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}
	tv, err := s.topView(ctx, sel.Year, sel.TopN)
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}
	trv, err := s.trendView(ctx, sel.Country, false)
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}

	data := indexData{
		Selection: sel,
		Years:     years,
		Countries: countries,
		Map:       newMapData(mv),
		Top:       newTopData(tv),
		Trend:     newTrendData(trv),
	}
	if snap, err := s.dataset.Snapshot(); err == nil {
		data.Source = snap.Info.Source
		data.ImportID = snap.Info.ImportID
		data.LoadedAt = snap.Info.LoadedAt.UTC().Format(time.RFC3339)
	}

	body, err := s.render("index.html", data)
	if err != nil {
		s.fail(w, r, "index", err)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) handleMapPartial(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, "map", err)
		return
	}
	mv, err := s.mapView(r.Context(), sel.Year)
	if err != nil {
		s.fail(w, r, "map", err)
		return
	}
	body, err := s.render("map", newMapData(mv))
	if err != nil {
		s.fail(w, r, "map", err)
		return
	}
	NewHTMXResponse().
		BodyHTML(body).
		TriggerViewUpdated("map", map[string]interface{}{"year": sel.Year}).
		Write(w)
}

func (s *Server) handleTopPartial(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, "top", err)
		return
	}
	tv, err := s.topView(r.Context(), sel.Year, sel.TopN)
	if err != nil {
		s.fail(w, r, "top", err)
		return
	}
	body, err := s.render("top", newTopData(tv))
	if err != nil {
		s.fail(w, r, "top", err)
		return
	}
	NewHTMXResponse().
		BodyHTML(body).
		TriggerViewUpdated("top", map[string]interface{}{"year": sel.Year, "n": sel.TopN}).
		Write(w)
}

func (s *Server) handleTrendPartial(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r)
	if err != nil {
		s.fail(w, r, "trend", err)
		return
	}
	trv, err := s.trendView(r.Context(), sel.Country, false)
	if err != nil {
		s.fail(w, r, "trend", err)
		return
	}
	body, err := s.render("trend", newTrendData(trv))
	if err != nil {
		s.fail(w, r, "trend", err)
		return
	}
	NewHTMXResponse().
		BodyHTML(body).
		TriggerViewUpdated("trend", map[string]interface{}{"country": sel.Country}).
		Write(w)
}
