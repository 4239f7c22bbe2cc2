package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"nps-signal-finder/internal/analyzer"
	"nps-signal-finder/internal/dataset"
	"nps-signal-finder/internal/export"
	"nps-signal-finder/internal/logger"
	"nps-signal-finder/internal/parser"
	"nps-signal-finder/internal/types"
)

const (
	defaultTopN = 20
	minTopN     = 5
	maxTopN     = 50
)

type analyzeResponse struct {
	Question      string                 `json:"question"`
	Filters       types.FilterSpec       `json:"filters"`
	FilterSummary string                 `json:"filter_summary"`
	TotalAgents   int                    `json:"total_agents"`
	TotalStores   int                    `json:"total_stores"`
	ByAgent       types.Table            `json:"by_agent"`
	ByStore       types.Table            `json:"by_store"`
	StoreOrder    []string               `json:"store_order,omitempty"`
	StoreDetail   map[string]types.Table `json:"store_detail,omitempty"`
	Summary       []types.SummaryItem    `json:"summary"`
	Insights      []string               `json:"insights"`
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "nps-signal-finder").Info("starting service")

	provider, err := newProvider()
	if err != nil {
		log.WithError(err).Fatal("dataset source not configured")
	}
	if rows, _, err := provider.Load(); err != nil {
		log.WithError(err).Fatal("failed to load dataset")
	} else {
		log.WithField("rows", len(rows)).Info("dataset ready")
	}

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// analyze endpoint: classify the question, run the matching analyzer
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "analyze")

		question := r.URL.Query().Get("q")
		if question == "" {
			reqLog.Warn("missing q")
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		rows, _, err := provider.Load()
		if err != nil {
			reqLog.WithError(err).Error("dataset load error")
			http.Error(w, "dataset load error", http.StatusInternalServerError)
			return
		}

		f := parser.Parse(question)
		applyOverrides(&f, r)

		// month-level period comparisons always run over the full range;
		// day-level ones need the specific month the question named
		if f.AnalysisType == types.AnalysisPeriodComparison && !strings.Contains(question, "일") {
			f.AnalysisMonth = types.MonthAll
		}
		if f.AnalysisType == types.AnalysisPeriodComparison {
			f.ComparisonPeriods = parser.ComparisonPeriods(question, f.AnalysisMonth)
		}

		start := time.Now()
		bundle := analyzer.Run(rows, f)
		reqLog.WithField("analysis_type", string(f.AnalysisType)).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("analysis finished")

		topN := parseTopN(r.URL.Query().Get("top_n"))
		resp := analyzeResponse{
			Question:      question,
			Filters:       f,
			FilterSummary: parser.FilterSummary(f),
			TotalAgents:   len(bundle.ByAgent.Rows),
			TotalStores:   len(bundle.ByStore.Rows),
			ByAgent:       bundle.ByAgent.Head(topN),
			ByStore:       bundle.ByStore.Head(topN),
			StoreOrder:    bundle.StoreOrder,
			StoreDetail:   bundle.StoreDetail,
			Summary:       bundle.Summary,
			Insights:      bundle.Insights,
		}
		writeJSON(w, resp, reqLog)
	})

	// export endpoint: same analysis, one table as a workbook download
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "export")

		question := r.URL.Query().Get("q")
		if question == "" {
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		table := r.URL.Query().Get("table")
		if table != "agent" && table != "store" {
			http.Error(w, "table must be agent or store", http.StatusBadRequest)
			return
		}
		rows, _, err := provider.Load()
		if err != nil {
			reqLog.WithError(err).Error("dataset load error")
			http.Error(w, "dataset load error", http.StatusInternalServerError)
			return
		}

		f := parser.Parse(question)
		applyOverrides(&f, r)
		if f.AnalysisType == types.AnalysisPeriodComparison && !strings.Contains(question, "일") {
			f.AnalysisMonth = types.MonthAll
		}
		if f.AnalysisType == types.AnalysisPeriodComparison {
			f.ComparisonPeriods = parser.ComparisonPeriods(question, f.AnalysisMonth)
		}
		bundle := analyzer.Run(rows, f)

		t := bundle.ByAgent
		if table == "store" {
			t = bundle.ByStore
		}
		data, err := export.Write(t)
		if err != nil {
			reqLog.WithError(err).Error("workbook build failed")
			http.Error(w, "export error", http.StatusInternalServerError)
			return
		}
		name := fmt.Sprintf("nps_%s_%s.xlsx", table, time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		if _, err := w.Write(data); err != nil {
			reqLog.WithError(err).Error("failed to write response")
		}
	})

	// dataset overview
	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "summary")
		rows, loadedAt, err := provider.Load()
		if err != nil {
			reqLog.WithError(err).Error("dataset load error")
			http.Error(w, "dataset load error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"loaded_at": loadedAt.Format(time.RFC3339),
			"summary":   dataset.Summarize(rows),
		}, reqLog)
	})

	// force a reload on the next request
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "refresh")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		provider.Invalidate()
		rows, loadedAt, err := provider.Load()
		if err != nil {
			reqLog.WithError(err).Error("reload failed")
			http.Error(w, "reload failed", http.StatusInternalServerError)
			return
		}
		reqLog.WithField("rows", len(rows)).Info("dataset reloaded")
		writeJSON(w, map[string]interface{}{
			"rows":      len(rows),
			"loaded_at": loadedAt.Format(time.RFC3339),
		}, reqLog)
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func newProvider() (*dataset.Provider, error) {
	ttl := types.DefaultCacheTTL
	if v := os.Getenv("DATASET_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl = d
		}
	}
	if url := os.Getenv("DATASET_URL"); url != "" {
		return dataset.NewRemoteProvider(url, ttl), nil
	}
	if path := os.Getenv("DATASET_PATH"); path != "" {
		return dataset.NewFileProvider(path, ttl), nil
	}
	return nil, fmt.Errorf("set DATASET_PATH or DATASET_URL")
}

// applyOverrides lets callers pin filters the question did not carry, or
// correct what the parser extracted.
func applyOverrides(f *types.FilterSpec, r *http.Request) {
	q := r.URL.Query()
	if v := q.Get("analysis_month"); v != "" {
		f.AnalysisMonth = v
	}
	if v := q.Get("team"); v != "" {
		f.Team = v
	}
	if v := q.Get("dealer_name"); v != "" {
		f.DealerName = v
	}
	if v := q.Get("store_name"); v != "" {
		f.StoreName = v
	}
	if v := q.Get("nps_target"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			f.NPSTarget = &t
		}
	}
	if v := q.Get("nps_comparison"); v == string(types.CompareBelow) || v == string(types.CompareAbove) {
		f.NPSComparison = types.NPSComparison(v)
	}
	if v := q.Get("min_responses"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.MinResponses = n
		}
	}
	if v := q.Get("min_responses_period1"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.MinResponsesPeriod1 = n
		}
	}
	if v := q.Get("min_responses_period2"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.MinResponsesPeriod2 = n
		}
	}
	if v := q.Get("trend"); v == string(types.TrendIncrease) || v == string(types.TrendDecrease) {
		f.Trend = types.Trend(v)
	}
}

func parseTopN(v string) int {
	if v == "" {
		return defaultTopN
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultTopN
	}
	if n < minTopN {
		return minTopN
	}
	if n > maxTopN {
		return maxTopN
	}
	return n
}

func writeJSON(w http.ResponseWriter, v interface{}, log *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
