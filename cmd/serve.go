package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dawon-meat/trace-cli/internal/barcode"
	"github.com/dawon-meat/trace-cli/internal/importer"
	"github.com/dawon-meat/trace-cli/internal/ingest"
	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/internal/report"
	"github.com/dawon-meat/trace-cli/internal/resolve"
	"github.com/dawon-meat/trace-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		decoder, err := barcode.NewDecoder(cfg.Barcode)
		if err != nil {
			return err
		}

		srv := &apiServer{
			rows:        ingest.NewStore(),
			importer:    importer.New(decoder),
			engine:      resolve.NewEngine(newLookupClient(cfg.Mtrace), cfg.Mtrace.MaxConcurrent),
			store:       st,
			resolutions: make(map[string]*resolve.Resolution),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer holds the session state behind the dashboard API.
type apiServer struct {
	rows     *ingest.Store
	importer *importer.Importer
	engine   *resolve.Engine
	store    store.Store

	mu          sync.Mutex
	resolutions map[string]*resolve.Resolution
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest/text", s.handleIngestText)
		r.Post("/ingest/file", s.handleIngestFile)
		r.Get("/rows", s.handleListRows)
		r.Delete("/rows", s.handleClearRows)
		r.Delete("/rows/{id}", s.handleDeleteRow)
		r.Post("/resolve", s.handleResolve)
		r.Get("/resolve/{runID}", s.handleResolveStatus)
		r.Post("/logs", s.handleCreateLog)
		r.Get("/logs", s.handleListLogs)
		r.Get("/report", s.handleReport)
	})

	return r
}

func (s *apiServer) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	records, labelSkipped, err := importer.FromText(req.Text)
	if err != nil {
		// "nothing found" is a batch condition, not a server fault.
		writeJSON(w, http.StatusOK, map[string]any{"added": 0, "message": err.Error()})
		return
	}

	res := s.rows.Add(records)
	res.Excluded += labelSkipped
	writeJSON(w, http.StatusOK, map[string]any{
		"added":      res.Added,
		"duplicates": res.Duplicates,
		"excluded":   res.Excluded,
		"summary":    res.Summary(),
	})
}

func (s *apiServer) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// The spreadsheet and image decoders want a path, so spool the upload.
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "spool upload")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "spool upload")
		return
	}
	tmp.Close()

	records, labelSkipped, err := s.importer.ImportFile(r.Context(), tmp.Name())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"added": 0, "message": err.Error()})
		return
	}

	res := s.rows.Add(records)
	res.Excluded += labelSkipped
	writeJSON(w, http.StatusOK, map[string]any{
		"added":      res.Added,
		"duplicates": res.Duplicates,
		"excluded":   res.Excluded,
		"summary":    res.Summary(),
	})
}

func (s *apiServer) handleListRows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rows.Rows())
}

func (s *apiServer) handleClearRows(w http.ResponseWriter, _ *http.Request) {
	s.rows.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid row id")
		return
	}
	if !s.rows.Remove(id) {
		writeError(w, http.StatusNotFound, "row not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	selected := s.selectRows(req.IDs)
	if len(selected) == 0 {
		writeError(w, http.StatusBadRequest, "no rows selected")
		return
	}

	// The resolution outlives the request; tie it to the server lifetime,
	// not the POST.
	resolution := s.engine.Resolve(context.WithoutCancel(r.Context()), selected)

	runID := uuid.New().String()
	s.mu.Lock()
	s.resolutions[runID] = resolution
	s.mu.Unlock()

	_, total := resolution.Progress()
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "total": total})
}

func (s *apiServer) selectRows(ids []int) []model.TraceRecord {
	if len(ids) == 0 {
		return s.rows.Rows()
	}
	var selected []model.TraceRecord
	for _, id := range ids {
		if row, ok := s.rows.Get(id); ok {
			selected = append(selected, row)
		}
	}
	return selected
}

func (s *apiServer) handleResolveStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	s.mu.Lock()
	resolution, ok := s.resolutions[runID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	loaded, total := resolution.Progress()
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":  loaded,
		"total":   total,
		"ready":   resolution.Ready(),
		"results": resolution.Results(),
	})
}

func (s *apiServer) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product  string  `json:"product"`
		WeightKg float64 `json:"weight_kg"`
		Note     string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Product == "" || req.WeightKg <= 0 {
		writeError(w, http.StatusBadRequest, "product and positive weight_kg are required")
		return
	}

	log, err := s.store.CreateLog(r.Context(), model.ProductionLog{
		Product:  req.Product,
		WeightKg: req.WeightKg,
		Source:   model.LogSourceManual,
		Note:     req.Note,
	})
	if err != nil {
		zap.L().Error("create production log failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create log failed")
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

func (s *apiServer) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListLogs(r.Context(), store.LogFilter{
		Month:  r.URL.Query().Get("month"),
		Source: model.LogSource(r.URL.Query().Get("source")),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *apiServer) handleReport(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		writeError(w, http.StatusBadRequest, "month is required (YYYY-MM)")
		return
	}

	logs, err := s.store.ListLogs(r.Context(), store.LogFilter{Month: month})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := report.BuildMonthly(logs, month, cfg.Report.SheetName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "build report failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="production-%s.xlsx"`, month))
	if err := f.Write(w); err != nil {
		zap.L().Error("stream report failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
