package rest

import (
	"feedbacklens/internal/config"
	_ "feedbacklens/internal/docs"
	"feedbacklens/internal/service"
	"feedbacklens/internal/transport/rest/handler"
	"feedbacklens/internal/transport/rest/middleware"
	"feedbacklens/internal/transport/ws"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	Config        *config.Config
	Pipeline      *service.Pipeline
	AuthService   *service.AuthService
	ReportService *service.ReportService
	Datasets      handler.DatasetIndex
	WSHub         *ws.Hub
	Logger        *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	analysisHandler := handler.NewAnalysisHandler(c.Pipeline, c.Config.DefaultFramework, c.Logger)
	modelHandler := handler.NewModelHandler(c.Pipeline)
	uploadHandler := handler.NewUploadHandler(c.Config.RawDataDir, c.Datasets, c.Logger)
	reportHandler := handler.NewReportHandler(c.ReportService)

	r.Use(requestLogger(c.Logger))

	api := r.PathPrefix(c.Config.APIPrefix).Subrouter()

	api.HandleFunc("/health", handler.Health).Methods("GET")
	api.HandleFunc("/models", modelHandler.List).Methods("GET")
	api.HandleFunc("/class-analysis", analysisHandler.ClassAnalysis).Methods("GET")
	api.HandleFunc("/group-analysis", analysisHandler.GroupAnalysis).Methods("GET")
	api.HandleFunc("/student-analysis", analysisHandler.StudentAnalysis).Methods("GET")
	api.HandleFunc("/compare-feedback", analysisHandler.CompareFeedback).Methods("GET")
	api.HandleFunc("/datasets", uploadHandler.Datasets).Methods("GET")
	api.HandleFunc("/reports", reportHandler.List).Methods("GET")
	api.HandleFunc("/reports/{id}", reportHandler.Get).Methods("GET")

	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.Logger)
		api.HandleFunc("/ws/progress/{progressId}", wsHandler.ProgressWS).Methods("GET")
	}

	// Upload is guarded only when host auth is enabled
	upload := http.Handler(http.HandlerFunc(uploadHandler.Upload))
	if c.AuthService != nil {
		authHandler := handler.NewAuthHandler(c.AuthService)
		api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
		upload = middleware.NewAuthMiddleware(c.AuthService).RequireHost(upload)
	}
	r.Handle("/upload", upload).Methods("POST")

	r.HandleFunc("/swagger/doc.json", swaggerDoc).Methods("GET")

	cr := cors.New(cors.Options{
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		AllowedMethods: c.Config.CORS.AllowedMethods,
		AllowedHeaders: c.Config.CORS.AllowedHeaders,
	})
	return cr.Handler(r)
}

func swaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// websocket upgrades need the raw writer
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
