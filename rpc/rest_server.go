package rpc

import (
	"bytes"
	"net/http"
	"time"

	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/alphabill-org/chainauthority/internal/metrics"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	headerContentType = "Content-Type"
	applicationJson   = "application/json"
	applicationCBOR   = "application/cbor"

	pathPrefixAPIv1 = "/api/v1"
)

var (
	log = logger.CreateForPackage()

	allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType}

	receivedRequestsMeter = metrics.GetOrRegisterCounter("rest/requests/received")
)

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)

	// accessLog writes the request log lines of the logging handler to the
	// package logger.
	accessLog struct{}
)

func NewRESTServer(addr string, maxBodySize int64, registrars ...Registrar) *http.Server {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	apiV1Router := r.PathPrefix(pathPrefixAPIv1).Subrouter()
	apiV1Router.Use(handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)), countRequests)

	for _, registrar := range registrars {
		registrar.Register(apiV1Router)
	}

	return &http.Server{
		Addr:              addr,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler:           handlers.LoggingHandler(accessLog{}, http.MaxBytesHandler(r, maxBodySize)),
	}
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		receivedRequestsMeter.Inc(1)
		next.ServeHTTP(w, req)
	})
}

func (accessLog) Write(p []byte) (int, error) {
	log.Debug("%s", bytes.TrimSpace(p))
	return len(p), nil
}
