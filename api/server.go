// Package api exposes the estimator over HTTP. It only ingests input,
// orchestrates the estimator and serializes output; no cost logic lives here.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/cloudestimate/cloud-estimate/estimator"
)

// Reference architecture used when GET /architecture omits parameters.
const (
	defaultRegion          = "us-east-1"
	defaultInstanceType    = "m6i.large"
	defaultInstanceCount   = 2
	defaultRDSInstanceType = "db.m6i.large"
	defaultEFSStorageGB    = 100.0
	defaultNATGateways     = 2
	defaultLoadBalancers   = 1
)

// Server routes architecture estimate requests.
type Server struct {
	estimator *estimator.Estimator
	writer    *estimator.ReportWriter
	router    *mux.Router
}

// NewServer wires the handlers. A nil writer disables report export.
func NewServer(est *estimator.Estimator, writer *estimator.ReportWriter) *Server {
	s := &Server{estimator: est, writer: writer, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestLogging)
	s.router.HandleFunc("/architecture", s.handleEstimate).Methods(http.MethodPost)
	s.router.HandleFunc("/architecture", s.handleEstimateQuery).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type estimateResponse struct {
	Breakdown       map[string]string `json:"breakdown"`
	TotalMonthlyUSD string            `json:"totalMonthlyUSD"`
	ExportedFile    string            `json:"exportedFile,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var model estimator.ArchitectureModel
	if err := json.NewDecoder(r.Body).Decode(&model); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.estimate(w, r, &model)
}

func (s *Server) handleEstimateQuery(w http.ResponseWriter, r *http.Request) {
	model, err := modelFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.estimate(w, r, model)
}

func (s *Server) estimate(w http.ResponseWriter, r *http.Request, model *estimator.ArchitectureModel) {
	est, err := s.estimator.Estimate(r.Context(), model)
	if err != nil {
		// Model problems are the client's fault; catalog lookups that fail
		// or come back empty are not.
		if estimator.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := estimateResponse{
		Breakdown:       est.Breakdown(),
		TotalMonthlyUSD: est.TotalString(),
	}
	if s.writer != nil {
		name, err := s.writer.Save(estimator.RenderReport(model, est))
		if err != nil {
			log.WithError(err).Error("failed to export report")
			writeError(w, http.StatusInternalServerError, "failed to export report")
			return
		}
		resp.ExportedFile = name
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// modelFromQuery maps the flat query parameters onto an architecture model,
// falling back to the fixed reference architecture for absent parameters.
func modelFromQuery(q url.Values) (*estimator.ArchitectureModel, error) {
	model := &estimator.ArchitectureModel{
		Metadata: estimator.Metadata{ProjectName: "reference-architecture", Region: defaultRegion},
	}
	if region := q.Get("region"); region != "" {
		model.Metadata.Region = region
	}

	instanceType := defaultInstanceType
	if v := q.Get("ec2"); v != "" {
		instanceType = v
	}
	quantity, err := intParam(q, "quantity", defaultInstanceCount)
	if err != nil {
		return nil, err
	}
	model.Compute.EC2 = estimator.EC2Specs{{InstanceType: instanceType, Quantity: quantity}}

	rds := defaultRDSInstanceType
	if v := q.Get("rds"); v != "" {
		rds = v
	}
	model.Database.RDS = &estimator.RDSSpec{InstanceType: rds}

	storageGB := defaultEFSStorageGB
	if v := q.Get("efs"); v != "" {
		storageGB, err = strconv.ParseFloat(v, 64)
		if err != nil || storageGB < 0 {
			return nil, fmt.Errorf("invalid efs storage %q", v)
		}
	}
	model.Storage.EFS = &estimator.EFSSpec{StorageGB: storageGB}

	nat, err := intParam(q, "nat", defaultNATGateways)
	if err != nil {
		return nil, err
	}
	alb, err := intParam(q, "alb", defaultLoadBalancers)
	if err != nil {
		return nil, err
	}
	model.Network.NATGateways = &nat
	model.Network.LoadBalancers = &alb

	return model, nil
}

func intParam(q url.Values, name string, fallback int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogging tags every request with an ID and logs its outcome.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"request_id": uuid.NewString(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Info("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
