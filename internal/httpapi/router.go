package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux; handlers check their own method.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)
	r.mux.ServeHTTP(w, req)
}

// RegisterReminderRoutes mounts the patient-side scan and intake endpoints.
func (r *Router) RegisterReminderRoutes(h *ReminderHandler) {
	r.Handle("/api/v1/scan", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.Scan(w, req)
	})
	r.Handle("/api/v1/scan/confirm", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.Confirm(w, req)
	})
	r.Handle("/api/v1/scan/reset", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.ResetScan(w, req)
	})

	r.Handle("/api/v1/intakes/today", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		h.Today(w, req)
	})
	r.Handle("/api/v1/intakes/taken", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.MarkTaken(w, req)
	})

	r.Handle("/api/v1/appointments", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.ScheduleAppointment(w, req)
	})

	r.Handle("/api/v1/medications", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.CreateMedication(w, req)
	})
	r.Handle("/api/v1/medications/", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodDelete) {
			return
		}
		id, ok := pathID(req.URL.Path, "/api/v1/medications/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.DeleteMedication(w, req, id)
	})

	r.Handle("/api/v1/permissions/exact", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodPost) {
			return
		}
		h.SetExactPermission(w, req)
	})
}

// RegisterCaregiverRoutes mounts the caregiver triage endpoints.
func (r *Router) RegisterCaregiverRoutes(h *CaregiverHandler) {
	r.Handle("/api/v1/patients/triage", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		h.GetTriage(w, req)
	})
	r.Handle("/api/v1/patients/triage.xlsx", func(w http.ResponseWriter, req *http.Request) {
		if !methodIs(w, req, http.MethodGet) {
			return
		}
		h.ExportTriage(w, req)
	})
}
