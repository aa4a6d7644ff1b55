package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrissnell/curekinetics/internal/store"
)

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.formatter.WriteResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listFits(w http.ResponseWriter, r *http.Request) {
	fits, err := s.fits.ListFits(r.Context())
	if err != nil {
		s.logger.Errorf("failed to list fits: %v", err)
		s.formatter.WriteError(w, r, http.StatusInternalServerError, "Failed to list fits", err)
		return
	}
	if fits == nil {
		fits = []store.FitRecord{}
	}
	s.formatter.WriteResponse(w, r, http.StatusOK, fits)
}

func (s *Server) getFit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fitID(w, r)
	if !ok {
		return
	}

	fit, err := s.fits.GetFit(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.formatter.WriteResponse(w, r, http.StatusOK, fit)
}

func (s *Server) getCurves(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fitID(w, r)
	if !ok {
		return
	}

	kind := r.URL.Query().Get("kind")
	switch kind {
	case "", store.KindExperimental, store.KindSimulated:
	default:
		s.formatter.WriteError(w, r, http.StatusBadRequest, "Unknown curve kind", nil)
		return
	}

	curves, err := s.fits.Curves(r.Context(), id, kind)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	if curves == nil {
		curves = []store.CurveRecord{}
	}
	s.formatter.WriteResponse(w, r, http.StatusOK, curves)
}

func (s *Server) fitID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.formatter.WriteError(w, r, http.StatusBadRequest, "Invalid fit ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.formatter.WriteError(w, r, http.StatusNotFound, "Fit not found", err)
		return
	}
	s.logger.Errorf("failed to read fit: %v", err)
	s.formatter.WriteError(w, r, http.StatusInternalServerError, "Failed to read fit", err)
}
