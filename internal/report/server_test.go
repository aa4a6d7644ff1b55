package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/curekinetics/internal/store"
	"github.com/chrissnell/curekinetics/internal/types"
)

type fakeFits struct {
	fits   []store.FitRecord
	curves map[uuid.UUID][]store.CurveRecord
	err    error
}

func (f *fakeFits) ListFits(ctx context.Context) ([]store.FitRecord, error) {
	return f.fits, f.err
}

func (f *fakeFits) GetFit(ctx context.Context, id uuid.UUID) (store.FitRecord, error) {
	if f.err != nil {
		return store.FitRecord{}, f.err
	}
	for _, fit := range f.fits {
		if fit.ID == id {
			return fit, nil
		}
	}
	return store.FitRecord{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

func (f *fakeFits) Curves(ctx context.Context, id uuid.UUID, kind string) ([]store.CurveRecord, error) {
	if _, err := f.GetFit(ctx, id); err != nil {
		return nil, err
	}
	var out []store.CurveRecord
	for _, c := range f.curves[id] {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

var fitID = uuid.MustParse("6f1c2b9e-3d4a-4c1e-9a51-0b7f3e2d1c00")

func newFakeFits() *fakeFits {
	return &fakeFits{
		fits: []store.FitRecord{{
			ID:        fitID,
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Method:    "lm",
			Params:    types.KineticParameters{A1: 2e5, E1: 70000, A2: 4e4, E2: 55000, M: 0.9, N: 1.2},
		}},
		curves: map[uuid.UUID][]store.CurveRecord{
			fitID: {
				{FitID: fitID, RunName: "120C", Kind: store.KindExperimental, Alpha: []float64{0, 0.5}},
				{FitID: fitID, RunName: "120C", Kind: store.KindSimulated, Alpha: []float64{0, 0.49}},
			},
		},
	}
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		url  string
		err  error
		want int
	}{
		{"health", "/api/health", nil, http.StatusOK},
		{"list", "/api/fits", nil, http.StatusOK},
		{"get", "/api/fits/" + fitID.String(), nil, http.StatusOK},
		{"curves", "/api/fits/" + fitID.String() + "/curves", nil, http.StatusOK},
		{"invalid id", "/api/fits/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown id", "/api/fits/" + uuid.NewString(), nil, http.StatusNotFound},
		{"curves of unknown id", "/api/fits/" + uuid.NewString() + "/curves", nil, http.StatusNotFound},
		{"bad kind", "/api/fits/" + fitID.String() + "/curves?kind=raw", nil, http.StatusBadRequest},
		{"store failure", "/api/fits", errors.New("disk I/O error"), http.StatusInternalServerError},
		{"store failure on get", "/api/fits/" + fitID.String(), errors.New("disk I/O error"), http.StatusInternalServerError},
		{"unknown route", "/api/runs", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fits := newFakeFits()
			fits.err = tt.err
			rec := get(t, NewServer(fits, "", nil), tt.url)
			if rec.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d (body %s)", tt.url, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGetFitJSON(t *testing.T) {
	rec := get(t, NewServer(newFakeFits(), "", nil), "/api/fits/"+fitID.String())

	var fit store.FitRecord
	if err := json.NewDecoder(rec.Body).Decode(&fit); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if fit.ID != fitID || fit.Params.E2 != 55000 || fit.Method != "lm" {
		t.Errorf("fit = %+v", fit)
	}
}

func TestCurvesFilterAndMsgPack(t *testing.T) {
	rec := get(t, NewServer(newFakeFits(), "", nil),
		"/api/fits/"+fitID.String()+"/curves?kind=simulated&format=msgpack")

	if got := rec.Header().Get("Content-Type"); got != "application/x-msgpack" {
		t.Fatalf("Content-Type = %q", got)
	}
	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	var curves []store.CurveRecord
	if err := dec.Decode(&curves); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(curves) != 1 || curves[0].Kind != store.KindSimulated || curves[0].Alpha[1] != 0.49 {
		t.Errorf("curves = %+v", curves)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	rec := get(t, NewServer(&fakeFits{}, "", nil), "/api/fits")
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty array", body)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(newFakeFits(), "127.0.0.1:0", nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
