package api

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/bher20/eratecompare/internal/importer"
	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/tariff"
)

// maxUsageBody bounds an uploaded usage series.
const maxUsageBody = 32 << 20

// runComparison costs a usage series against the catalogue. The body is a
// JSON rates.ComparisonRequest, or a usage CSV when Content-Type is
// text/csv, in which case the scenario and window come from the query
// string (scenario, name, inverter, from, to).
func (h *handler) runComparison(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUsageBody)

	var req rates.ComparisonRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/csv" {
		readings, err := importer.ReadUsageCSV(body, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req, err = requestFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Readings = readings
	} else if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode comparison request: "+err.Error())
		return
	}

	res, err := h.svc.RunComparison(r.Context(), req)
	if errors.Is(err, rates.ErrNoReadings) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.L.Errorw("api: comparison failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) getComparison(w http.ResponseWriter, r *http.Request) {
	run := r.PathValue("run")
	res, err := h.svc.GetComparison(r.Context(), run)
	if err != nil {
		logger.L.Errorw("api: load comparison failed", "run_id", run, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(res) == 0 {
		writeError(w, http.StatusNotFound, "comparison "+run+" not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func requestFromQuery(r *http.Request) (rates.ComparisonRequest, error) {
	q := r.URL.Query()
	req := rates.ComparisonRequest{
		Scenario: tariff.Scenario{ID: q.Get("scenario"), Name: q.Get("name")},
		PlanIDs:  q["plan"],
	}
	if v := q.Get("inverter"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.New("inverter must be a boolean")
		}
		req.Scenario.HasInverter = b
	}
	for key, dst := range map[string]*time.Time{"from": &req.Window.From, "to": &req.Window.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, errors.New(key + " must be an RFC 3339 timestamp")
		}
		*dst = t
	}
	return req, nil
}
