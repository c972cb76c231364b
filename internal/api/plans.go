package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/bher20/eratecompare/internal/importer"
	"github.com/bher20/eratecompare/internal/logger"
	"github.com/bher20/eratecompare/internal/rates"
	"github.com/bher20/eratecompare/internal/tariff"
)

// maxPlanBody bounds an uploaded plan document.
const maxPlanBody = 8 << 20

type validationResponse struct {
	ID         string           `json:"id"`
	Validation rates.Validation `json:"validation"`
}

type updateResponse struct {
	Plan       rates.PlanSummary `json:"plan"`
	Validation rates.Validation  `json:"validation"`
}

func (h *handler) listPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPlans(r.Context())
	if err != nil {
		logger.L.Errorw("api: list plans failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// importPlans accepts a plan, an array of plans, or {"plans": [...]}.
// ?replace=true overwrites plans with the same supplier and name.
func (h *handler) importPlans(w http.ResponseWriter, r *http.Request) {
	recs, err := importer.DecodePlans(http.MaxBytesReader(w, r.Body, maxPlanBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))

	res, err := h.svc.ImportPlans(r.Context(), recs, rates.ImportOptions{Replace: replace})
	if err != nil {
		logger.L.Errorw("api: import plans failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	code := http.StatusCreated
	if len(res.Accepted) == 0 {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, res)
}

func (h *handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	plan, err := h.svc.GetPlan(r.Context(), id)
	if h.planError(w, id, err) {
		return
	}
	writeJSON(w, http.StatusOK, importer.FromPlan(plan))
}

func (h *handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	recs, err := importer.DecodePlans(http.MaxBytesReader(w, r.Body, maxPlanBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(recs) != 1 {
		writeError(w, http.StatusBadRequest, "expected exactly one plan")
		return
	}
	sum, res, err := h.svc.UpdatePlan(r.Context(), id, recs[0])
	if errors.Is(err, rates.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code := http.StatusOK
	if res != tariff.Valid {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, updateResponse{Plan: sum, Validation: rates.NewValidation(res)})
}

func (h *handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.planError(w, id, h.svc.DeletePlan(r.Context(), id)) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) validatePlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.svc.ValidatePlan(r.Context(), id)
	if h.planError(w, id, err) {
		return
	}
	writeJSON(w, http.StatusOK, validationResponse{ID: id, Validation: rates.NewValidation(res)})
}

func (h *handler) validationCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(tariff.ValidationResults(), func(v tariff.ValidationResult, _ int) rates.Validation {
		return rates.NewValidation(v)
	}))
}

// planError writes the response for err and reports whether it did.
func (h *handler) planError(w http.ResponseWriter, id string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, rates.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan "+id+" not found")
	default:
		logger.L.Errorw("api: plan request failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
