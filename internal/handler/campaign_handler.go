package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
	"github.com/apexcrm/campaign-manager/internal/service"
)

type CampaignHandler struct {
	Service *service.CampaignService
	Log     zerolog.Logger
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string               `json:"name"`
		AudienceFilter model.AudienceFilter `json:"audience_filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}

	campaign, err := h.Service.CreateCampaign(r.Context(), body.Name, body.AudienceFilter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Service.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	campaign, err := h.Service.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) AppendAudience(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	var body struct {
		CustomerIDs []int `json:"customer_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}

	campaign, err := h.Service.AppendAudience(r.Context(), id, body.CustomerIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// Dispatch accepts the batch for asynchronous processing; 202 means the
// broker holds the tasks, not that anything was delivered yet.
func (h *CampaignHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	var body struct {
		MessageTemplate string `json:"message_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}

	result, err := h.Service.Dispatch(r.Context(), id, body.MessageTemplate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (h *CampaignHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	logs, err := h.Service.ListLogs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *CampaignHandler) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	campaignIDVal, err := strconv.Atoi(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid campaign id"))
		return
	}
	logID, err := strconv.Atoi(chi.URLParam(r, "logID"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid log id"))
		return
	}

	var body struct {
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, appErrors.NewValidation("invalid request body: %v", err))
		return
	}

	entry, err := h.Service.UpdateDeliveryStatus(r.Context(), campaignIDVal, logID, body.DeliveryStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func campaignID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, appErrors.NewValidation("invalid campaign id"))
		return 0, false
	}
	return id, true
}
