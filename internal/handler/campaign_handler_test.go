package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/handler"
	"github.com/apexcrm/campaign-manager/internal/metrics"
	"github.com/apexcrm/campaign-manager/internal/model"
	"github.com/apexcrm/campaign-manager/internal/queue"
	"github.com/apexcrm/campaign-manager/internal/service"
)

// --- Mocks ---

type mockCustomerRepo struct {
	customers []model.Customer
}

func (m *mockCustomerRepo) Create(ctx context.Context, c *model.Customer) error { return nil }
func (m *mockCustomerRepo) GetByID(ctx context.Context, id int) (*model.Customer, error) {
	return nil, appErrors.NewCustomerNotFound(id)
}
func (m *mockCustomerRepo) ListAll(ctx context.Context) ([]model.Customer, error) {
	return m.customers, nil
}
func (m *mockCustomerRepo) Delete(ctx context.Context, id int) error { return nil }
func (m *mockCustomerRepo) FilterIDs(ctx context.Context, filter model.AudienceFilter) ([]int, error) {
	ids := []int{}
	for _, c := range m.customers {
		if filter.MinTotalSpend == nil || c.TotalSpend >= *filter.MinTotalSpend {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

type mockCampaignRepo struct {
	campaign *model.Campaign
	members  []model.AudienceMember
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign, audienceIDs []int) error {
	c.ID = 1
	c.AudienceSize = len(audienceIDs)
	c.CreatedAt = time.Now()
	m.campaign = c
	return nil
}
func (m *mockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	if m.campaign == nil || m.campaign.ID != id {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return m.campaign, nil
}
func (m *mockCampaignRepo) List(ctx context.Context) ([]model.Campaign, error) {
	if m.campaign == nil {
		return []model.Campaign{}, nil
	}
	return []model.Campaign{*m.campaign}, nil
}
func (m *mockCampaignRepo) AppendAudience(ctx context.Context, campaignID int, customerIDs []int) (*model.Campaign, error) {
	if m.campaign == nil || m.campaign.ID != campaignID {
		return nil, appErrors.NewCampaignNotFound(campaignID)
	}
	return m.campaign, nil
}
func (m *mockCampaignRepo) GetAudienceDetail(ctx context.Context, campaignID int) ([]model.AudienceMember, error) {
	return m.members, nil
}

type mockLogRepo struct {
	logs map[int]*model.CommunicationsLog
}

func (m *mockLogRepo) RecordOutcome(ctx context.Context, entry *model.CommunicationsLog) (bool, error) {
	return true, nil
}
func (m *mockLogRepo) ListByCampaign(ctx context.Context, campaignID int) ([]model.CommunicationsLog, error) {
	out := []model.CommunicationsLog{}
	for _, l := range m.logs {
		if l.CampaignID == campaignID {
			out = append(out, *l)
		}
	}
	return out, nil
}
func (m *mockLogRepo) UpdateDeliveryStatus(ctx context.Context, campaignID, logID int, status string) (*model.CommunicationsLog, error) {
	if err := model.ValidateDeliveryStatus(status); err != nil {
		return nil, err
	}
	l, ok := m.logs[logID]
	if !ok || l.CampaignID != campaignID {
		return nil, appErrors.NewLogNotFound(logID)
	}
	l.DeliveryStatus = status
	return l, nil
}

func newRouter(customers *mockCustomerRepo, campaigns *mockCampaignRepo, logs *mockLogRepo) chi.Router {
	svc := &service.CampaignService{
		CampaignRepo: campaigns,
		CustomerRepo: customers,
		LogRepo:      logs,
		Queue:        queue.NewInMemoryQueue(64),
		Metrics:      metrics.New(),
		Log:          zerolog.Nop(),
	}
	h := &handler.CampaignHandler{Service: svc, Log: zerolog.Nop()}

	r := chi.NewRouter()
	r.Get("/campaigns", h.ListCampaigns)
	r.Post("/campaigns", h.CreateCampaign)
	r.Get("/campaigns/{id}", h.GetCampaign)
	r.Post("/campaigns/{id}/audience", h.AppendAudience)
	r.Post("/campaigns/{id}/send", h.Dispatch)
	r.Get("/campaigns/{id}/logs", h.ListLogs)
	r.Patch("/campaigns/{campaignID}/logs/{logID}", h.UpdateDeliveryStatus)
	return r
}

// --- Tests ---

func TestCreateCampaignEndpoint(t *testing.T) {
	customers := &mockCustomerRepo{customers: []model.Customer{
		{ID: 1, TotalSpend: 600},
		{ID: 2, TotalSpend: 100},
	}}
	r := newRouter(customers, &mockCampaignRepo{}, &mockLogRepo{})

	body, _ := json.Marshal(map[string]any{
		"name": "big spenders",
		"audience_filter": map[string]any{
			"min_total_spend": 500,
			"logic":           "AND",
		},
	})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var c model.Campaign
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if c.AudienceSize != 1 {
		t.Errorf("expected audience size 1, got %d", c.AudienceSize)
	}
}

func TestCreateCampaignBadLogic(t *testing.T) {
	r := newRouter(&mockCustomerRepo{}, &mockCampaignRepo{}, &mockLogRepo{})

	body := []byte(`{"name":"c","audience_filter":{"logic":"XOR"}}`)
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	r := newRouter(&mockCustomerRepo{}, &mockCampaignRepo{}, &mockLogRepo{})

	req := httptest.NewRequest("GET", "/campaigns/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDispatchEndpointAccepts(t *testing.T) {
	campaigns := &mockCampaignRepo{
		campaign: &model.Campaign{ID: 1, Name: "c", AudienceSize: 2},
		members: []model.AudienceMember{
			{ID: 1, Name: "Ann", Email: "a@x.com"},
			{ID: 2, Name: "Bob", Email: "b@x.com"},
		},
	}
	r := newRouter(&mockCustomerRepo{}, campaigns, &mockLogRepo{})

	body := []byte(`{"message_template":"Hi {{name}}!"}`)
	req := httptest.NewRequest("POST", "/campaigns/1/send", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var result service.DispatchResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.TasksQueued != 2 {
		t.Errorf("expected 2 tasks queued, got %d", result.TasksQueued)
	}
}

func TestUpdateDeliveryStatusEndpoint(t *testing.T) {
	logs := &mockLogRepo{logs: map[int]*model.CommunicationsLog{
		7: {ID: 7, CampaignID: 1, Status: model.StatusSent, DeliveryStatus: model.DeliveryPending},
	}}
	r := newRouter(&mockCustomerRepo{}, &mockCampaignRepo{campaign: &model.Campaign{ID: 1}}, logs)

	// Invalid status rejected with 400, row unchanged.
	body := []byte(`{"delivery_status":"UNKNOWN"}`)
	req := httptest.NewRequest("PATCH", "/campaigns/1/logs/7", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if logs.logs[7].DeliveryStatus != model.DeliveryPending {
		t.Error("rejected update must not modify the row")
	}

	// Valid correction succeeds.
	body = []byte(`{"delivery_status":"DELIVERED"}`)
	req = httptest.NewRequest("PATCH", "/campaigns/1/logs/7", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Missing row is 404.
	body = []byte(`{"delivery_status":"DELIVERED"}`)
	req = httptest.NewRequest("PATCH", "/campaigns/1/logs/99", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListLogsEndpoint(t *testing.T) {
	logs := &mockLogRepo{logs: map[int]*model.CommunicationsLog{
		1: {ID: 1, CampaignID: 1, CustomerID: 3, Status: model.StatusSent, DeliveryStatus: model.DeliveryDelivered},
		2: {ID: 2, CampaignID: 1, CustomerID: 4, Status: model.StatusFailed, DeliveryStatus: model.DeliveryFailed},
	}}
	r := newRouter(&mockCustomerRepo{}, &mockCampaignRepo{campaign: &model.Campaign{ID: 1}}, logs)

	req := httptest.NewRequest("GET", "/campaigns/1/logs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []model.CommunicationsLog
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 log rows, got %d", len(got))
	}
}
