package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/catalog"
	"water-savings-platform/internal/config"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

type memCities struct {
	mu         sync.Mutex
	cities     map[int64]*models.City
	nextID     int64
	referenced map[int64]bool
}

func (r *memCities) Create(_ context.Context, city *models.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cities {
		if c.Name == city.Name && c.State == city.State {
			return &repository.ConflictError{Resource: "city", Message: "already exists"}
		}
	}
	r.nextID++
	city.ID = r.nextID
	cp := *city
	r.cities[city.ID] = &cp
	return nil
}

func (r *memCities) Get(_ context.Context, id int64) (*models.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cities[id]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(id, 10)}
	}
	cp := *c
	return &cp, nil
}

func (r *memCities) List(_ context.Context, filter repository.CityFilter) ([]*models.City, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.City{}
	for _, c := range r.cities {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		if filter.State != nil && c.State != *filter.State {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return out[start:end], total, nil
}

func (r *memCities) Update(_ context.Context, city *models.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[city.ID]; !ok {
		return &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(city.ID, 10)}
	}
	cp := *city
	r.cities[city.ID] = &cp
	return nil
}

func (r *memCities) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[id]; !ok {
		return &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(id, 10)}
	}
	if r.referenced[id] {
		return &repository.ConflictError{Resource: "city", Message: "is still referenced by other records"}
	}
	delete(r.cities, id)
	return nil
}

func (r *memCities) Upsert(ctx context.Context, city *models.City) error {
	return r.Create(ctx, city)
}

type memTariffs struct {
	mu     sync.Mutex
	values map[string]float64
}

func (r *memTariffs) GetCurrent(ctx context.Context) (calculator.TariffConstants, error) {
	rows, _ := r.List(ctx)
	t, _ := models.ResolveTariffs(rows)
	return t, nil
}

func (r *memTariffs) List(context.Context) ([]models.TariffEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := []models.TariffEntry{}
	for _, k := range models.TariffKeys {
		if v, ok := r.values[k]; ok {
			rows = append(rows, models.TariffEntry{Key: k, Value: v})
		}
	}
	return rows, nil
}

func (r *memTariffs) Set(ctx context.Context, key string, value float64) (*models.TariffEntry, error) {
	entry := models.TariffEntry{Key: key, Value: value}
	if err := r.SetMany(ctx, []models.TariffEntry{entry}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *memTariffs) SetMany(_ context.Context, entries []models.TariffEntry) error {
	for _, e := range entries {
		if err := models.ValidateTariff(e.Key, e.Value); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.values[e.Key] = e.Value
	}
	return nil
}

type memLeads struct {
	mu    sync.Mutex
	leads []*models.LeadSummary
	sims  map[uuid.UUID]*models.Simulation
}

func (r *memLeads) Save(_ context.Context, lead *models.Lead, sim *models.Simulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now().UTC()
	sim.LeadID = lead.ID
	r.leads = append(r.leads, &models.LeadSummary{Lead: *lead, Modules: &sim.Modules})
	r.sims[lead.ID] = sim
	return nil
}

func (r *memLeads) Get(_ context.Context, id uuid.UUID) (*models.LeadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leads {
		if l.ID == id {
			return &models.LeadRecord{Lead: l.Lead, Simulation: r.sims[id]}, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "lead", ID: id.String()}
}

func (r *memLeads) List(_ context.Context, filter repository.LeadFilter) ([]*models.LeadSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.LeadSummary{}
	for _, l := range r.leads {
		if filter.CityID != nil && l.CityID != *filter.CityID {
			continue
		}
		out = append(out, l)
	}
	total := len(out)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return out[start:end], total, nil
}

func (r *memLeads) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.leads {
		if l.ID == id {
			r.leads = append(r.leads[:i], r.leads[i+1:]...)
			return nil
		}
	}
	return &repository.NotFoundError{Resource: "lead", ID: id.String()}
}

func (r *memLeads) Statistics(_ context.Context, filter repository.LeadFilter) ([]*models.CityLeadStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCity := map[int64]*models.CityLeadStatistics{}
	rows := []*models.CityLeadStatistics{}
	for _, l := range r.leads {
		if filter.CityID != nil && l.CityID != *filter.CityID {
			continue
		}
		row, ok := byCity[l.CityID]
		if !ok {
			row = &models.CityLeadStatistics{CityID: l.CityID}
			byCity[l.CityID] = row
			rows = append(rows, row)
		}
		row.LeadCount++
		if sim := r.sims[l.ID]; sim != nil {
			row.SimulationCount++
			row.TotalModules += sim.Modules
			row.TotalYearlyDifferenceLiters += sim.YearlyDifferenceLiters
			if !sim.PaysBack {
				row.NonPayingCount++
			}
		}
	}
	return rows, nil
}

type memWebhooks struct {
	mu    sync.Mutex
	hooks map[int64]*models.Webhook
	logs  []*models.WebhookLog
}

func (r *memWebhooks) Create(_ context.Context, hook *models.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook.ID = int64(len(r.hooks) + 1)
	cp := *hook
	r.hooks[hook.ID] = &cp
	return nil
}

func (r *memWebhooks) Get(_ context.Context, id int64) (*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hooks[id]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "webhook", ID: strconv.FormatInt(id, 10)}
	}
	cp := *h
	return &cp, nil
}

func (r *memWebhooks) List(context.Context) ([]*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Webhook{}
	for id := int64(1); id <= int64(len(r.hooks)); id++ {
		if h, ok := r.hooks[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memWebhooks) ListActiveForEvent(_ context.Context, event string) ([]*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Webhook
	for _, h := range r.hooks {
		if h.Active && h.Subscribes(event) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memWebhooks) Update(_ context.Context, hook *models.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[hook.ID]; !ok {
		return &repository.NotFoundError{Resource: "webhook", ID: strconv.FormatInt(hook.ID, 10)}
	}
	cp := *hook
	r.hooks[hook.ID] = &cp
	return nil
}

func (r *memWebhooks) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[id]; !ok {
		return &repository.NotFoundError{Resource: "webhook", ID: strconv.FormatInt(id, 10)}
	}
	delete(r.hooks, id)
	return nil
}

func (r *memWebhooks) LogDelivery(_ context.Context, entry *models.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, entry)
	return nil
}

func (r *memWebhooks) ListLogs(_ context.Context, webhookID int64, limit int) ([]*models.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.WebhookLog{}
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].WebhookID == webhookID {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

type testServer struct {
	router     *mux.Router
	cities     *memCities
	tariffs    *memTariffs
	leads      *memLeads
	webhooks   *memWebhooks
	dispatcher *services.WebhookDispatcher
	metrics    *metrics.Collector
}

// newTestServer wires every handler over in-memory repositories seeded from the
// embedded default catalog
func newTestServer(t *testing.T, health HealthChecker) *testServer {
	t.Helper()

	logger := logging.NewNopLogger()
	m := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	cat := catalog.Default()

	ts := &testServer{
		cities:   &memCities{cities: map[int64]*models.City{}, referenced: map[int64]bool{}},
		tariffs:  &memTariffs{values: map[string]float64{}},
		leads:    &memLeads{sims: map[uuid.UUID]*models.Simulation{}},
		webhooks: &memWebhooks{hooks: map[int64]*models.Webhook{}},
		metrics:  m,
	}
	for _, c := range cat.Cities {
		c := c
		ts.cities.cities[c.ID] = &c
		ts.cities.nextID = max(ts.cities.nextID, c.ID)
	}
	for _, e := range cat.TariffEntries() {
		ts.tariffs.values[e.Key] = e.Value
	}

	ts.dispatcher = services.NewWebhookDispatcher(ts.webhooks, nil, config.WebhookConfig{
		Timeout:     2 * time.Second,
		MaxLogBody:  256,
		UserAgent:   "water-savings-test",
		MaxInFlight: 2,
	}, logger, m)
	t.Cleanup(ts.dispatcher.Wait)

	catalogService := services.NewCatalogService(ts.cities, ts.tariffs, logger, m)
	simulations := services.NewSimulationService(ts.cities, ts.tariffs, logger, m)
	leadService := services.NewLeadService(simulations, ts.leads, ts.dispatcher, logger, m)
	exportService := services.NewExportService(ts.leads, logger, m)
	statsService := services.NewStatisticsService(ts.leads, logger, m)
	webhookService := services.NewWebhookService(ts.webhooks, ts.dispatcher, logger)

	ts.router = NewRouter(
		NewPublicHandler(simulations, leadService, catalogService, health, logger, m),
		NewAdminHandler(catalogService, leadService, exportService, statsService, webhookService, logger, m),
		logger, m,
	)
	return ts
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}
