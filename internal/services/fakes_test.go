package services

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

func testDeps() (*logging.StructuredLogger, *metrics.Collector) {
	return logging.NewNopLogger(), metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

type fakeCityRepo struct {
	mu      sync.Mutex
	cities  map[int64]*models.City
	nextID  int64
	failFor string
}

func newFakeCityRepo(cities ...models.City) *fakeCityRepo {
	r := &fakeCityRepo{cities: map[int64]*models.City{}}
	for i := range cities {
		c := cities[i]
		r.nextID++
		if c.ID == 0 {
			c.ID = r.nextID
		}
		r.cities[c.ID] = &c
	}
	return r
}

func (r *fakeCityRepo) Create(_ context.Context, city *models.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	city.ID = r.nextID
	c := *city
	r.cities[c.ID] = &c
	return nil
}

func (r *fakeCityRepo) Get(_ context.Context, id int64) (*models.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cities[id]
	if !ok {
		return nil, &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(id, 10)}
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCityRepo) List(_ context.Context, filter repository.CityFilter) ([]*models.City, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.City{}
	for id := int64(1); id <= r.nextID; id++ {
		c, ok := r.cities[id]
		if !ok || (filter.Active != nil && c.Active != *filter.Active) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeCityRepo) Update(_ context.Context, city *models.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[city.ID]; !ok {
		return &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(city.ID, 10)}
	}
	c := *city
	r.cities[c.ID] = &c
	return nil
}

func (r *fakeCityRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cities, id)
	return nil
}

func (r *fakeCityRepo) Upsert(_ context.Context, city *models.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if city.Name == r.failFor {
		return fakeError("upsert failed")
	}
	for id, c := range r.cities {
		if c.Name == city.Name && c.State == city.State {
			city.ID = id
			cp := *city
			r.cities[id] = &cp
			return nil
		}
	}
	r.nextID++
	city.ID = r.nextID
	cp := *city
	r.cities[city.ID] = &cp
	return nil
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

type fakeTariffRepo struct {
	mu     sync.Mutex
	values map[string]float64
	err    error
}

func newFakeTariffRepo() *fakeTariffRepo {
	return &fakeTariffRepo{values: map[string]float64{}}
}

func (r *fakeTariffRepo) GetCurrent(ctx context.Context) (calculator.TariffConstants, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return calculator.TariffConstants{}, err
	}
	t, _ := models.ResolveTariffs(rows)
	return t, nil
}

func (r *fakeTariffRepo) List(context.Context) ([]models.TariffEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rows := []models.TariffEntry{}
	for _, k := range models.TariffKeys {
		if v, ok := r.values[k]; ok {
			rows = append(rows, models.TariffEntry{Key: k, Value: v})
		}
	}
	return rows, nil
}

func (r *fakeTariffRepo) Set(_ context.Context, key string, value float64) (*models.TariffEntry, error) {
	if err := models.ValidateTariff(key, value); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return &models.TariffEntry{Key: key, Value: value}, nil
}

func (r *fakeTariffRepo) SetMany(_ context.Context, entries []models.TariffEntry) error {
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

type fakeLeadRepo struct {
	mu              sync.Mutex
	saved           []*models.LeadSummary
	sims            map[uuid.UUID]*models.Simulation
	saveErr         error
	statsErr        error
	lastStatsFilter repository.LeadFilter
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{sims: map[uuid.UUID]*models.Simulation{}}
}

func (r *fakeLeadRepo) Save(_ context.Context, lead *models.Lead, sim *models.Simulation) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lead.ID = uuid.New()
	sim.LeadID = lead.ID
	sim.ID = int64(len(r.saved) + 1)
	r.saved = append(r.saved, &models.LeadSummary{
		Lead:                   *lead,
		Modules:                &sim.Modules,
		YearlyDifferenceLiters: &sim.YearlyDifferenceLiters,
		AnnualSavingsCurrency:  &sim.AnnualSavingsCurrency,
		PaysBack:               &sim.PaysBack,
		PaybackYears:           &sim.PaybackYears,
	})
	r.sims[lead.ID] = sim
	return nil
}

func (r *fakeLeadRepo) Get(_ context.Context, id uuid.UUID) (*models.LeadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.saved {
		if l.ID == id {
			return &models.LeadRecord{Lead: l.Lead, CityName: l.CityName, Simulation: r.sims[id]}, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "lead", ID: id.String()}
}

func (r *fakeLeadRepo) List(_ context.Context, filter repository.LeadFilter) ([]*models.LeadSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.saved)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return r.saved[start:end], total, nil
}

func (r *fakeLeadRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.saved {
		if l.ID == id {
			r.saved = append(r.saved[:i], r.saved[i+1:]...)
			return nil
		}
	}
	return &repository.NotFoundError{Resource: "lead", ID: id.String()}
}

func (r *fakeLeadRepo) Statistics(_ context.Context, filter repository.LeadFilter) ([]*models.CityLeadStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastStatsFilter = filter
	if r.statsErr != nil {
		return nil, r.statsErr
	}
	byCity := map[int64]*models.CityLeadStatistics{}
	paybackSums := map[int64]float64{}
	var rows []*models.CityLeadStatistics
	for _, l := range r.saved {
		row, ok := byCity[l.CityID]
		if !ok {
			row = &models.CityLeadStatistics{CityID: l.CityID}
			byCity[l.CityID] = row
			rows = append(rows, row)
		}
		row.LeadCount++
		if l.Modules != nil {
			row.SimulationCount++
			row.TotalModules += *l.Modules
			row.TotalYearlyDifferenceLiters += *l.YearlyDifferenceLiters
			row.TotalAnnualSavingsCurrency += *l.AnnualSavingsCurrency
			if !*l.PaysBack {
				row.NonPayingCount++
				continue
			}
			paybackSums[l.CityID] += *l.PaybackYears
			avg := paybackSums[l.CityID] / float64(row.SimulationCount-row.NonPayingCount)
			row.AvgPaybackYears = &avg
		}
	}
	return rows, nil
}

type dispatchedEvent struct {
	event   string
	payload interface{}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event string, payload interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, dispatchedEvent{event: event, payload: payload})
}

type fakeWebhookRepo struct {
	mu     sync.Mutex
	hooks  []*models.Webhook
	logs   []*models.WebhookLog
	logErr error
}

func (r *fakeWebhookRepo) Create(_ context.Context, hook *models.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook.ID = int64(len(r.hooks) + 1)
	r.hooks = append(r.hooks, hook)
	return nil
}

func (r *fakeWebhookRepo) Get(_ context.Context, id int64) (*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hooks {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "webhook", ID: strconv.FormatInt(id, 10)}
}

func (r *fakeWebhookRepo) List(context.Context) ([]*models.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Webhook(nil), r.hooks...), nil
}

func (r *fakeWebhookRepo) ListActiveForEvent(_ context.Context, event string) ([]*models.Webhook, error) {
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

func (r *fakeWebhookRepo) Update(context.Context, *models.Webhook) error { return nil }

func (r *fakeWebhookRepo) Delete(context.Context, int64) error { return nil }

func (r *fakeWebhookRepo) LogDelivery(_ context.Context, entry *models.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr != nil {
		return r.logErr
	}
	entry.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeWebhookRepo) ListLogs(_ context.Context, webhookID int64, _ int) ([]*models.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WebhookLog
	for _, l := range r.logs {
		if l.WebhookID == webhookID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) logsByWebhook() map[int64]*models.WebhookLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]*models.WebhookLog{}
	for _, l := range r.logs {
		out[l.WebhookID] = l
	}
	return out
}
