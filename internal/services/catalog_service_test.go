package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-savings-platform/internal/catalog"
	"water-savings-platform/internal/models"
)

func newCatalogService() (*CatalogService, *fakeCityRepo, *fakeTariffRepo) {
	logger, m := testDeps()
	cities := newFakeCityRepo()
	tariffs := newFakeTariffRepo()
	return NewCatalogService(cities, tariffs, logger, m), cities, tariffs
}

func TestCatalogService_CreateCityValidates(t *testing.T) {
	svc, cities, _ := newCatalogService()

	err := svc.CreateCity(context.Background(), &models.City{Name: "X", ModuleCapacityKW: 0})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "module_capacity_kw", verr.Field)
	assert.Empty(t, cities.cities)

	city := &models.City{ID: 77, Name: " Natal ", State: "rn", ModuleCapacityKW: 150, Active: true}
	require.NoError(t, svc.CreateCity(context.Background(), city))
	assert.Equal(t, int64(1), city.ID)
	assert.Equal(t, "Natal", city.Name)
	assert.Equal(t, "RN", city.State)
}

func TestCatalogService_ActiveCities(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()
	require.NoError(t, svc.CreateCity(ctx, &models.City{Name: "A", ModuleCapacityKW: 1, Active: true}))
	require.NoError(t, svc.CreateCity(ctx, &models.City{Name: "B", ModuleCapacityKW: 1, Active: false}))

	active, err := svc.ActiveCities(ctx)

	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Name)
}

func TestCatalogService_UpdateCity(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()
	city := &models.City{Name: "A", ModuleCapacityKW: 1, Active: true}
	require.NoError(t, svc.CreateCity(ctx, city))

	city.Active = false
	require.NoError(t, svc.UpdateCity(ctx, city))
	got, err := svc.GetCity(ctx, city.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	city.EvaporationFanLogicPercent = 150
	assert.Error(t, svc.UpdateCity(ctx, city))
}

func TestCatalogService_SetTariffs(t *testing.T) {
	svc, _, _ := newCatalogService()
	ctx := context.Background()

	current, err := svc.SetTariffs(ctx, map[string]float64{
		models.TariffWaterPrice:    12,
		models.TariffSewagePercent: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, current.WaterPricePerM3)
	assert.Equal(t, 60.0, current.SewageTariffPercent)
	assert.Equal(t, 15.0, current.EquipmentLifetimeYears)

	_, err = svc.SetTariffs(ctx, map[string]float64{"discount": 1, models.TariffWaterPrice: 99})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	after, err := svc.CurrentTariffs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.0, after.WaterPricePerM3, "rejected batch must not be applied")

	rows, err := svc.ListTariffs(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCatalogService_ImportDefaultCatalogTwice(t *testing.T) {
	svc, cities, tariffs := newCatalogService()
	ctx := context.Background()
	cat := catalog.Default()

	result, err := svc.Import(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Cities), result.Cities)
	assert.Equal(t, len(models.TariffKeys), result.Tariffs)
	assert.Empty(t, result.Errors)

	_, err = svc.Import(ctx, cat)
	require.NoError(t, err)
	assert.Len(t, cities.cities, len(cat.Cities), "re-import must upsert, not duplicate")
	assert.Len(t, tariffs.values, len(models.TariffKeys))
	assert.Equal(t, float64(2*len(cat.Cities)), testutil.ToFloat64(svc.metrics.CatalogRecordsTotal.WithLabelValues("city")))
}

func TestCatalogService_ImportRecordsCityFailures(t *testing.T) {
	svc, cities, _ := newCatalogService()
	cities.failFor = "Recife"

	result, err := svc.Import(context.Background(), catalog.Default())

	require.NoError(t, err)
	assert.Equal(t, len(catalog.Default().Cities)-1, result.Cities)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Recife/PE")
}

func TestCatalogService_ImportFile(t *testing.T) {
	svc, cities, tariffs := newCatalogService()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "tariffs:\n  water_price_per_m3: 13\ncities:\n  - {name: Natal, state: RN, module_capacity_kw: 150}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	result, err := svc.ImportFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Cities)
	assert.Equal(t, 1, result.Tariffs)
	assert.Len(t, cities.cities, 1)
	assert.Equal(t, 13.0, tariffs.values[models.TariffWaterPrice])

	_, err = svc.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
