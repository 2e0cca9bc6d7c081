package carbon_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/carbonstats/pkg/carbon"
	"github.com/Sumatoshi-tech/carbonstats/pkg/geo"
	"github.com/Sumatoshi-tech/carbonstats/pkg/scan"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
	"github.com/Sumatoshi-tech/carbonstats/pkg/store/storetest"
)

func scenarioStore() *storetest.Memory {
	mem := storetest.New()
	mem.Put(store.DefaultProjectsCollection,
		store.Row{"project_id": "p1", "country": "Brazil", "category": "forest", "name": "Amazon"},
		store.Row{"project_id": "p2", "country": "Brazil", "category": "energy", "name": "Wind"},
		store.Row{"project_id": "p3", "country": "Mars", "category": "forest", "name": "Olympus"},
	)
	mem.Put(store.DefaultCreditsCollection,
		store.Row{"project_id": "p1", "quantity": 10, "vintage": 2023},
		store.Row{"project_id": "p4", "quantity": 5, "vintage": 2024},
	)

	return mem
}

func TestEngine_Scenario(t *testing.T) {
	t.Parallel()

	engine, err := carbon.NewEngine(scenarioStore(), geo.Default(), carbon.EngineOptions{PageSize: 2})
	require.NoError(t, err)

	result, err := engine.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProjects)
	assert.Equal(t, int64(15), result.TotalCredits)
	assert.Equal(t, map[string]int64{"Brazil": 10}, result.CreditsByCountry)
	assert.Equal(t, map[string]int64{"2023": 10, "2024": 5}, result.VintageStats)
}

// A store that caps responses at 1000 rows must still yield every row.
func TestEngine_ReadsPastRowCap(t *testing.T) {
	t.Parallel()

	const n = 2500

	mem := storetest.New()
	mem.RowCap = store.DefaultRowCap

	projects := make([]store.Row, n)
	credits := make([]store.Row, n)

	for i := range n {
		id := fmt.Sprintf("p%04d", i)
		projects[i] = store.Row{"project_id": id, "country": "Kenya", "category": "forest"}
		credits[i] = store.Row{"project_id": id, "quantity": 2, "vintage": 2020 + i%3}
	}

	mem.Put(store.DefaultProjectsCollection, projects...)
	mem.Put(store.DefaultCreditsCollection, credits...)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			t.Parallel()

			engine, err := carbon.NewEngine(mem, nil, carbon.EngineOptions{Workers: workers})
			require.NoError(t, err)

			result, err := engine.Compute(context.Background())
			require.NoError(t, err)

			assert.Equal(t, n, result.TotalProjects)
			assert.Equal(t, n, result.ForestProjects)
			assert.Equal(t, map[string]int{"Africa": n}, result.ContinentStats)
			assert.Equal(t, int64(2*n), result.TotalCredits)
			assert.Equal(t, map[string]int64{"Kenya": 2 * n}, result.CreditsByCountry)
		})
	}
}

func TestEngine_PageErrorAborts(t *testing.T) {
	t.Parallel()

	mem := scenarioStore()
	mem.Append(store.DefaultCreditsCollection,
		store.Row{"project_id": "p1", "quantity": 1},
		store.Row{"project_id": "p1", "quantity": 1},
	)
	// Projects end at offset 3, so only the credits scan reaches offset 4.
	mem.FailOffset = 4

	engine, err := carbon.NewEngine(mem, nil, carbon.EngineOptions{PageSize: 2})
	require.NoError(t, err)

	result, err := engine.Compute(context.Background())
	require.ErrorIs(t, err, storetest.ErrInjected)
	assert.Nil(t, result)

	var pageErr *scan.PageError

	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, store.DefaultCreditsCollection, pageErr.Collection)
	assert.Equal(t, 2, pageErr.Page)
}

func TestEngine_CustomCollections(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	mem.Put("projects_v2", store.Row{"project_id": "x", "country": "Japan", "category": "energy"})
	mem.Put("credits_v2")

	engine, err := carbon.NewEngine(mem, nil, carbon.EngineOptions{
		ProjectsCollection: "projects_v2",
		CreditsCollection:  "credits_v2",
	})
	require.NoError(t, err)

	result, err := engine.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Asia": 1}, result.ContinentStats)
}

func TestEngine_UnknownCollection(t *testing.T) {
	t.Parallel()

	engine, err := carbon.NewEngine(storetest.New(), nil, carbon.EngineOptions{})
	require.NoError(t, err)

	_, err = engine.Compute(context.Background())
	require.ErrorIs(t, err, store.ErrUnknownCollection)
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	_, err := carbon.NewEngine(nil, nil, carbon.EngineOptions{})
	require.ErrorIs(t, err, carbon.ErrNoReader)

	_, err = carbon.NewEngine(storetest.New(), nil, carbon.EngineOptions{PageSize: -1})
	require.ErrorIs(t, err, scan.ErrInvalidPageSize)
}
