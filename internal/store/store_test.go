package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pronovic/vplan/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "vplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func testDocument(name string) model.PlanDocument {
	return model.PlanDocument{
		Version: "1.0.0",
		Plan: model.Plan{
			Name:        name,
			Location:    "Home",
			RefreshTime: "00:30",
			RefreshZone: "America/Chicago",
			Groups: []model.DeviceGroup{{
				Name:    "evening",
				Devices: []model.Device{{Room: "Living Room", Device: "Lamp"}},
				Triggers: []model.Trigger{{
					Days: []string{"all"}, OnTime: "sunset", OffTime: "23:00", Variation: "+/- 15 minutes",
				}},
			}},
		},
	}
}

func TestAccountLifecycle(t *testing.T) {
	s := testStore(t)

	_, err := s.Account()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutAccount(model.Account{PatToken: "token-1"}))
	account, err := s.Account()
	require.NoError(t, err)
	assert.Equal(t, "token-1", account.PatToken)

	// Put replaces the single account.
	require.NoError(t, s.PutAccount(model.Account{PatToken: "token-2"}))
	account, err = s.Account()
	require.NoError(t, err)
	assert.Equal(t, "token-2", account.PatToken)

	require.NoError(t, s.DeleteAccount())
	_, err = s.Account()
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing account is a no-op.
	assert.NoError(t, s.DeleteAccount())
}

func TestPlanLifecycle(t *testing.T) {
	s := testStore(t)

	names, err := s.PlanNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.CreatePlan(testDocument("zebra")))
	require.NoError(t, s.CreatePlan(testDocument("aardvark")))

	names, err = s.PlanNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"aardvark", "zebra"}, names)

	doc, err := s.Plan("zebra")
	require.NoError(t, err)
	assert.Equal(t, testDocument("zebra"), doc)

	// Plans start disabled.
	enabled, err := s.PlanEnabled("zebra")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, s.SetPlanEnabled("zebra", true))
	enabled, err = s.PlanEnabled("zebra")
	require.NoError(t, err)
	assert.True(t, enabled)

	// Updating keeps the enabled state.
	updated := testDocument("zebra")
	updated.Plan.Location = "Cabin"
	require.NoError(t, s.UpdatePlan(updated))
	doc, err = s.Plan("zebra")
	require.NoError(t, err)
	assert.Equal(t, "Cabin", doc.Plan.Location)
	enabled, err = s.PlanEnabled("zebra")
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.DeletePlan("zebra"))
	_, err = s.Plan("zebra")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePlanDuplicate(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.CreatePlan(testDocument("my-plan")))
	assert.ErrorIs(t, s.CreatePlan(testDocument("my-plan")), ErrExists)
}

func TestPlanNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Plan("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.UpdatePlan(testDocument("missing")), ErrNotFound)
	assert.ErrorIs(t, s.DeletePlan("missing"), ErrNotFound)
	assert.ErrorIs(t, s.SetPlanEnabled("missing", true), ErrNotFound)

	_, err = s.PlanEnabled("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
