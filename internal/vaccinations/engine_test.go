package vaccinations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyRecorder struct {
	appended []AdministrationRecord
	petIDs   []uuid.UUID
}

func (h *historyRecorder) AppendVaccination(_ context.Context, petID uuid.UUID, rec AdministrationRecord) error {
	h.appended = append(h.appended, rec)
	h.petIDs = append(h.petIDs, petID)
	return nil
}

func seedEntry(t *testing.T, repo *InMemoryRepository, doseCount int, interval string) *Vaccination {
	t.Helper()
	v := &Vaccination{
		ClinicID:     uuid.New(),
		ServiceID:    uuid.New(),
		SubServiceID: uuid.New(),
		Name:         "Rabies",
		PetTypes:     []string{"dog", "cat"},
		DoseCount:    doseCount,
		DoseInterval: interval,
	}
	require.NoError(t, repo.Upsert(context.Background(), v))
	return v
}

func TestProgressFinalDose(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 3, "4 weeks")
	engine := NewEngine(repo, nil, nil)

	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       v.ServiceID,
		Selection:       DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 3},
		AppointmentDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsCompleted)
	assert.Nil(t, rec.NextDueDate)
	assert.Equal(t, 3, rec.DoseNumber)
	assert.Contains(t, rec.Description, "series complete")
}

func TestProgressIntervalNextDue(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 3, "4 weeks")
	engine := NewEngine(repo, nil, nil)

	apptDate := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       v.ServiceID,
		Selection:       DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 1},
		AppointmentDate: apptDate,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.IsCompleted)
	require.NotNil(t, rec.NextDueDate)
	assert.Equal(t, apptDate.AddDate(0, 0, 28), *rec.NextDueDate)
}

func TestProgressExplicitFollowUpWins(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 2, "4 weeks")
	engine := NewEngine(repo, nil, nil)

	explicit := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       v.ServiceID,
		Selection:       DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 1},
		AppointmentDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		ExplicitNextDue: &explicit,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.NextDueDate)
	assert.Equal(t, explicit, *rec.NextDueDate)
}

func TestProgressZeroDateSkipsNextDue(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 2, "4 weeks")
	engine := NewEngine(repo, nil, nil)

	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID: v.ServiceID,
		Selection: DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.NextDueDate)
	assert.False(t, rec.IsCompleted)
}

func TestProgressAdHocFallback(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(), nil, nil)

	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID: uuid.New(),
		Selection: DoseSelection{
			SubServiceID: uuid.New(),
			DoseNumber:   2,
			VaccineName:  "Leptospirosis",
			TotalDoses:   2,
			DoseInterval: "3 weeks",
		},
		AppointmentDate: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Leptospirosis", rec.Name)
	assert.True(t, rec.IsCompleted)
}

func TestProgressNoMetadataSkips(t *testing.T) {
	engine := NewEngine(NewInMemoryRepository(), nil, nil)

	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       uuid.New(),
		Selection:       DoseSelection{SubServiceID: uuid.New(), DoseNumber: 1},
		AppointmentDate: time.Now(),
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestProgressMirrorsRegisteredPetHistory(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 1, "1 month")
	history := &historyRecorder{}
	engine := NewEngine(repo, history, nil)

	petID := uuid.New()
	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       v.ServiceID,
		Selection:       DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 1},
		AppointmentDate: time.Now(),
		PetID:           &petID,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, history.appended, 1)
	assert.Equal(t, petID, history.petIDs[0])
	assert.Equal(t, rec.Name, history.appended[0].Name)
}

func TestProgressDefaultIntervalOnUnparsable(t *testing.T) {
	repo := NewInMemoryRepository()
	v := seedEntry(t, repo, 2, "whenever")
	engine := NewEngine(repo, nil, nil)

	apptDate := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	rec, err := engine.Progress(context.Background(), ProgressInput{
		ServiceID:       v.ServiceID,
		Selection:       DoseSelection{SubServiceID: v.SubServiceID, DoseNumber: 1},
		AppointmentDate: apptDate,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.NextDueDate)
	assert.Equal(t, apptDate.AddDate(0, 1, 0), *rec.NextDueDate)
}
