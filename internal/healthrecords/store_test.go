package healthrecords

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

func TestStoreCreateRecordReportsInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	rec := &HealthRecord{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		ClinicID:      uuid.New(),
		PetName:       "Rex",
		Species:       "dog",
		VisitDate:     time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
		Services:      []ServiceEntry{{SubServiceName: "Rabies", Cost: 40}},
	}

	mock.ExpectExec("INSERT INTO health_records").
		WithArgs(rec.ID, rec.AppointmentID, rec.ClinicID, rec.PetID, "Rex", "dog",
			rec.VisitDate, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			rec.FollowUpDate, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := store.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on fresh insert")
	}

	// A duplicate appointment id is absorbed by the unique constraint.
	mock.ExpectExec("INSERT INTO health_records").
		WithArgs(rec.ID, rec.AppointmentID, rec.ClinicID, rec.PetID, "Rex", "dog",
			rec.VisitDate, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			rec.FollowUpDate, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err = store.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	if created {
		t.Fatal("expected created=false on conflict")
	}
}

func TestStoreGetByAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	appointmentID := uuid.New()
	services, _ := json.Marshal([]ServiceEntry{{SubServiceName: "Rabies", Cost: 40}})
	vaccs, _ := json.Marshal(nil)
	labIDs, _ := json.Marshal([]uuid.UUID{uuid.New()})

	mock.ExpectQuery("SELECT (.+) FROM health_records WHERE appointment_id").
		WithArgs(appointmentID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "clinic_id", "pet_id", "pet_name", "species", "visit_date",
			"services", "vaccinations", "lab_test_ids", "follow_up_date", "follow_up_notes",
			"created_at", "updated_at",
		}).AddRow(uuid.New(), appointmentID, uuid.New(), nil, "Rex", "dog", time.Now(),
			services, vaccs, labIDs, nil, "", time.Now(), time.Now()))

	rec, err := store.GetByAppointment(context.Background(), appointmentID)
	if err != nil {
		t.Fatalf("get by appointment: %v", err)
	}
	if len(rec.Services) != 1 || rec.Services[0].SubServiceName != "Rabies" {
		t.Fatalf("unexpected services: %+v", rec.Services)
	}
	if len(rec.LabTestIDs) != 1 {
		t.Fatalf("unexpected lab test ids: %+v", rec.LabTestIDs)
	}
}

func TestStoreGetByAppointmentNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	appointmentID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM health_records WHERE appointment_id").
		WithArgs(appointmentID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = store.GetByAppointment(context.Background(), appointmentID)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreCreateLabTest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	lt := &LabTest{
		ID:             uuid.New(),
		AppointmentID:  uuid.New(),
		HealthRecordID: uuid.New(),
		ClinicID:       uuid.New(),
		SubServiceID:   uuid.New(),
		SubServiceName: "Blood Panel",
		PetName:        "Rex",
		Species:        "dog",
		Status:         LabTestPending,
	}

	mock.ExpectExec("INSERT INTO lab_tests").
		WithArgs(lt.ID, lt.AppointmentID, lt.HealthRecordID, lt.ClinicID, lt.SubServiceID,
			"Blood Panel", lt.PetID, "Rex", "dog", "pending", lt.Result,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.CreateLabTest(context.Background(), lt); err != nil {
		t.Fatalf("create lab test: %v", err)
	}
}
