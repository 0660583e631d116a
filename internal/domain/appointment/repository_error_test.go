package appointment

import (
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"overlap", &pq.Error{Code: "23P01", Constraint: constraintTechnicianOverlap}, ErrSlotConflict},
		{"idempotency", &pq.Error{Code: "23505", Constraint: constraintIdempotencyKey}, ErrDuplicateIdempotencyKey},
		{"other unique", &pq.Error{Code: "23505", Constraint: "appointments_pkey"}, ErrStoreUnavailable},
		{"lock timeout", &pq.Error{Code: "55P03"}, ErrBookingBusy},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrBookingBusy},
		{"serialization", &pq.Error{Code: "40001"}, ErrBookingBusy},
		{"statement timeout", &pq.Error{Code: "57014"}, ErrBookingBusy},
		{"technician fk", &pq.Error{Code: "23503", Constraint: "appointments_technician_id_fkey"}, ErrInvalidTechnician},
		{"service fk", &pq.Error{Code: "23503", Constraint: "appointment_services_service_id_fkey"}, ErrInvalidService},
		{"driver", errors.New("connection refused"), ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapDBError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if mapDBError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestLockKeysOrder(t *testing.T) {
	tech := mustUUID(t, "6f1c2f5e-8a43-4d8b-9f0a-1f2a3b4c5d6e")
	salonID := mustUUID(t, "0b8f2a61-3c1e-4e5a-9d7b-2a1c3e4f5a6b")

	keys := LockScope{SalonID: salonID, ClientPhone: "4165550101", TechnicianID: &tech}.lockKeys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "appointment:client:"+salonID.String()+":4165550101" {
		t.Errorf("expected client key first, got %s", keys[0])
	}
	if keys[1] != "appointment:technician:"+tech.String() {
		t.Errorf("expected technician key second, got %s", keys[1])
	}

	if keys := (LockScope{SalonID: salonID, ClientPhone: "4165550101"}).lockKeys(); len(keys) != 1 {
		t.Errorf("expected only client key without technician, got %v", keys)
	}
}
