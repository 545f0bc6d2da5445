package recordsource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

// MockAdapter is an in-memory record source for local development and tests.
// Snapshots can be mutated between passes to simulate the legacy system
// changing underneath the reconciler.
type MockAdapter struct {
	mu            sync.RWMutex
	registrations map[string]entities.ExternalRegistrationRecord
	slots         map[string][]entities.ExternalScheduleSlot
}

// NewMockAdapter creates an empty mock record source
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		registrations: make(map[string]entities.ExternalRegistrationRecord),
		slots:         make(map[string][]entities.ExternalScheduleSlot),
	}
}

var _ providers.RecordSource = (*MockAdapter)(nil)

// PutRegistration adds or replaces a registration snapshot row
func (m *MockAdapter) PutRegistration(record entities.ExternalRegistrationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[record.RegistrationID] = record
}

// RemoveRegistration drops a row, simulating a hard delete upstream
func (m *MockAdapter) RemoveRegistration(registrationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registrations, registrationID)
}

// SetScheduleSlots replaces a doctor's weekly recurrence
func (m *MockAdapter) SetScheduleSlots(doctorID string, slots []entities.ExternalScheduleSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[doctorID] = append([]entities.ExternalScheduleSlot(nil), slots...)
}

// ListRegistrations returns every registration for the doctor on the date
func (m *MockAdapter) ListRegistrations(ctx context.Context, doctorID string, date time.Time) ([]entities.ExternalRegistrationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := date.Format("2006-01-02")
	var records []entities.ExternalRegistrationRecord
	for _, record := range m.registrations {
		if record.DoctorID == doctorID && record.ScheduledAt.Format("2006-01-02") == day {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].RegistrationID < records[j].RegistrationID
	})
	return records, nil
}

// ListScheduleSlots returns the doctor's full weekly recurrence
func (m *MockAdapter) ListScheduleSlots(ctx context.Context, doctorID string) ([]entities.ExternalScheduleSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entities.ExternalScheduleSlot(nil), m.slots[doctorID]...), nil
}

// FindRegistration is a point lookup by registration ID
func (m *MockAdapter) FindRegistration(ctx context.Context, registrationID string) (*entities.ExternalRegistrationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.registrations[registrationID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("registration %s not found", registrationID))
	}
	return &record, nil
}

// ListActiveDates returns ascending distinct registration dates on or after from
func (m *MockAdapter) ListActiveDates(ctx context.Context, doctorID string, from time.Time) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fromDay := from.Format("2006-01-02")
	seen := make(map[string]struct{})
	for _, record := range m.registrations {
		day := record.ScheduledAt.Format("2006-01-02")
		if record.DoctorID == doctorID && day >= fromDay {
			seen[day] = struct{}{}
		}
	}

	days := make([]string, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Strings(days)

	dates := make([]time.Time, 0, len(days))
	for _, day := range days {
		d, _ := time.ParseInLocation("2006-01-02", day, time.Local)
		dates = append(dates, d)
	}
	return dates, nil
}
