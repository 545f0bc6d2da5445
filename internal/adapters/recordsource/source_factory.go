package recordsource

import (
	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/hospitalapi"
	"github.com/cliniclink/record-bridge/pkg/config"
)

// NewRecordSource selects the record source implementation from configuration.
// The mock is used in development when no bridge API is reachable.
func NewRecordSource(cfg *config.HospitalAPIConfig) providers.RecordSource {
	if cfg.UseMock || cfg.BaseURL == "" {
		log.Warn().Msg("using in-memory mock record source")
		return NewMockAdapter()
	}
	return NewHospitalAdapter(hospitalapi.NewHTTPClient(cfg))
}
