package protocol

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

//go:embed protocols.json
var catalogJSON []byte

// Catalog returns the built-in protocol definitions shipped with the server.
func Catalog() ([]Protocol, error) {
	var protocols []Protocol
	if err := json.Unmarshal(catalogJSON, &protocols); err != nil {
		return nil, fmt.Errorf("parse protocol catalog: %w", err)
	}
	return protocols, nil
}

// Seed upserts the built-in catalog. Existing rows with the same
// (medication, type, category) key are left untouched.
func Seed(ctx context.Context, repo Repository) (int, error) {
	protocols, err := Catalog()
	if err != nil {
		return 0, err
	}
	seeded := 0
	for i := range protocols {
		inserted, err := repo.Upsert(ctx, &protocols[i])
		if err != nil {
			return seeded, fmt.Errorf("seed protocol %s/%s/%s: %w",
				protocols[i].MedicationName, protocols[i].ProtocolType, protocols[i].PatientCategory, err)
		}
		if inserted {
			seeded++
			log.Info().
				Str("medication", protocols[i].MedicationName).
				Str("protocol_type", protocols[i].ProtocolType).
				Str("patient_category", protocols[i].PatientCategory).
				Msg("Seeded protocol")
		}
	}
	return seeded, nil
}
