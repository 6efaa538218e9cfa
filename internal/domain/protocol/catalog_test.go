package protocol

import (
	"context"
	"testing"
)

func TestCatalog_Parses(t *testing.T) {
	protocols, err := Catalog()
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(protocols) != 4 { t.Fatalf("expected 4 protocols, got %d", len(protocols)) }

	byKey := make(map[string]Protocol, len(protocols))
	for _, p := range protocols {
		byKey[p.MedicationName+"/"+p.PatientCategory] = p
	}

	fcbp, ok := byKey["isotretinoin/fcbp"]
	if !ok { t.Fatal("missing isotretinoin/fcbp") }
	if len(fcbp.Steps) != 5 { t.Errorf("fcbp: expected 5 initial steps, got %d", len(fcbp.Steps)) }
	if fcbp.MonthlyCycle == nil || len(fcbp.MonthlyCycle.Steps) != 4 {
		t.Error("fcbp: expected monthly cycle with 4 steps")
	}
	if len(fcbp.CompletionSteps) != 1 || fcbp.CompletionSteps[0].DaysAfterLastDose == nil {
		t.Error("fcbp: expected final pregnancy test with days_after_last_dose")
	}

	bio, ok := byKey["adalimumab/all"]
	if !ok { t.Fatal("missing adalimumab/all") }
	if bio.MonthlyCycle.TypicalDurationMonths != nil {
		t.Error("adalimumab: typical_duration_months should be null (open-ended)")
	}
	if bio.MonthlyCycle.IntervalDays == nil || *bio.MonthlyCycle.IntervalDays != 14 {
		t.Error("adalimumab: expected interval_days 14")
	}
	if bio.MonthlyCycle.LabsEveryNMonths == nil || len(bio.MonthlyCycle.LabSteps) != 1 {
		t.Error("adalimumab: expected quarterly lab cadence")
	}
}

func TestSeed_IdempotentUpsert(t *testing.T) {
	repo := newMockProtocolRepo()

	n, err := Seed(context.Background(), repo)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if n != 4 { t.Errorf("first seed: expected 4 inserted, got %d", n) }

	n, err = Seed(context.Background(), repo)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if n != 0 { t.Errorf("second seed: expected 0 inserted, got %d", n) }
}
