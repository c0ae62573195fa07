package authority_test

import (
	"context"
	"errors"
	"testing"

	"github.com/addresskit/addresskit/internal/authority"
)

func fixtureSource(_ context.Context, table authority.Table) ([]authority.Code, error) {
	switch table {
	case authority.StreetType:
		return []authority.Code{{Code: "AV", Name: "AVENUE"}, {Code: "ST", Name: "STREET"}}, nil
	case authority.FlatType:
		return []authority.Code{{Code: "U", Name: "UNIT"}}, nil
	case authority.LevelType:
		return []authority.Code{{Code: "L", Name: "LEVEL"}}, nil
	case authority.StreetSuffix:
		return []authority.Code{{Code: "N", Name: "NORTH"}}, nil
	default:
		return []authority.Code{}, nil
	}
}

func TestIndex_LookupAfterLoad(t *testing.T) {
	idx := authority.New(nil)
	if err := idx.Load(context.Background(), fixtureSource); err != nil {
		t.Fatalf("Load: %v", err)
	}

	name, ok := idx.Lookup(authority.StreetType, "AV")
	if !ok || name != "AVENUE" {
		t.Errorf("Lookup(StreetType, AV) = %q, %v; want AVENUE, true", name, ok)
	}

	if _, ok := idx.Lookup(authority.StreetType, "ZZ"); ok {
		t.Errorf("expected unknown code to miss")
	}
}

func TestIndex_LookupOrWarnFallsBackToRawCode(t *testing.T) {
	idx := authority.New(nil)
	if err := idx.Load(context.Background(), fixtureSource); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := idx.LookupOrWarn(authority.StreetType, "XYZ")
	if got != "XYZ" {
		t.Errorf("LookupOrWarn fallback = %q, want raw code XYZ", got)
	}
}

func TestIndex_ResetClearsTables(t *testing.T) {
	idx := authority.New(nil)
	if err := idx.Load(context.Background(), fixtureSource); err != nil {
		t.Fatalf("Load: %v", err)
	}
	idx.Reset()

	if _, ok := idx.Lookup(authority.StreetType, "AV"); ok {
		t.Errorf("expected Lookup to miss after Reset")
	}
}

func TestIndex_LoadPropagatesSourceError(t *testing.T) {
	idx := authority.New(nil)
	wantErr := errors.New("boom")
	err := idx.Load(context.Background(), func(_ context.Context, table authority.Table) ([]authority.Code, error) {
		if table == authority.GeocodeType {
			return nil, wantErr
		}
		return []authority.Code{}, nil
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Load error = %v, want %v", err, wantErr)
	}
}

func TestIndex_SynonymsIsDeduplicatedAndSorted(t *testing.T) {
	idx := authority.New(nil)
	if err := idx.Load(context.Background(), fixtureSource); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"AV, AVENUE", "L, LEVEL", "N, NORTH", "ST, STREET", "U, UNIT"}
	got := idx.Synonyms()
	if len(got) != len(want) {
		t.Fatalf("Synonyms() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Synonyms()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
