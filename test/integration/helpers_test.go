package integration

import (
	"bytes"
	"os"
	"testing"

	"github.com/goccy/go-json"

	"ulama/internal/models"
)

// outputRecord mirrors one element of the written array. Raw keeps its
// field order.
type outputRecord struct {
	ID             any              `json:"id"`
	Name           string           `json:"name"`
	NameAr         *string          `json:"name_ar"`
	Origin         *string          `json:"origin"`
	BirthHijri     *string          `json:"birth_hijri"`
	DeathHijri     *string          `json:"death_hijri"`
	BirthGregorian *string          `json:"birth_gregorian"`
	DeathGregorian *string          `json:"death_gregorian"`
	Works          []any            `json:"works"`
	Bio            *string          `json:"bio"`
	Raw            models.RawRecord `json:"raw"`
}

func readOutput(t *testing.T, path string) []outputRecord {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []outputRecord
	if err := dec.Decode(&records); err != nil {
		t.Fatalf("output is not a JSON array of records: %v\n%s", err, data)
	}

	return records
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}

	return *s
}

// checkScholarPair verifies the two-record Ibn Sina / Al-Ghazali export.
func checkScholarPair(t *testing.T, records []outputRecord) {
	t.Helper()

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != json.Number("0") {
		t.Errorf("record 0 id = %#v, want 0", first.ID)
	}

	if first.Name != "Ibn Sina" || deref(first.BirthHijri) != "370H" {
		t.Errorf("record 0 = name %q, birth_hijri %s", first.Name, deref(first.BirthHijri))
	}

	second := records[1]
	if second.ID != json.Number("1") {
		t.Errorf("record 1 id = %#v, want 1", second.ID)
	}

	if second.Name != "Al-Ghazali" || deref(second.DeathGregorian) != "1111" {
		t.Errorf("record 1 = name %q, death_gregorian %s", second.Name, deref(second.DeathGregorian))
	}

	wantRaw := []map[string]string{
		{"Name": "Ibn Sina", "birth_hijri": "370H"},
		{"fullname": "Al-Ghazali", "death_date": "1111"},
	}
	wantKeys := [][]string{{"Name", "birth_hijri"}, {"fullname", "death_date"}}

	for i, rec := range records {
		keys := rec.Raw.Keys()
		if len(keys) != len(wantKeys[i]) {
			t.Fatalf("record %d raw keys = %v, want %v", i, keys, wantKeys[i])
		}

		for j, k := range keys {
			if k != wantKeys[i][j] {
				t.Errorf("record %d raw key %d = %q, want %q", i, j, k, wantKeys[i][j])
			}

			if v, _ := rec.Raw.Get(k); v != wantRaw[i][k] {
				t.Errorf("record %d raw[%s] = %#v", i, k, v)
			}
		}

		if len(rec.Works) != 0 {
			t.Errorf("record %d works = %#v, want []", i, rec.Works)
		}
	}
}
