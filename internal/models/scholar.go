package models

// Scholar is the normalized shape of one dataset row. Field order here is the
// field order of the output file.
type Scholar struct {
	ID             any       `json:"id"`
	Name           string    `json:"name"`
	NameAr         *string   `json:"name_ar"`
	Origin         *string   `json:"origin"`
	BirthHijri     *string   `json:"birth_hijri"`
	DeathHijri     *string   `json:"death_hijri"`
	BirthGregorian *string   `json:"birth_gregorian"`
	DeathGregorian *string   `json:"death_gregorian"`
	Works          []any     `json:"works"`
	Bio            *string   `json:"bio"`
	Raw            RawRecord `json:"raw"`
}
