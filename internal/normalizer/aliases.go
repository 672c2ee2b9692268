package normalizer

// Field names a target attribute of models.Scholar.
type Field string

// Target fields, named by their output JSON key.
const (
	FieldID             Field = "id"
	FieldName           Field = "name"
	FieldNameAr         Field = "name_ar"
	FieldOrigin         Field = "origin"
	FieldBirthHijri     Field = "birth_hijri"
	FieldDeathHijri     Field = "death_hijri"
	FieldBirthGregorian Field = "birth_gregorian"
	FieldDeathGregorian Field = "death_gregorian"
	FieldWorks          Field = "works"
	FieldBio            Field = "bio"
)

// NamePlaceholder is used when no name alias carries a value.
const NamePlaceholder = "(nama tidak tersedia)"

// Fields lists every target field in output order.
var Fields = []Field{
	FieldID,
	FieldName,
	FieldNameAr,
	FieldOrigin,
	FieldBirthHijri,
	FieldDeathHijri,
	FieldBirthGregorian,
	FieldDeathGregorian,
	FieldWorks,
	FieldBio,
}

// aliases holds the source column names accepted for each target field, in
// precedence order. Lookups are case-sensitive. Never mutated after init.
var aliases = map[Field][]string{
	FieldName:           {"name", "fullname", "displayname", "searchname", "Name"},
	FieldNameAr:         {"arabicname", "name_ar", "ArabicName"},
	FieldOrigin:         {"origin", "birth_place", "birth_date_place", "country", "place_of_birth", "place"},
	FieldBirthHijri:     {"birth_date_hijri", "birth_hijri"},
	FieldDeathHijri:     {"death_date_hijri", "death_hijri"},
	FieldBirthGregorian: {"birth_date_gregorian", "birth_date", "birth", "born"},
	FieldDeathGregorian: {"death_date_gregorian", "death_date", "death", "died"},
	FieldWorks:          {"works", "books", "publications"},
	FieldBio:            {"bio", "info", "biography", "description"},
	FieldID:             {"id", "ID", "scholar_indx", "scholar_index", "index"},
}

// Aliases returns a copy of the alias list for f.
func Aliases(f Field) []string {
	return append([]string(nil), aliases[f]...)
}
