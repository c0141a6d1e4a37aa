package facet

// Facet ids of the default catalog.
const (
	AddressTypes  = "addresstypes"
	Countries     = "countries"
	BBox          = "bbox"
	Nationalities = "nationalities"
	Genders       = "genders"
	Processes     = "processes"
	Roles         = "roles"
	Formats       = "formats"
	Biographies   = "biographies"
	Collections   = "collections"
	NameQuery     = "nameQuery"
	Date          = "date"
)

// DefaultDefinitions returns the constituent/address catalog in display order.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: AddressTypes, Label: "Type", FieldName: "AddressTypeID", DisplayFieldName: "AddressType",
			Scope: "address", Phrase: "%s"},
		{ID: Countries, Label: "Country", FieldName: "CountryID", DisplayFieldName: "Country",
			Scope: "address", Phrase: "in %s"},
		{ID: BBox, Label: "In Map Area", FieldName: "bbox", Kind: Spatial,
			FilterScope: "address", GeoField: "address.Location", Phrase: "within the selected area"},
		{ID: Nationalities, Label: "Nationality", FieldName: "Nationality", DisplayFieldName: "Nationality",
			Phrase: "%s"},
		{ID: Genders, Label: "Gender", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "gender", Phrase: "%s"},
		{ID: Processes, Label: "Process", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "process", Phrase: "who created %s"},
		{ID: Roles, Label: "Role", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "role", Phrase: "who worked as %s"},
		{ID: Formats, Label: "Format", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "format", Phrase: "producing %s"},
		{ID: Biographies, Label: "Source", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "biography", Phrase: "whose data came in part from %s"},
		{ID: Collections, Label: "Collections", FieldName: "TermID", DisplayFieldName: "Term",
			Scope: "collection", Phrase: "whose work is collected by %s"},
		{ID: NameQuery, FieldName: "DisplayName", Kind: Text, IDField: "ConstituentID",
			Phrase: "named %s"},
		{ID: Date, FieldName: "Date", Kind: DateRange, FilterScope: "address",
			RangeFields: []string{"address.BeginDate", "address.EndDate"}, Phrase: "between the years %s"},
	}
}

// DefaultCatalog returns the registry of the constituent/address index.
func DefaultCatalog() *Registry {
	return MustRegistry(DefaultSchema(), DefaultDefinitions()...)
}
