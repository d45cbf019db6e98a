package flow

// Static location choices for the location step. The city is free text;
// country and state come from these tables.
var countries = []string{
	"United States", "Canada", "United Kingdom", "Australia", "Germany", "France", "Iraq",
}

var statesByCountry = map[string][]string{
	"United States":  {"California", "Texas", "New York", "Florida", "Illinois"},
	"Canada":         {"Ontario", "Quebec", "British Columbia", "Alberta"},
	"United Kingdom": {"England", "Scotland", "Wales", "Northern Ireland"},
	"Australia":      {"New South Wales", "Victoria", "Queensland", "Western Australia"},
	"Germany":        {"Bavaria", "Berlin", "Hamburg", "North Rhine-Westphalia"},
	"France":         {"Île-de-France", "Provence-Alpes-Côte d'Azur", "Auvergne-Rhône-Alpes"},
	"Iraq": {
		"Baghdad", "Basra", "Mosul", "Erbil", "Najaf", "Karbala", "Sulaymaniyah",
		"Kirkuk", "Diyala", "Anbar", "Babylon", "Wasit", "Dohuk", "Maysan",
		"Muthanna", "Qadisiyyah", "Saladin", "Dhi Qar",
	},
}

// Countries returns the selectable countries.
func Countries() []string {
	out := make([]string, len(countries))
	copy(out, countries)
	return out
}

// States returns the selectable states for a country. Countries without a
// state table accept free text.
func States(country string) []string {
	states, ok := statesByCountry[country]
	if !ok {
		return nil
	}
	out := make([]string, len(states))
	copy(out, states)
	return out
}
