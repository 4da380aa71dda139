// Package dataset holds the static configuration tables of the pipeline and
// the readers and writers for its input and output files.
package dataset

import (
	"os"

	"github.com/YuminosukeSato/bikecount/frame"
	"github.com/YuminosukeSato/bikecount/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CodeName is one entry of the weather code rename table.
type CodeName struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Tables groups every hardcoded list the pipeline depends on. Values are
// data so tests and operators can substitute fixture tables.
type Tables struct {
	// Rename maps raw weather codes to semantic names, in projection order.
	Rename []CodeName `yaml:"rename"`

	// ExcludedStations are weather station ids dropped after loading.
	ExcludedStations []string `yaml:"excluded_stations"`

	// ReferenceStation is the single station the global table is taken from.
	ReferenceStation string `yaml:"reference_station"`

	GlobalColumns []string `yaml:"global_columns"`
	LocalColumns  []string `yaml:"local_columns"`

	// SelectedColumns is the curated feature allowlist, in output order.
	SelectedColumns []string `yaml:"selected_columns"`
	Target          string   `yaml:"target"`

	MeanImputed   []string `yaml:"mean_imputed"`
	MedianImputed []string `yaml:"median_imputed"`

	// PrecipColumn feeds the rain indicators.
	PrecipColumn string `yaml:"precip_column"`

	CounterKey string `yaml:"counter_key"`
	StationKey string `yaml:"station_key"`
	DateKey    string `yaml:"date_key"`
	Latitude   string `yaml:"latitude"`
	Longitude  string `yaml:"longitude"`

	// CounterSuffix and StationSuffix disambiguate columns present in both
	// the counts and the global weather table.
	CounterSuffix string `yaml:"counter_suffix"`
	StationSuffix string `yaml:"station_suffix"`

	// CountSchema declares column kinds for CSV count files.
	CountSchema map[string]string `yaml:"count_schema"`

	// WeatherCategorical lists the weather codes loaded as categorical.
	WeatherCategorical []string `yaml:"weather_categorical"`

	// WeatherDateCode is the raw code holding the AAAAMMJJHH timestamp.
	WeatherDateCode string `yaml:"weather_date_code"`
}

// DefaultTables returns the production tables.
func DefaultTables() *Tables {
	return &Tables{
		Rename: []CodeName{
			{"NUM_POSTE", "id_poste"},
			{"NOM_USUEL", "nom_poste"},
			{"LAT", "latitude"},
			{"LON", "longitude"},
			{"ALTI", "altitude"},
			{"AAAAMMJJHH", "date"},
			{"RR1", "precip_1h"},
			{"DRR1", "duree_precip"},
			{"FF", "vent_moyen_10m"},
			{"DD", "direction_vent_10m"},
			{"FXY", "vent_max"},
			{"DXY", "direction_vent_max"},
			{"HXY", "heure_vent_max"},
			{"FXI", "vent_inst_max"},
			{"DXI", "direction_vent_inst_max"},
			{"HXI", "heure_vent_inst_max"},
			{"FXI3S", "vent_max_3s"},
			{"HFXI3S", "heure_vent_max_3s"},
			{"T", "temperature"},
			{"TD", "point_rosée"},
			{"TN", "temp_min"},
			{"HTN", "heure_temp_min"},
			{"TX", "temp_max"},
			{"HTX", "heure_temp_max"},
			{"DG", "duree_gel"},
			{"TNSOL", "temp_min_10cm"},
			{"TN50", "temp_min_50cm"},
			{"TCHAUSSEE", "temp_surface"},
			{"U", "humidite"},
			{"UN", "humidite_min"},
			{"HUN", "heure_humidite_min"},
			{"UX", "humidite_max"},
			{"HUX", "heure_humidite_max"},
			{"DHUMI40", "duree_humidite_40"},
			{"DHUMI80", "duree_humidite_80"},
			{"PMER", "pression_mer"},
			{"PSTAT", "pression_station"},
			{"VV", "visibilite"},
			{"WW", "code_meteo"},
			{"INS", "duree_ensoleillement_utc"},
			{"INS2", "duree_ensoleillement_tsv"},
		},
		// 75114007 duplicates 75114001, 75107005 has too many missing
		// values, 75116008 is too far from most counters.
		ExcludedStations: []string{"75114007", "75107005", "75116008"},
		ReferenceStation: "75114001",
		GlobalColumns: []string{
			"nom_poste", "latitude", "longitude", "altitude", "date",
			"duree_precip", "vent_moyen_10m", "direction_vent_10m",
			"vent_max", "direction_vent_max", "heure_vent_max",
			"vent_inst_max", "direction_vent_inst_max", "heure_vent_inst_max",
			"vent_max_3s", "heure_vent_max_3s", "point_rosée",
			"temp_min_10cm", "temp_min_50cm", "temp_surface",
			"humidite", "humidite_min", "heure_humidite_min",
			"humidite_max", "heure_humidite_max",
			"duree_humidite_40", "duree_humidite_80",
			"pression_mer", "pression_station", "visibilite",
			"code_meteo", "duree_ensoleillement_utc",
		},
		LocalColumns: []string{
			"precip_1h", "temperature", "temp_min", "heure_temp_min",
			"temp_max", "heure_temp_max", "duree_gel",
		},
		SelectedColumns: []string{
			"counter_id", "date", "duree_precip", "vent_inst_max",
			"temp_surface", "duree_humidite_80", "duree_ensoleillement_utc",
			"precip_1h",
		},
		Target: "log_bike_count",
		MeanImputed: []string{
			"temp_surface", "temp_min", "heure_temp_min", "temp_max", "heure_temp_max",
		},
		MedianImputed: []string{
			"precip_1h", "vent_inst_max", "duree_precip", "duree_gel",
		},
		PrecipColumn:  "precip_1h",
		CounterKey:    "counter_id",
		StationKey:    "id_poste",
		DateKey:       "date",
		Latitude:      "latitude",
		Longitude:     "longitude",
		CounterSuffix: "_counter",
		StationSuffix: "_poste",
		CountSchema: map[string]string{
			"counter_id":                "categorical",
			"counter_name":              "categorical",
			"site_id":                   "numerical",
			"site_name":                 "categorical",
			"bike_count":                "numerical",
			"date":                      "temporal",
			"counter_installation_date": "temporal",
			"coordinates":               "categorical",
			"counter_technical_id":      "categorical",
			"latitude":                  "numerical",
			"longitude":                 "numerical",
			"log_bike_count":            "numerical",
		},
		WeatherCategorical: []string{"NUM_POSTE", "NOM_USUEL"},
		WeatherDateCode:    "AAAAMMJJHH",
	}
}

// LoadTables reads a YAML file and overlays it on DefaultTables. Keys absent
// from the file keep their defaults.
func LoadTables(path string) (*Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInputFileError(path, err)
	}
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, errors.NewInputFileError(path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrapf(err, "tables %s", path)
	}
	return t, nil
}

// Validate checks that the tables are internally consistent.
func (t *Tables) Validate() error {
	seenCode := make(map[string]bool, len(t.Rename))
	seenName := make(map[string]bool, len(t.Rename))
	for _, e := range t.Rename {
		if e.Code == "" || e.Name == "" {
			return errors.NewValidationError("rename", "empty code or name", e)
		}
		if seenCode[e.Code] || seenName[e.Name] {
			return errors.NewValidationError("rename", "mapping must be one-to-one", e)
		}
		seenCode[e.Code], seenName[e.Name] = true, true
	}
	if len(t.SelectedColumns) == 0 {
		return errors.NewValidationError("selected_columns", "must not be empty", t.SelectedColumns)
	}
	if t.Target == "" {
		return errors.NewValidationError("target", "must not be empty", t.Target)
	}
	if t.ReferenceStation == "" {
		return errors.NewValidationError("reference_station", "must not be empty", t.ReferenceStation)
	}
	for name, kind := range t.CountSchema {
		if _, err := ParseKind(kind); err != nil {
			return errors.Wrapf(err, "count_schema %s", name)
		}
	}

	for _, code := range append([]string{t.WeatherDateCode}, t.WeatherCategorical...) {
		if _, ok := t.NameOf(code); !ok {
			return errors.NewValidationError("rename", "weather code missing from the rename table", code)
		}
	}
	weatherNames := append([]string{t.StationKey, t.PrecipColumn}, t.MeanImputed...)
	for _, name := range append(weatherNames, t.MedianImputed...) {
		if _, ok := t.CodeOf(name); !ok {
			return errors.NewValidationError("rename", "column is not produced by the rename table", name)
		}
	}
	return nil
}

// NameOf returns the semantic name of a raw weather code.
func (t *Tables) NameOf(code string) (string, bool) {
	for _, e := range t.Rename {
		if e.Code == code {
			return e.Name, true
		}
	}
	return "", false
}

// CodeOf returns the raw weather code of a semantic name.
func (t *Tables) CodeOf(name string) (string, bool) {
	for _, e := range t.Rename {
		if e.Name == name {
			return e.Code, true
		}
	}
	return "", false
}

// Codes returns the raw codes in projection order.
func (t *Tables) Codes() []string {
	codes := make([]string, len(t.Rename))
	for i, e := range t.Rename {
		codes[i] = e.Code
	}
	return codes
}

// ParseKind parses a kind name used in configuration files.
func ParseKind(s string) (frame.Kind, error) {
	switch s {
	case "categorical":
		return frame.Categorical, nil
	case "numerical":
		return frame.Numerical, nil
	case "temporal":
		return frame.Temporal, nil
	default:
		return 0, errors.NewValidationError("kind", "must be categorical, numerical or temporal", s)
	}
}
