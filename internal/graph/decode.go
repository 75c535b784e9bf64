package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/kjstillabower/metar-gateway/internal/models"
)

// decimalNumber matches a plain decimal number: optional leading minus, optional fraction and exponent.
var decimalNumber = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ErrContract marks upstream JSON that does not fit the Metar schema.
var ErrContract = errors.New("upstream contract violation")

// FieldError describes one field of one upstream report that failed mapping.
type FieldError struct {
	Index  int
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("report %d: field %s: %s", e.Index, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrContract
}

// DecodeReports maps an upstream METAR body onto MetarReport records.
//
// The body is either an array of report objects or a single report object.
// Numbers may arrive as JSON numbers or as strings holding a decimal number;
// any other JSON kind for a scalar field is rejected. Required fields that are
// missing or null are errors, optional ones decode to nil, and fields outside
// the schema are ignored.
func DecodeReports(body []byte) ([]models.MetarReport, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var top interface{}
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}

	var objects []interface{}
	switch v := top.(type) {
	case []interface{}:
		objects = v
	case map[string]interface{}:
		objects = []interface{}{v}
	default:
		return nil, fmt.Errorf("%w: expected array or object, got %s", ErrContract, kindOf(top))
	}

	reports := make([]models.MetarReport, 0, len(objects))
	for i, o := range objects {
		obj, ok := o.(map[string]interface{})
		if !ok {
			return nil, &FieldError{Index: i, Field: "(report)", Reason: "expected object, got " + kindOf(o)}
		}
		r, err := decodeReport(i, obj)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decodeReport(index int, obj map[string]interface{}) (models.MetarReport, error) {
	f := fields{index: index, obj: obj}
	r := models.MetarReport{
		RawText:             f.requiredString("raw_text"),
		StationID:           f.optionalString("station_id"),
		ObservationTime:     f.requiredString("observation_time"),
		Latitude:            f.requiredFloat("latitude"),
		Longitude:           f.requiredFloat("longitude"),
		TempC:               f.requiredFloat("temp_c"),
		DewpointC:           f.requiredFloat("dewpoint_c"),
		WindDirDegrees:      f.requiredInt("wind_dir_degrees"),
		WindSpeedKt:         f.requiredFloat("wind_speed_kt"),
		VisibilityStatuteMi: f.optionalFloat("visibility_statute_mi"),
		AltimInHg:           f.requiredFloat("altim_in_hg"),
		SeaLevelPressureMb:  f.optionalFloat("sea_level_pressure_mb"),
		FlightCategory:      f.optionalString("flight_category"),
	}
	if f.err != nil {
		return models.MetarReport{}, f.err
	}

	sky, err := decodeSkyConditions(index, obj["sky_condition"])
	if err != nil {
		return models.MetarReport{}, err
	}
	r.SkyCondition = sky
	return r, nil
}

// decodeSkyConditions accepts an array of layers, or a lone layer object as
// produced by XML-to-JSON converters for single-layer reports.
func decodeSkyConditions(index int, v interface{}) ([]models.SkyCondition, error) {
	var layers []interface{}
	switch raw := v.(type) {
	case nil:
		return nil, &FieldError{Index: index, Field: "sky_condition", Reason: "required field is missing"}
	case []interface{}:
		layers = raw
	case map[string]interface{}:
		layers = []interface{}{raw}
	default:
		return nil, &FieldError{Index: index, Field: "sky_condition", Reason: "expected array, got " + kindOf(v)}
	}

	out := make([]models.SkyCondition, 0, len(layers))
	for j, l := range layers {
		name := fmt.Sprintf("sky_condition[%d]", j)
		layer, ok := l.(map[string]interface{})
		if !ok {
			return nil, &FieldError{Index: index, Field: name, Reason: "expected object, got " + kindOf(l)}
		}
		f := fields{index: index, prefix: name + ".", obj: layer}
		sc := models.SkyCondition{
			SkyCover:       f.requiredString("sky_cover"),
			CloudBaseFtAGL: f.optionalInt("cloud_base_ft_agl"),
		}
		if f.err != nil {
			return nil, f.err
		}
		out = append(out, sc)
	}
	return out, nil
}

// fields reads typed values out of one decoded JSON object, keeping the first
// error so a report can be decoded in a single expression.
type fields struct {
	index  int
	prefix string
	obj    map[string]interface{}
	err    error
}

func (f *fields) fail(name, reason string) {
	if f.err == nil {
		f.err = &FieldError{Index: f.index, Field: f.prefix + name, Reason: reason}
	}
}

// lookup returns the value of name and whether it is present and non-null.
func (f *fields) lookup(name string, required bool) (interface{}, bool) {
	v, ok := f.obj[name]
	if !ok || v == nil {
		if required {
			f.fail(name, "required field is missing")
		}
		return nil, false
	}
	return v, true
}

func (f *fields) str(name string, v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		f.fail(name, "expected string, got "+kindOf(v))
		return "", false
	}
	return s, true
}

func (f *fields) number(name string, v interface{}) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		f.fail(name, "expected number, got "+kindOf(v))
		return 0, false
	}
	if strings.TrimSpace(s) == "" {
		f.fail(name, "empty number")
		return 0, false
	}
	if !decimalNumber.MatchString(s) {
		f.fail(name, fmt.Sprintf("invalid number %q", s))
		return 0, false
	}
	n, err := cast.ToFloat64E(s)
	if err != nil {
		f.fail(name, fmt.Sprintf("invalid number %q", s))
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		f.fail(name, fmt.Sprintf("non-finite number %q", s))
		return 0, false
	}
	return n, true
}

func (f *fields) integer(name string, v interface{}) (int, bool) {
	n, ok := f.number(name, v)
	if !ok {
		return 0, false
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		f.fail(name, fmt.Sprintf("expected integer, got %q", fmt.Sprint(v)))
		return 0, false
	}
	return int(n), true
}

func (f *fields) requiredString(name string) string {
	v, ok := f.lookup(name, true)
	if !ok {
		return ""
	}
	s, _ := f.str(name, v)
	return s
}

func (f *fields) optionalString(name string) *string {
	v, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	s, ok := f.str(name, v)
	if !ok {
		return nil
	}
	return &s
}

func (f *fields) requiredFloat(name string) float64 {
	v, ok := f.lookup(name, true)
	if !ok {
		return 0
	}
	n, _ := f.number(name, v)
	return n
}

func (f *fields) optionalFloat(name string) *float64 {
	v, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	n, ok := f.number(name, v)
	if !ok {
		return nil
	}
	return &n
}

func (f *fields) requiredInt(name string) int {
	v, ok := f.lookup(name, true)
	if !ok {
		return 0
	}
	n, _ := f.integer(name, v)
	return n
}

func (f *fields) optionalInt(name string) *int {
	v, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	n, ok := f.integer(name, v)
	if !ok {
		return nil
	}
	return &n
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
