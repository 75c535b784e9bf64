package models

// MetarReport is one decoded METAR observation. Pointer fields are optional
// upstream and stay nil when the upstream omits them.
type MetarReport struct {
	RawText             string         `json:"raw_text"`
	StationID           *string        `json:"station_id,omitempty"`
	ObservationTime     string         `json:"observation_time"`
	Latitude            float64        `json:"latitude"`
	Longitude           float64        `json:"longitude"`
	TempC               float64        `json:"temp_c"`
	DewpointC           float64        `json:"dewpoint_c"`
	WindDirDegrees      int            `json:"wind_dir_degrees"`
	WindSpeedKt         float64        `json:"wind_speed_kt"`
	VisibilityStatuteMi *float64       `json:"visibility_statute_mi,omitempty"`
	AltimInHg           float64        `json:"altim_in_hg"`
	SeaLevelPressureMb  *float64       `json:"sea_level_pressure_mb,omitempty"`
	FlightCategory      *string        `json:"flight_category,omitempty"`
	SkyCondition        []SkyCondition `json:"sky_condition"`
}

// SkyCondition is one cloud layer of a METAR.
type SkyCondition struct {
	SkyCover       string `json:"sky_cover"`
	CloudBaseFtAGL *int   `json:"cloud_base_ft_agl,omitempty"`
}
