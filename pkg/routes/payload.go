package routes

import "strings"

// Upstream schemas differ between providers and API versions, so airport
// codes are probed through ordered lists of field names. The first key that
// yields a non-empty value wins.
var (
	// AirportCodeKeys name the ICAO code inside an airport object.
	AirportCodeKeys = []string{"icao", "icaoCode", "icao_code", "icao_id", "code_icao"}

	// NestedAirportKeys hold an airport object inside a departure or
	// arrival movement.
	NestedAirportKeys = []string{"airport"}

	// OriginKeys name the departure side of a flight record. The value may
	// be an airport code string or an object.
	OriginKeys = []string{"origin", "departure", "dep"}

	// DestinationKeys name the arrival side of a flight record.
	DestinationKeys = []string{"destination", "arrival", "arr"}

	// OriginCodeKeys are flat departure code fields.
	OriginCodeKeys = []string{"dep_icao", "departure_icao", "origin_icao", "depIcao"}

	// DestinationCodeKeys are flat arrival code fields.
	DestinationCodeKeys = []string{"arr_icao", "arrival_icao", "destination_icao", "arrIcao"}

	// FlightListKeys hold the list of flights in an envelope object.
	FlightListKeys = []string{"response", "flights", "data", "items"}
)

// payload is a decoded JSON object.
type payload = map[string]any

// object returns v as a JSON object, or nil.
func object(v any) payload {
	m, _ := v.(map[string]any)
	return m
}

// path follows nested object keys and returns the object at the end.
func path(m payload, keys ...string) payload {
	for _, key := range keys {
		if m == nil {
			return nil
		}
		m = object(m[key])
	}
	return m
}

// firstString returns the first non-empty string found under keys.
func firstString(m payload, keys []string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// airportCode extracts an ICAO code from a bare string or an airport object.
func airportCode(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if code := firstString(v, AirportCodeKeys); code != "" {
			return code
		}
		for _, key := range NestedAirportKeys {
			if code := airportCode(v[key]); code != "" {
				return code
			}
		}
	}
	return ""
}

// endpointCode finds one side of a flight record, first via the movement
// objects named by sideKeys, then via flat code fields.
func endpointCode(m payload, sideKeys, flatKeys []string) string {
	for _, key := range sideKeys {
		if code := airportCode(m[key]); code != "" {
			return code
		}
	}
	return firstString(m, flatKeys)
}

// routeFromRecord extracts a route from a single flight record.
func routeFromRecord(m payload, source string) *Route {
	if m == nil {
		return nil
	}
	return newRoute(
		endpointCode(m, OriginKeys, OriginCodeKeys),
		endpointCode(m, DestinationKeys, DestinationCodeKeys),
		source,
	)
}

// flightRecords returns the flight objects in a response: the array itself,
// the array under one of FlightListKeys, or the object as a single record.
func flightRecords(v any) []payload {
	switch v := v.(type) {
	case []any:
		records := make([]payload, 0, len(v))
		for _, item := range v {
			if m := object(item); m != nil {
				records = append(records, m)
			}
		}
		return records
	case map[string]any:
		for _, key := range FlightListKeys {
			if list, ok := v[key].([]any); ok {
				return flightRecords(list)
			}
		}
		return []payload{v}
	}
	return nil
}
