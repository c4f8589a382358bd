package routes

import (
	"regexp"
	"strings"
)

// DefaultAirlineKey buckets callsigns that have no alphabetic prefix.
const DefaultAirlineKey = "_default"

// flightNumberPattern matches an ICAO airline prefix followed by a flight
// number, e.g. ACA123 or BA9.
var flightNumberPattern = regexp.MustCompile(`^([A-Z]{2,3})(\d{1,4})$`)

// icaoToIATA maps ICAO airline designators to their IATA equivalents.
var icaoToIATA = map[string]string{
	"AAL": "AA", // American Airlines
	"ACA": "AC", // Air Canada
	"AFR": "AF", // Air France
	"AIC": "AI", // Air India
	"ANA": "NH", // All Nippon Airways
	"ASA": "AS", // Alaska Airlines
	"AUA": "OS", // Austrian Airlines
	"AZA": "AZ", // ITA Airways
	"BAW": "BA", // British Airways
	"CCA": "CA", // Air China
	"CES": "MU", // China Eastern
	"CPA": "CX", // Cathay Pacific
	"CSN": "CZ", // China Southern
	"DAL": "DL", // Delta Air Lines
	"DLH": "LH", // Lufthansa
	"EIN": "EI", // Aer Lingus
	"EJU": "EC", // easyJet Europe
	"ETD": "EY", // Etihad Airways
	"EZY": "U2", // easyJet
	"FDX": "FX", // FedEx
	"FFT": "F9", // Frontier Airlines
	"FIN": "AY", // Finnair
	"IBE": "IB", // Iberia
	"JAL": "JL", // Japan Airlines
	"JBU": "B6", // JetBlue
	"JZA": "QK", // Jazz
	"KAL": "KE", // Korean Air
	"KLM": "KL", // KLM
	"NKS": "NK", // Spirit Airlines
	"QFA": "QF", // Qantas
	"QTR": "QR", // Qatar Airways
	"RYR": "FR", // Ryanair
	"SAS": "SK", // Scandinavian Airlines
	"SIA": "SQ", // Singapore Airlines
	"SKW": "OO", // SkyWest
	"SWA": "WN", // Southwest Airlines
	"SWR": "LX", // Swiss
	"TAP": "TP", // TAP Air Portugal
	"THY": "TK", // Turkish Airlines
	"UAE": "EK", // Emirates
	"UAL": "UA", // United Airlines
	"UPS": "5X", // UPS Airlines
	"VIR": "VS", // Virgin Atlantic
	"VLG": "VY", // Vueling
	"WJA": "WS", // WestJet
	"WZZ": "W6", // Wizz Air
}

// IATAForICAO returns the IATA airline code for an ICAO airline designator.
func IATAForICAO(icao string) (string, bool) {
	iata, ok := icaoToIATA[strings.ToUpper(icao)]
	return iata, ok
}

// AirlineKey returns the leading run of letters in a normalized callsign,
// or DefaultAirlineKey when the callsign starts with anything else.
func AirlineKey(callsign string) string {
	end := 0
	for end < len(callsign) {
		c := callsign[end]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			break
		}
		end++
	}
	if end == 0 {
		return DefaultAirlineKey
	}
	return strings.ToUpper(callsign[:end])
}

// FlightNumberCandidates returns the flight numbers to query for a
// normalized callsign: the callsign itself, then the IATA form when the
// airline prefix has a known IATA code. Callsigns that are not an airline
// prefix plus flight number (registrations, for example) yield nothing.
func FlightNumberCandidates(callsign string) []string {
	m := flightNumberPattern.FindStringSubmatch(callsign)
	if m == nil {
		return nil
	}

	candidates := []string{callsign}
	if iata, ok := icaoToIATA[m[1]]; ok {
		candidates = append(candidates, iata+trimFlightNumber(m[2]))
	}
	return candidates
}

// iataFlightNumber returns the IATA form of a callsign, or "" if none exists.
func iataFlightNumber(callsign string) string {
	candidates := FlightNumberCandidates(callsign)
	if len(candidates) < 2 {
		return ""
	}
	return candidates[1]
}

// trimFlightNumber strips leading zeros: ACA0123 is flown as AC123.
func trimFlightNumber(number string) string {
	trimmed := strings.TrimLeft(number, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
