package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Airport is the display information for one airport.
type Airport struct {
	City    string
	Country string
}

// Column positions in the OpenFlights airports.dat layout:
// id, name, city, country, IATA, ICAO, lat, lon, ...
const (
	airportCityField    = 2
	airportCountryField = 3
	airportICAOField    = 5
)

// openFlightsNull is the OpenFlights marker for a missing value.
const openFlightsNull = `\N`

// ParseAirports reads an airports table into ICAO -> Airport.
// Rows with fewer than 6 fields or an empty ICAO code are skipped, as are
// rows the CSV reader cannot parse. Quoted fields may contain commas and
// "" escapes.
func ParseAirports(r io.Reader) (map[string]Airport, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	airports := make(map[string]Airport)
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read airports: %w", err)
		}

		if len(record) <= airportICAOField {
			skipped++
			continue
		}

		icao := strings.ToUpper(cleanField(record[airportICAOField]))
		if icao == "" {
			skipped++
			continue
		}

		airports[icao] = Airport{
			City:    cleanField(record[airportCityField]),
			Country: cleanField(record[airportCountryField]),
		}
	}

	return airports, skipped, nil
}

// ParseCountries reads a country table with a header row into
// country name -> ISO-2 code. The header must contain "name" and "code"
// columns; rows where either is empty are skipped.
func ParseCountries(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("country table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read country header: %w", err)
	}

	nameIdx, codeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(cleanField(strings.TrimPrefix(col, "\ufeff"))) {
		case "name":
			nameIdx = i
		case "code":
			codeIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, fmt.Errorf("country header %q lacks name/code columns", header)
	}

	countries := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read countries: %w", err)
		}

		if nameIdx >= len(record) || codeIdx >= len(record) {
			continue
		}
		name := cleanField(record[nameIdx])
		code := cleanField(record[codeIdx])
		if name == "" || code == "" {
			continue
		}
		countries[name] = strings.ToUpper(code)
	}

	return countries, nil
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == openFlightsNull {
		return ""
	}
	return s
}
