package network

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Bus describes one bus of the network.
type Bus struct {
	Number    int     `json:"number"`
	Name      string  `json:"name"`
	BaseKV    float64 `json:"base_kv"`
	Zone      int     `json:"zone"`
	Area      int     `json:"area"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	HasCoords bool    `json:"has_coords"`
}

// BusIndex maps bus numbers to their description.
type BusIndex map[int]Bus

// NewBusIndex indexes the given buses. When a number appears twice the
// first named entry wins.
func NewBusIndex(buses []Bus) BusIndex {
	ix := make(BusIndex, len(buses))
	for _, b := range buses {
		if prev, ok := ix[b.Number]; ok && (prev.Name != "" || b.Name == "") {
			continue
		}
		ix[b.Number] = b
	}
	return ix
}

// SameZoneArea reports whether bus n is known and shares the zone and the
// area of ref.
func (ix BusIndex) SameZoneArea(n int, ref Bus) bool {
	b, ok := ix[n]
	return ok && b.Zone == ref.Zone && b.Area == ref.Area
}

var (
	latHeaders = []string{"Latitude", "LATITUDE", "Lat", "LAT"}
	lonHeaders = []string{"Longitude", "LONGITUDE", "Lon", "LON"}
	nonNumeric = regexp.MustCompile(`[^\d.\-]`)
)

// LoadBusCSV reads the bus table stored at path.
func LoadBusCSV(path string) (BusIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadBusCSV(f)
}

// ReadBusCSV parses a bus table with at least the BUS_NUMBER, ZONE and AREA
// columns. Blanks in headers are ignored. Latitude and longitude are
// optional; longitudes are stored west-positive in the file and negated.
func ReadBusCSV(r io.Reader) (BusIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read bus header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ReplaceAll(strings.TrimSpace(h), " ", "")] = i
	}
	for _, req := range []string{"BUS_NUMBER", "ZONE", "AREA"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("bus table: missing column %s", req)
		}
	}
	latCol, lonCol := findCol(col, latHeaders), findCol(col, lonHeaders)

	var buses []Bus
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bus table: %w", err)
		}
		line++
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		var b Bus
		if b.Number, err = parseInt(field("BUS_NUMBER")); err != nil {
			return nil, fmt.Errorf("bus table line %d: BUS_NUMBER: %w", line, err)
		}
		if b.Zone, err = parseInt(field("ZONE")); err != nil {
			return nil, fmt.Errorf("bus table line %d: ZONE: %w", line, err)
		}
		if b.Area, err = parseInt(field("AREA")); err != nil {
			return nil, fmt.Errorf("bus table line %d: AREA: %w", line, err)
		}
		b.Name = strings.Trim(field("BUS_NAME"), "'\"")
		if kv := field("BASE_KV"); kv != "" {
			if b.BaseKV, err = strconv.ParseFloat(kv, 64); err != nil {
				return nil, fmt.Errorf("bus table line %d: BASE_KV: %w", line, err)
			}
		}
		if latCol >= 0 && lonCol >= 0 && latCol < len(rec) && lonCol < len(rec) {
			lat, errLat := cleanFloat(rec[latCol])
			lon, errLon := cleanFloat(rec[lonCol])
			if errLat == nil && errLon == nil {
				b.Lat, b.Lon, b.HasCoords = lat, -lon, true
			}
		}
		buses = append(buses, b)
	}
	return NewBusIndex(buses), nil
}

func findCol(col map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := col[n]; ok {
			return i
		}
	}
	return -1
}

// parseInt accepts integral values written as floats ("1001.0").
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func cleanFloat(s string) (float64, error) {
	return strconv.ParseFloat(nonNumeric.ReplaceAllString(s, ""), 64)
}
