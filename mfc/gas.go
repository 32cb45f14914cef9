package mfc

import "strconv"

// Gas identifies a calibration gas either by symbolic name or by numeric
// device code. The zero value selects the device default (code 0, Air).
type Gas struct {
	// Name is the symbolic gas name, e.g. "Air" or "N2". Empty when the gas
	// was addressed by code directly.
	Name string
	// Code is the numeric device gas code. Only meaningful when Name is
	// empty; named gases resolve through the standard gas table.
	Code int
}

// Standard gas table (subset of common calibration gases).
var gasCodes = map[string]int{
	"Air": 0, "Ar": 1, "CH4": 2, "CO": 3, "CO2": 4, "C2H6": 5,
	"H2": 6, "He": 7, "N2": 8, "N2O": 9, "Ne": 10, "O2": 11,
	"C3H8": 12, "SF6": 13, "C4H10": 14, "C2H2": 15, "C2H4": 16,
	"NH3": 18, "Kr": 20, "Xe": 21, "CF4": 25,
}

// GasByName selects a gas by symbolic name. Unknown names resolve to device
// code 0.
func GasByName(name string) Gas {
	return Gas{Name: name}
}

// GasByCode selects a gas by numeric device code.
func GasByCode(code int) Gas {
	return Gas{Code: code}
}

// DeviceCode resolves the gas to the numeric code transmitted to the device.
// Named gases resolve through the standard gas table, defaulting to 0 for
// unrecognized names.
func (g Gas) DeviceCode() int {
	if g.Name == "" {
		return g.Code
	}
	return gasCodes[g.Name]
}

// String returns the symbolic name when present, otherwise the numeric code
// rendered as a decimal string.
func (g Gas) String() string {
	if g.Name != "" {
		return g.Name
	}
	return strconv.Itoa(g.Code)
}
