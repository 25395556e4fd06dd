// Package dashboard renders the field dashboard panels from registry tables.
//
// Each panel is produced by the handler registered for its ModuleID in a
// fixed dispatch table. Handlers never fail on missing data: a module whose
// bound table is empty or undeclared returns a panel with status
// "data not found".
package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModule is returned for a module id outside the closed set
var ErrUnknownModule = errors.New("unknown dashboard module")

// ModuleID identifies a dashboard module
type ModuleID int

const (
	// ModuleStrategic is the executive KPI overview
	ModuleStrategic ModuleID = iota + 1
	// ModuleSubsurface is the reservoir view
	ModuleSubsurface
	// ModuleProduction is the production history and decline forecast
	ModuleProduction
	// ModuleSafety is the HSE and asset integrity view
	ModuleSafety
)

var moduleNames = map[ModuleID]string{
	ModuleStrategic:  "strategic",
	ModuleSubsurface: "subsurface",
	ModuleProduction: "production",
	ModuleSafety:     "safety",
}

var moduleTitles = map[ModuleID]string{
	ModuleStrategic:  "Executive Strategic Overview",
	ModuleSubsurface: "Subsurface Digital Twin",
	ModuleProduction: "Production Forecasting Twin",
	ModuleSafety:     "HSE & Asset Integrity Twin",
}

// Modules returns every module in display order
func Modules() []ModuleID {
	return []ModuleID{ModuleStrategic, ModuleSubsurface, ModuleProduction, ModuleSafety}
}

func (m ModuleID) String() string {
	if name, ok := moduleNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ModuleID(%d)", int(m))
}

// Title returns the panel heading
func (m ModuleID) Title() string {
	return moduleTitles[m]
}

// Valid reports whether m is one of the defined modules
func (m ModuleID) Valid() bool {
	_, ok := moduleNames[m]
	return ok
}

// ParseModuleID resolves a module name, case-insensitively
func ParseModuleID(s string) (ModuleID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range moduleNames {
		if name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModule, s)
}

// MarshalText encodes the module by name
func (m ModuleID) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModule, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a module name
func (m *ModuleID) UnmarshalText(text []byte) error {
	id, err := ParseModuleID(string(text))
	if err != nil {
		return err
	}
	*m = id
	return nil
}
