package ptt

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// NoPortsFound is shown in place of an empty port list.
const NoPortsFound = "No Ports Found"

// Registry enumerates serial endpoints. Implementations must query the
// system on every call.
type Registry interface {
	Endpoints() ([]string, error)
}

type SystemRegistry struct{}

func (SystemRegistry) Endpoints() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}

// Describe returns USB details for an endpoint, or "" when none are known.
func (SystemRegistry) Describe(endpoint string) string {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return ""
	}
	for _, d := range details {
		if d.Name != endpoint || !d.IsUSB {
			continue
		}
		if d.Product != "" {
			return fmt.Sprintf("%s [%s:%s]", d.Product, d.VID, d.PID)
		}
		return fmt.Sprintf("USB %s:%s", d.VID, d.PID)
	}
	return ""
}

// Choices returns the endpoints to present, or a single NoPortsFound
// placeholder. An enumeration error is reported alongside the placeholder.
func Choices(reg Registry) ([]string, error) {
	ports, err := reg.Endpoints()
	if err != nil || len(ports) == 0 {
		return []string{NoPortsFound}, err
	}
	return ports, nil
}

// Selectable reports whether a choice names a real endpoint.
func Selectable(choice string) bool {
	return choice != "" && choice != NoPortsFound
}

// Describe asks reg for endpoint details when it supports them.
func Describe(reg Registry, endpoint string) string {
	if d, ok := reg.(interface{ Describe(string) string }); ok {
		return d.Describe(endpoint)
	}
	return ""
}
