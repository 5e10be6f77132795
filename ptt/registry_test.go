package ptt

import (
	"errors"
	"slices"
	"testing"
)

type failingRegistry struct{}

func (failingRegistry) Endpoints() ([]string, error) { return nil, errors.New("enumeration failed") }

func TestChoicesEmpty(t *testing.T) {
	got, err := Choices(NewFakeOpener())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{NoPortsFound}) {
		t.Errorf("got %v", got)
	}
	if Selectable(got[0]) {
		t.Error("placeholder must not be selectable")
	}
}

func TestChoicesFreshEveryCall(t *testing.T) {
	fo := NewFakeOpener("/dev/ttyUSB0")
	first, _ := Choices(fo)
	fo.SetEndpoints("/dev/ttyUSB0", "/dev/ttyUSB1")
	second, _ := Choices(fo)

	if len(first) != 1 || len(second) != 2 {
		t.Errorf("first=%v second=%v", first, second)
	}
	if !Selectable(second[1]) {
		t.Error("real endpoint should be selectable")
	}
}

func TestChoicesError(t *testing.T) {
	got, err := Choices(failingRegistry{})
	if err == nil {
		t.Error("expected enumeration error")
	}
	if !slices.Equal(got, []string{NoPortsFound}) {
		t.Errorf("got %v", got)
	}
}

func TestDescribeUnsupported(t *testing.T) {
	if d := Describe(NewFakeOpener("COM1"), "COM1"); d != "" {
		t.Errorf("got %q", d)
	}
}
