package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// triState is the value of the auto|on|off flags (--color, --ui).
type triState string

const (
	stateAuto triState = "auto"
	stateOn   triState = "on"
	stateOff  triState = "off"
)

func parseTriState(flag, value string) (triState, error) {
	switch s := triState(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return stateAuto, nil
	case stateAuto, stateOn, stateOff:
		return s, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// resolve turns auto into the answer of detect.
func (s triState) resolve(detect func() bool) bool {
	switch s {
	case stateOn:
		return true
	case stateOff:
		return false
	default:
		return detect()
	}
}

func applyColorMode(value string) error {
	mode, err := parseTriState("color", value)
	if err != nil {
		return err
	}
	color.NoColor = !mode.resolve(func() bool {
		return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == ""
	})
	return nil
}

// useProgressUI decides whether serialization progress is drawn. Quiet runs
// never draw it.
func useProgressUI(value string, quiet bool) (bool, error) {
	mode, err := parseTriState("ui", value)
	if err != nil || quiet {
		return false, err
	}
	return mode.resolve(func() bool { return isTerminal(os.Stdout) }), nil
}
