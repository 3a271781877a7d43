package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestSupplySelectNeedsChannel(t *testing.T) {
	t.Setenv("RIGOL_TRANSPORT", "visa")
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--env", filepath.Join(t.TempDir(), "missing.env"), "supply", "select"})

	if err := cmd.Execute(); !errors.Is(err, errNoChannel) {
		t.Errorf("select without --channel: got %v, want %v", err, errNoChannel)
	}
}
