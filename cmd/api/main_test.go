package main

import "testing"

func TestRun_ReturnsExitCodeOnBadConfig(t *testing.T) {
	t.Setenv("XBRL_REPAIR_MODE", "bogus")
	if code := run(); code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}
