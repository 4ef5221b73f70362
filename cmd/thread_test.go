package cmd

import "testing"

func TestThreadDepthFlagDefersToConfig(t *testing.T) {
	f := threadCmd.Flags().Lookup("depth")
	if f == nil {
		t.Fatal("depth flag missing")
	}
	if f.DefValue != "0" {
		t.Fatalf("depth default %q; the configured thread.max_depth applies when unset", f.DefValue)
	}
}
