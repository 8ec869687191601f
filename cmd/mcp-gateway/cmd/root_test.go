package cmd

import "testing"

func TestRootCmd_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "refresh", "version"} {
		if !names[want] {
			t.Errorf("%q command not registered with rootCmd", want)
		}
	}
}

func TestRootCmd_ConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("config flag not registered")
	}
	if flag.DefValue != "" {
		t.Errorf("config default = %q, want empty", flag.DefValue)
	}
}

func TestRootCmd_Description(t *testing.T) {
	if rootCmd.Short == "" {
		t.Error("rootCmd missing Short description")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd missing Long description")
	}
}
