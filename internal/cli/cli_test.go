package cli

import "testing"

func TestCreateCommand_Shape(t *testing.T) {
	cmd := newCreateCmd()
	if cmd.Use != "create <branch> [parent]" {
		t.Errorf("Use = %q", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestDeleteCommand_Shape(t *testing.T) {
	cmd := newDeleteCmd()
	if cmd.Use != "delete <branch>" {
		t.Errorf("Use = %q", cmd.Use)
	}
	if len(cmd.Aliases) != 1 || cmd.Aliases[0] != "rm" {
		t.Errorf("Aliases = %v, want [rm]", cmd.Aliases)
	}
	if cmd.Flag("force") == nil {
		t.Error("missing --force flag")
	}
}

func TestListCommand_Shape(t *testing.T) {
	cmd := newListCmd()
	if len(cmd.Aliases) != 1 || cmd.Aliases[0] != "ls" {
		t.Errorf("Aliases = %v, want [ls]", cmd.Aliases)
	}
}

func TestResetCommand_HasForceFlag(t *testing.T) {
	cmd := newResetCmd()
	if cmd.Flag("force") == nil {
		t.Error("missing --force flag")
	}
}

func TestDestroyCommand_HasForceFlag(t *testing.T) {
	cmd := newDestroyCmd()
	if cmd.Flag("force") == nil {
		t.Error("missing --force flag")
	}
}

func TestCleanupCommand_HasKeepFlag(t *testing.T) {
	cmd := newCleanupCmd()
	f := cmd.Flag("keep")
	if f == nil {
		t.Fatal("missing --keep flag")
	}
	if f.DefValue != "0" {
		t.Errorf("--keep default = %q, want 0", f.DefValue)
	}
}

func TestConnectionCommand_FormatFlagDefaultsToURI(t *testing.T) {
	cmd := newConnectionCmd()
	f := cmd.Flag("format")
	if f == nil {
		t.Fatal("missing --format flag")
	}
	if f.DefValue != "uri" {
		t.Errorf("--format default = %q, want uri", f.DefValue)
	}
}

func TestDoctorCommand_HasFixFlag(t *testing.T) {
	cmd := newDoctorCmd()
	if cmd.Flag("fix") == nil {
		t.Error("missing --fix flag")
	}
}

func TestHookCommand_IsHidden(t *testing.T) {
	cmd := newHookCmd()
	if !cmd.Hidden {
		t.Error("hook command should be hidden from help output")
	}
}

func TestVersionCommand_Prints(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q", cmd.Use)
	}
}
