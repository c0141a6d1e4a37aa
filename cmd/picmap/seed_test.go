package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/picmap/internal/version"
)

func TestReadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	data := `{"countries": {"5": "France", "6": "Germany"}, "genders": {"1": "Female"}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vocab, err := readVocabulary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vocab["countries"]["6"] != "Germany" || vocab["genders"]["1"] != "Female" {
		t.Errorf("vocab = %v", vocab)
	}
}

func TestReadVocabulary_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"countries": [1, 2]}`), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), bad} {
		if _, err := readVocabulary(path); err == nil {
			t.Errorf("readVocabulary(%s): expected error", path)
		}
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "seed", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not found: %v", name, err)
		}
	}
}

func TestSeedCmd_RequiresWork(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"seed"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without --vocab or --base")
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetArgs([]string{"version"})
	root.SetOut(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "picmap "+version.Version+" (") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSeedCmd_FlushCacheDefault(t *testing.T) {
	cmd := newSeedCmd(new(string))
	f := cmd.Flags().Lookup("flush-cache")
	if f == nil || f.DefValue != "true" {
		t.Fatalf("flush-cache flag = %+v", f)
	}
}
