package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		prefix   string
		wantName string
		wantOK   bool
	}{
		{name: "reference", value: "SECRET:GTAG_ID", prefix: DefaultPrefix, wantName: "GTAG_ID", wantOK: true},
		{name: "trims name", value: "SECRET: NODE_ENV ", prefix: DefaultPrefix, wantName: "NODE_ENV", wantOK: true},
		{name: "empty name", value: "SECRET:", prefix: DefaultPrefix, wantName: "", wantOK: true},
		{name: "plain string", value: "G-123", prefix: DefaultPrefix},
		{name: "case sensitive", value: "secret:GTAG_ID", prefix: DefaultPrefix},
		{name: "non string", value: 42, prefix: DefaultPrefix},
		{name: "custom prefix", value: "env://TOKEN", prefix: "env://", wantName: "TOKEN", wantOK: true},
		{name: "empty prefix disables", value: "SECRET:GTAG_ID", prefix: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, ok := ParseRef(tc.value, tc.prefix)
			if ok != tc.wantOK || name != tc.wantName {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tc.wantName, tc.wantOK, name, ok)
			}
		})
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("SITECONFIG_TEST_SECRET", "from-env")

	src := Env()
	if src.Name() != "env" {
		t.Fatalf("unexpected source name %q", src.Name())
	}
	if v, ok := src.Lookup("SITECONFIG_TEST_SECRET"); !ok || v != "from-env" {
		t.Fatalf("expected from-env, got %q (ok=%v)", v, ok)
	}
	if _, ok := src.Lookup("SITECONFIG_TEST_SECRET_UNSET"); ok {
		t.Fatalf("expected unset variable to be missing")
	}
	if _, ok := src.Lookup(""); ok {
		t.Fatalf("expected empty name to be missing")
	}
}

func TestEnvSourceEmptyValueIsSet(t *testing.T) {
	t.Setenv("SITECONFIG_TEST_EMPTY", "")

	if v, ok := Env().Lookup("SITECONFIG_TEST_EMPTY"); !ok || v != "" {
		t.Fatalf("expected empty but present value, got %q (ok=%v)", v, ok)
	}
}

func TestFuncSourceWithoutLookup(t *testing.T) {
	if _, ok := Func("none", nil).Lookup("ANY"); ok {
		t.Fatalf("expected nil lookup to find nothing")
	}
}

func TestMapSourceCopiesInput(t *testing.T) {
	values := map[string]string{"GTAG_ID": "G-1"}
	src := Map("fixture", values)
	values["GTAG_ID"] = "G-2"

	if v, _ := src.Lookup("GTAG_ID"); v != "G-1" {
		t.Fatalf("source changed with its input map: %q", v)
	}
	if src.Name() != "fixture" {
		t.Fatalf("unexpected name %q", src.Name())
	}
}

func TestDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# analytics\nGTAG_ID=G-DOTENV\nBUGSNAG_API_KEY=\"quoted key\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	src, err := Dotenv(path)
	if err != nil {
		t.Fatalf("Dotenv returned error: %v", err)
	}
	if src.Name() != "dotenv:"+path {
		t.Fatalf("unexpected name %q", src.Name())
	}
	if v, ok := src.Lookup("GTAG_ID"); !ok || v != "G-DOTENV" {
		t.Fatalf("expected G-DOTENV, got %q", v)
	}
	if v, _ := src.Lookup("BUGSNAG_API_KEY"); v != "quoted key" {
		t.Fatalf("expected unquoted value, got %q", v)
	}
}

func TestDotenvMissingFile(t *testing.T) {
	if _, err := Dotenv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatalf("expected error for missing dotenv file")
	}
}

func TestChainFirstHitWins(t *testing.T) {
	chain := Chain(
		Map("dotenv:.env", map[string]string{"GTAG_ID": "G-DOTENV"}),
		nil,
		Map("env", map[string]string{"GTAG_ID": "G-ENV", "NODE_ENV": "production"}),
	)

	if chain.Name() != "dotenv:.env,env" {
		t.Fatalf("unexpected chain name %q", chain.Name())
	}

	tests := []struct {
		name   string
		value  string
		source string
		ok     bool
	}{
		{name: "GTAG_ID", value: "G-DOTENV", source: "dotenv:.env", ok: true},
		{name: "NODE_ENV", value: "production", source: "env", ok: true},
		{name: "BUGSNAG_API_KEY"},
	}
	for _, tc := range tests {
		value, source, ok := chain.LookupFrom(tc.name)
		if value != tc.value || source != tc.source || ok != tc.ok {
			t.Fatalf("%s: expected (%q, %q, %v), got (%q, %q, %v)", tc.name, tc.value, tc.source, tc.ok, value, source, ok)
		}
		if v, found := chain.Lookup(tc.name); v != tc.value || found != tc.ok {
			t.Fatalf("%s: Lookup disagrees with LookupFrom", tc.name)
		}
	}
}
