//go:build !integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const testConfig = `
server:
  public_base_url: https://tagpay.example
database:
  url: memory://
payments:
  service_domain: tagpay.example
log:
  level: error
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("REDIS_URL", "memory://")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("MAIL_HOST", "")
	t.Setenv("TELEGRAM_TOKEN", "")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(append([]string{"--config", path}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	out, err := run(t, "", "generate", "-n", "3", "-l", "10")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	lines := strings.Fields(out)
	if len(lines) != 3 {
		t.Fatalf("expected 3 tokens, got %q", out)
	}
	for _, tok := range lines {
		if len(tok) != 10 {
			t.Errorf("unexpected token length %q", tok)
		}
	}
}

func TestGenerate_RejectsBadLength(t *testing.T) {
	if _, err := run(t, "", "generate", "-n", "1", "-l", "40"); err == nil {
		t.Fatal("expected an error for a length above the token bounds")
	}
}

func TestImport_FromStdin(t *testing.T) {
	out, err := run(t, "token,url\nIMPORT01,https://example.com/card\nbad!,\n", "import")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "imported: 1") {
		t.Errorf("unexpected report %q", out)
	}
	if !strings.Contains(out, "line 3") {
		t.Errorf("expected the bad row to be reported, got %q", out)
	}
}

func TestBlock_UnknownToken(t *testing.T) {
	if _, err := run(t, "", "block", "NOPE1234"); err == nil {
		t.Fatal("expected an error for an unknown token")
	}
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password", "--cost", "4")
	if err != nil {
		t.Fatalf("hash-password failed: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}
