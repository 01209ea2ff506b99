package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/backend/backendtest"
	"github.com/me/partnerportal/internal/config"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/server"
	"github.com/me/partnerportal/internal/store"
	"github.com/me/partnerportal/pkg/model"
)

// startTestServer starts a portal server backed by the seeded fake and
// returns its URL. HOME is redirected so credentials stay in the test dir.
func startTestServer(t *testing.T) (string, *backendtest.Fake) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	logger := logging.Discard()
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := backendtest.NewSeeded()
	svc := portal.New(backend.NewClient(fake, logger), st, logger)
	srv := server.New(config.DefaultServerConfig(), st, svc, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, fake
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-color"}, args...))

	err := root.Execute()
	return buf.String(), err
}

func loginPartner(t *testing.T, url string) {
	t.Helper()
	out, err := runCLI(t, "", "--server", url, "login", "--email", backendtest.PartnerEmail, "--code", backendtest.PartnerCode)
	if err != nil {
		t.Fatalf("login error: %v\noutput: %s", err, out)
	}
}

func TestCatalogCommand_Text(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "", "catalog", "--manufacturer", "Amazon Web Services")
	if err != nil {
		t.Fatalf("catalog error: %v", err)
	}
	if !strings.Contains(out, "Workflow: AWS") {
		t.Errorf("expected 'Workflow: AWS' in output, got: %s", out)
	}
	if !strings.Contains(out, "[step2_aws]") {
		t.Errorf("expected step2_aws in output, got: %s", out)
	}
	if !strings.Contains(out, "locked until previous steps complete") {
		t.Errorf("expected step3 gate note in output, got: %s", out)
	}
}

func TestCatalogCommand_YAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "", "catalog", "--manufacturer", "gcp", "--format", "yaml")
	if err != nil {
		t.Fatalf("catalog error: %v", err)
	}

	var steps []model.MainStepDefinition
	if err := yaml.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatalf("parse yaml: %v\noutput: %s", err, out)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	if steps[1].Key != "step2_google" {
		t.Errorf("step 2 = %q, want step2_google", steps[1].Key)
	}
}

func TestCatalogCommand_UnknownFormat(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := runCLI(t, "", "catalog", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNormalizeCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "", "normalize", "gcp", "Oracle", "Reseller, MS")
	if err != nil {
		t.Fatalf("normalize error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4\noutput: %s", len(lines), out)
	}
	checks := []struct{ key, match string }{
		{"GOOGLE", "matched"},
		{"MICROSOFT", "default"},
		{"MICROSOFT", "matched"},
	}
	for i, c := range checks {
		fields := strings.Fields(lines[i+1])
		if got := fields[len(fields)-2]; got != c.key {
			t.Errorf("line %d key = %q, want %q", i+1, got, c.key)
		}
		if got := fields[len(fields)-1]; got != c.match {
			t.Errorf("line %d match = %q, want %q", i+1, got, c.match)
		}
	}
}

func TestLoginCommand(t *testing.T) {
	url, _ := startTestServer(t)
	out, err := runCLI(t, backendtest.PartnerCode+"\n", "--server", url, "login", "--email", backendtest.PartnerEmail)
	if err != nil {
		t.Fatalf("login error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Logged in as "+backendtest.PartnerEmail) {
		t.Errorf("expected login confirmation, got: %s", out)
	}

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if !strings.HasPrefix(creds.SessionID, "sess_") {
		t.Errorf("session_id = %q, want sess_ prefix", creds.SessionID)
	}

	info, err := os.Stat(filepath.Join(os.Getenv("HOME"), ".partnerportal", credentialsFileName))
	if err != nil {
		t.Fatalf("stat credentials: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials mode = %o, want 600", perm)
	}
}

func TestLoginCommand_WrongCode(t *testing.T) {
	url, _ := startTestServer(t)
	_, err := runCLI(t, "", "--server", url, "login", "--email", backendtest.PartnerEmail, "--code", "000000")
	if err == nil {
		t.Fatal("expected error for wrong code")
	}
	if _, err := LoadCredentials(); err == nil {
		t.Error("credentials written after failed login")
	}
}

func TestListCommand(t *testing.T) {
	url, _ := startTestServer(t)
	loginPartner(t, url)

	out, err := runCLI(t, "", "--server", url, "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out, "Acme GmbH") || !strings.Contains(out, "36%") {
		t.Errorf("expected Acme GmbH at 36%% in output, got: %s", out)
	}
	if strings.Contains(out, "Globex") {
		t.Errorf("partner sees another company's record: %s", out)
	}
}

func TestProgressCommand(t *testing.T) {
	url, _ := startTestServer(t)
	loginPartner(t, url)

	out, err := runCLI(t, "", "--server", url, "progress", "C1")
	if err != nil {
		t.Fatalf("progress error: %v", err)
	}
	if !strings.Contains(out, "C1  AWS  36% (4/11)") {
		t.Errorf("expected header line in output, got: %s", out)
	}
	if !strings.Contains(out, "LOCKED") {
		t.Errorf("expected step 3 LOCKED in output, got: %s", out)
	}
}

func TestProgressCommand_NotLoggedIn(t *testing.T) {
	url, _ := startTestServer(t)
	_, err := runCLI(t, "", "--server", url, "progress", "C1")
	if err == nil || !strings.Contains(err.Error(), string(model.ErrUnauthorized)) {
		t.Errorf("err = %v, want UNAUTHORIZED", err)
	}
}

func TestSetCommand(t *testing.T) {
	url, fake := startTestServer(t)
	loginPartner(t, url)

	out, err := runCLI(t, "", "--server", url, "set", "C1", "AWS Account ID", "123456789012")
	if err != nil {
		t.Fatalf("set error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Overall progress: 45%") {
		t.Errorf("expected 45%% in output, got: %s", out)
	}
	if got := fake.Mirror("C1")["AWS Account ID"]; got != "123456789012" {
		t.Errorf("backend value = %v, want 123456789012", got)
	}
}

func TestSetCommand_Gated(t *testing.T) {
	url, fake := startTestServer(t)
	loginPartner(t, url)

	_, err := runCLI(t, "", "--server", url, "set", "C1", "Go-Live Approved", "true")
	if err == nil || !strings.Contains(err.Error(), string(model.ErrConflict)) {
		t.Errorf("err = %v, want CONFLICT", err)
	}
	if n := fake.CallCount(backend.ActionUpdateField); n != 0 {
		t.Errorf("updateField calls = %d, want 0", n)
	}
}

func TestLogoutCommand(t *testing.T) {
	url, _ := startTestServer(t)
	loginPartner(t, url)

	if _, err := runCLI(t, "", "--server", url, "logout"); err != nil {
		t.Fatalf("logout error: %v", err)
	}
	if _, err := LoadCredentials(); !os.IsNotExist(err) {
		t.Errorf("LoadCredentials err = %v, want not exist", err)
	}
}
