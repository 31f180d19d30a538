package builds

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(DefaultConfig(), zaptest.NewLogger(t))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestService_Analyze_DetectsFrameworks(t *testing.T) {
	cases := []struct {
		name        string
		packageJSON string
		framework   string
	}{
		{"express", `{"dependencies":{"express":"^4.18.0"}}`, "express"},
		{"fastify", `{"dependencies":{"fastify":"^4.0.0"}}`, "fastify"},
		{"react", `{"dependencies":{"react":"^18.0.0"}}`, "react"},
		{"vue", `{"dependencies":{"vue":"^3.0.0"}}`, "vue"},
		{"nextjs over react", `{"dependencies":{"next":"^14.0.0","react":"^18.0.0"}}`, "nextjs"},
		{"dev dependency", `{"devDependencies":{"vue":"^3.0.0"}}`, "vue"},
	}

	svc := newService(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", tc.packageJSON)

			info, err := svc.Analyze(context.Background(), uuid.New(), dir)
			if err != nil {
				t.Fatal(err)
			}
			if info.Name != tc.framework {
				t.Errorf("expected %s, got %s", tc.framework, info.Name)
			}
		})
	}
}

func TestService_Analyze_StaticSiteWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")

	info, err := newService(t).Analyze(context.Background(), uuid.New(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "static" {
		t.Errorf("expected static, got %s", info.Name)
	}
	if info.Port != 80 {
		t.Errorf("unexpected port %d", info.Port)
	}
}

func TestService_Analyze_UnknownFramework(t *testing.T) {
	svc := newService(t)

	_, err := svc.Analyze(context.Background(), uuid.New(), t.TempDir())
	if !errors.Is(err, ErrUnknownFramework) {
		t.Fatalf("expected ErrUnknownFramework for an empty checkout, got %v", err)
	}

	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies":{"left-pad":"^1.0.0"}}`)
	_, err = svc.Analyze(context.Background(), uuid.New(), dir)
	if !errors.Is(err, ErrUnknownFramework) {
		t.Fatalf("expected ErrUnknownFramework for unknown dependencies, got %v", err)
	}
}

func TestService_Analyze_CheckedInDockerfileWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies":{"express":"^4.18.0"}}`)
	writeFile(t, dir, "Dockerfile", "FROM node:20-alpine\n")

	info, err := newService(t).Analyze(context.Background(), uuid.New(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Dockerfile != "Dockerfile" {
		t.Errorf("expected the checked-in Dockerfile, got %q", info.Dockerfile)
	}
}

func TestService_Install(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if err := svc.Install(ctx, uuid.New(), t.TempDir(), ""); err != nil {
		t.Errorf("empty command must be a no-op: %v", err)
	}

	if err := svc.Install(ctx, uuid.New(), t.TempDir(), "true"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := svc.Install(ctx, uuid.New(), t.TempDir(), "false")
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("expected ErrCommandFailed, got %v", err)
	}
}

func TestService_Test_ParsesTestCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run-tests.sh", "echo \"12 passing (40ms)\"\n")

	report, err := newService(t).Test(context.Background(), uuid.New(), dir, "sh run-tests.sh")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Passed {
		t.Error("expected a passing report")
	}
	if report.TestsRun != 12 {
		t.Errorf("expected 12 tests, got %d", report.TestsRun)
	}
}

func TestService_Test_FailureIsAReportNotAnError(t *testing.T) {
	report, err := newService(t).Test(context.Background(), uuid.New(), t.TempDir(), "false")
	if err != nil {
		t.Fatalf("a failing command must not be an error: %v", err)
	}
	if report.Passed {
		t.Error("expected a failing report")
	}
}

func TestService_Test_EmptyCommandPasses(t *testing.T) {
	report, err := newService(t).Test(context.Background(), uuid.New(), t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Passed {
		t.Error("expected a trivially passing report")
	}
}

func TestService_Test_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t).Test(ctx, uuid.New(), t.TempDir(), "sleep 10")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestService_Build_CollectsArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dist/index.html", "<html></html>")
	writeFile(t, dir, "dist/assets/app.js", "console.log(1)")

	artifacts, err := newService(t).Build(context.Background(), uuid.New(), dir, "", "dist")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	for _, artifact := range artifacts {
		if filepath.IsAbs(artifact) {
			t.Errorf("artifact path must be relative to the checkout: %s", artifact)
		}
	}
}

func TestService_Build_CapsArtifacts(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, dir, filepath.Join("dist", string(rune('a'+i))+".js"), "x")
	}

	cfg := DefaultConfig()
	cfg.MaxArtifacts = 3
	svc := NewService(cfg, zaptest.NewLogger(t))

	artifacts, err := svc.Build(context.Background(), uuid.New(), dir, "", "dist")
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 3 {
		t.Errorf("expected the cap of 3, got %d", len(artifacts))
	}
}

func TestService_Build_MissingOutputDir(t *testing.T) {
	_, err := newService(t).Build(context.Background(), uuid.New(), t.TempDir(), "", "dist")
	if !errors.Is(err, ErrNoBuildOutput) {
		t.Fatalf("expected ErrNoBuildOutput, got %v", err)
	}
}

func TestService_Build_NoOutputDirConfigured(t *testing.T) {
	artifacts, err := newService(t).Build(context.Background(), uuid.New(), t.TempDir(), "true", "")
	if err != nil {
		t.Fatal(err)
	}
	if artifacts != nil {
		t.Errorf("expected no artifacts, got %v", artifacts)
	}
}
