package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := DefaultConfig()
	cfg.WorkDir = t.TempDir()
	return NewService(cfg, zaptest.NewLogger(t))
}

// seedRepository creates a local repository with a single commit and
// returns its path and commit hash.
func seedRepository(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("index.html"); err != nil {
		t.Fatal(err)
	}

	hash, err := worktree.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	return dir, hash.String()
}

func TestService_Clone(t *testing.T) {
	source, commit := seedRepository(t)
	svc := newTestService(t)

	deploymentID := uuid.New()
	checkout, err := svc.Clone(context.Background(), source, "", deploymentID)
	if err != nil {
		t.Fatal(err)
	}

	if checkout.CommitHash != commit {
		t.Errorf("expected commit %s, got %s", commit, checkout.CommitHash)
	}
	if filepath.Base(checkout.Path) != deploymentID.String() {
		t.Errorf("expected a per-deployment directory, got %s", checkout.Path)
	}
	if _, err := os.Stat(filepath.Join(checkout.Path, "index.html")); err != nil {
		t.Errorf("expected the worktree to be checked out: %v", err)
	}
}

func TestService_Clone_ExistingDirectory(t *testing.T) {
	source, _ := seedRepository(t)
	svc := newTestService(t)

	deploymentID := uuid.New()
	if err := os.MkdirAll(filepath.Join(svc.config.WorkDir, deploymentID.String()), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Clone(context.Background(), source, "", deploymentID)
	if !errors.Is(err, ErrRepositoryAlreadyExists) {
		t.Fatalf("expected ErrRepositoryAlreadyExists, got %v", err)
	}
}

func TestService_Clone_UnreachableRepository(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), "", uuid.New())
	if !errors.Is(err, ErrCloneFailed) {
		t.Fatalf("expected ErrCloneFailed, got %v", err)
	}
}

func TestService_Cleanup(t *testing.T) {
	source, _ := seedRepository(t)
	svc := newTestService(t)

	deploymentID := uuid.New()
	checkout, err := svc.Clone(context.Background(), source, "", deploymentID)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Cleanup(context.Background(), deploymentID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(checkout.Path); !os.IsNotExist(err) {
		t.Error("expected the checkout directory to be removed")
	}

	// removing an unknown checkout is a no-op
	if err := svc.Cleanup(context.Background(), uuid.New()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
