package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var binaryPath string

func TestAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Acceptance Suite")
}

var _ = BeforeSuite(func() {
	_, thisFile, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	binaryPath = filepath.Join(projectRoot, "bin", "kild-test")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/kild")
	cmd.Dir = projectRoot
	cmd.Env = append(cmd.Environ(), "CGO_ENABLED=0")
	output, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "Failed to build binary: %s", string(output))
})

// newScenario creates an empty shards dir and an initialized git repo with
// one commit on main, returning both paths plus a runKild helper scoped to
// that shards dir.
func newScenario() (shardsDir, repoDir string, runKild func(args ...string) (string, error), cleanup func()) {
	tmpDir, err := os.MkdirTemp("", "kild-test-*")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	shardsDir = filepath.Join(tmpDir, "shards")
	repoDir = filepath.Join(tmpDir, "repo")
	ExpectWithOffset(1, os.MkdirAll(repoDir, 0o755)).To(Succeed())

	runGit(repoDir, "init", "-q", "-b", "main")
	runGit(repoDir, "config", "user.email", "test@test.com")
	runGit(repoDir, "config", "user.name", "Test")
	writeFile(filepath.Join(repoDir, "README.md"), "hello\n")
	runGit(repoDir, "add", "README.md")
	runGit(repoDir, "commit", "-q", "-m", "initial commit")

	runKild = func(args ...string) (string, error) {
		full := append([]string{"--shards-dir", shardsDir}, args...)
		cmd := exec.Command(binaryPath, full...)
		cmd.Dir = repoDir
		out, err := cmd.CombinedOutput()
		return string(out), err
	}
	cleanup = func() {
		exec.Command("git", "-C", repoDir, "worktree", "prune").Run()
		os.RemoveAll(tmpDir)
	}
	return shardsDir, repoDir, runKild, cleanup
}

func runGit(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
}

func runGitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
	return string(out)
}

func writeFile(path, content string) {
	dir := filepath.Dir(path)
	ExpectWithOffset(1, os.MkdirAll(dir, 0o755)).To(Succeed())
	ExpectWithOffset(1, os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
}
