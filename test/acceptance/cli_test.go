package acceptance_test

import (
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CLI", func() {
	Describe("kild --help", func() {
		It("exits with code 0", func() {
			cmd := exec.Command(binaryPath, "--help")
			Expect(cmd.Run()).To(Succeed())
		})

		It("shows the tool description", func() {
			cmd := exec.Command(binaryPath, "--help")
			output, err := cmd.CombinedOutput()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(output)).To(ContainSubstring("isolated development contexts"))
		})

		It("lists available commands", func() {
			cmd := exec.Command(binaryPath, "--help")
			output, err := cmd.CombinedOutput()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(output)).To(ContainSubstring("Available Commands"))
			Expect(string(output)).To(ContainSubstring("create"))
			Expect(string(output)).To(ContainSubstring("cleanup"))
		})
	})

	Describe("kild version", func() {
		It("exits with code 0 and prints a version string", func() {
			cmd := exec.Command(binaryPath, "version")
			output, err := cmd.CombinedOutput()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(output)).To(MatchRegexp(`kild \S+`))
		})
	})

	Describe("kild list on an empty shards dir", func() {
		It("exits with code 0 and prints nothing", func() {
			shardsDir, _, runKild, cleanup := newScenario()
			defer cleanup()
			out, err := runKild("list")
			Expect(err).NotTo(HaveOccurred(), "output: %s", out)
			Expect(out).To(BeEmpty())
			_ = shardsDir
		})
	})
})
