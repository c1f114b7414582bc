package acceptance_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("daemon runtime mode", func() {
	It("creates a kild whose agent runs inside the PTY daemon and can be synced", func() {
		shardsDir, _, runKild, cleanup := newScenario()
		defer cleanup()
		writeKildConfig(shardsDir)

		out, err := runKild("create", "daemon-a", "--agent", "echoer", "--daemon")
		Expect(err).NotTo(HaveOccurred(), "create output: %s", out)

		out, err = runKild("daemon", "status")
		Expect(err).NotTo(HaveOccurred(), "daemon status output: %s", out)
		Expect(out).To(ContainSubstring("running"))

		out, err = runKild("sync", "daemon-a")
		Expect(err).NotTo(HaveOccurred(), "sync output: %s", out)

		out, err = runKild("stop", "daemon-a")
		Expect(err).NotTo(HaveOccurred(), "stop output: %s", out)
	})
})
