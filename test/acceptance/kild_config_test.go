package acceptance_test

import "path/filepath"

// resumeAgentYAML configures two agents: "echoer" supports resume (so it
// gets an agent_session_id and a --resume/--session-id flag pair), "plain"
// does not.
const resumeAgentYAML = `
default_agent: echoer
ports:
  count: 10
  base: 3000
agents:
  - name: echoer
    command: sh
    args: ["-c", "sleep 30"]
    supports_resume: true
    resume_flag: "--resume"
    session_id_flag: "--session-id"
  - name: plain
    command: sh
    args: ["-c", "sleep 30"]
`

func writeKildConfig(shardsDir string) string {
	path := filepath.Join(shardsDir, "kild.yaml")
	writeFile(path, resumeAgentYAML)
	return path
}
