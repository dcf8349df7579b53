package config

import (
	"fmt"
	"os"
)

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `# tramdash configuration
addr = "127.0.0.1:8081"
connect_timeout = "5s"
connect_attempts = 1
# zero waits forever for the next chunk
idle_timeout = "0s"
read_buffer_size = 4096

refresh_interval = "1s"
# tui | plain | none
ui = "tui"
# serve /trams, /healthz and /metrics when set
status_addr = ""
# browser origins allowed to call the status api
cors_origins = []
# bearer token required on /trams and /metrics when set
status_token = ""
# required for readable logs while the tui owns the terminal
log_file = ""
`
