package config

import (
	"fmt"
	"os"
)

// Template returns the annotated default config file.
func Template() string { return defaultTemplate }

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `rpc_endpoint = "https://api.devnet.solana.com"
program_id = "HaTDBm8Ps7P6xBWFq5YbRUAnSwvCZNTceTuMB2VC3azv"
# processed | confirmed | finalized
commitment = "confirmed"
request_timeout = "15s"
scratch_size = 1000
max_scratch_size = 65536

[gateway]
addr = ":9300"
cors_origins = ["http://localhost:3000"]
`
