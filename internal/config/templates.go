package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "world":
		return worldTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const worldTemplate = `[host]
start_block = 0
gas_per_message = 1000
default_gas_limit = 1000000
reply_timeout_ms = 2000
min_reservation = 1000
max_reservation = 10000000
max_reservation_duration = 100000

[pet]
id = "pet"
name = "Rex"
owner = "owner"
check_state_delay = 60
attention_threshold = 100

[token]
id = "ftoken"
name = "TAMA"
admin = "admin"

[[token.mint]]
account = "pet"
amount = "1000"

[store]
id = "store"
admin = "admin"

[[store.attributes]]
id = 1
price = "100"

[[store.attributes]]
id = 2
price = "250"
`
