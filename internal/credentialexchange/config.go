package credentialexchange

import "time"

const (
	SELF_NAME        = "objstore-cli"
	INI_CONF_SECTION = "cache"
	PASSWORD_ENV_VAR = "OBJSTORE_CLI_PASSWORD"
	DEFAULT_TIMEOUT  = 30 * time.Second
)

type BaseConfig struct {
	CfgSectionName   string
	StoreInProfile   bool
	UseCache         bool
	ReloadBeforeTime int
}

type CredentialConfig struct {
	BaseConfig      BaseConfig
	Endpoint        string
	Username        string
	Password        string
	Encoding        Encoding
	Timeout         time.Duration
	DurationSeconds int
}
