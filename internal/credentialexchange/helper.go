package credentialexchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dnitsch/objstore-cli/internal/util"
	ini "gopkg.in/ini.v1"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrConfigFailure   = errors.New("config error")
)

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		util.Exit(fmt.Errorf("unable to get the user home dir: %w", err))
	}
	return home
}

func ConfigIniFile(basePath string) string {
	var base string
	if basePath != "" {
		base = basePath
	} else {
		base = HomeDir()
	}
	return path.Join(base, fmt.Sprintf(".%s.ini", SELF_NAME))
}

// SessionKey identifies a set of credentials by the endpoint and LDAP user they were issued for
func SessionKey(endpoint, username string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(endpoint, "/"), username)
}

func SetCredentials(creds *AWSCredentials, config CredentialConfig, out io.Writer) error {
	if config.BaseConfig.StoreInProfile {
		if err := storeCredentialsInProfile(*creds, config.BaseConfig.CfgSectionName); err != nil {
			return err
		}
		return nil
	}
	return returnStdOutAsJson(*creds, out)
}

// SharedCredentialsFile honours AWS_SHARED_CREDENTIALS_FILE before falling back to ~/.aws/credentials
func SharedCredentialsFile() string {
	if overriddenpath, exists := os.LookupEnv("AWS_SHARED_CREDENTIALS_FILE"); exists {
		return overriddenpath
	}
	return path.Join(HomeDir(), ".aws", "credentials")
}

func storeCredentialsInProfile(creds AWSCredentials, configSection string) error {
	awsConfPath := SharedCredentialsFile()
	if err := os.MkdirAll(path.Dir(awsConfPath), 0700); err != nil {
		return fmt.Errorf("%s, %w", err, ErrConfigFailure)
	}

	cfg, err := ini.LooseLoad(awsConfPath)
	if err != nil {
		return fmt.Errorf("%s, %w", err, ErrConfigFailure)
	}
	cfg.Section(configSection).Key("aws_access_key_id").SetValue(creds.AWSAccessKey)
	cfg.Section(configSection).Key("aws_secret_access_key").SetValue(creds.AWSSecretKey)
	cfg.Section(configSection).Key("aws_session_token").SetValue(creds.AWSSessionToken)
	return cfg.SaveTo(awsConfPath)
}

// credentialProcessOutput is the credential_process payload, Expiration is omitted when unknown
type credentialProcessOutput struct {
	Version         int
	AccessKeyId     string
	SecretAccessKey string
	SessionToken    string
	Expiration      *time.Time `json:",omitempty"`
}

func returnStdOutAsJson(creds AWSCredentials, out io.Writer) error {
	payload := credentialProcessOutput{
		Version:         1,
		AccessKeyId:     creds.AWSAccessKey,
		SecretAccessKey: creds.AWSSecretKey,
		SessionToken:    creds.AWSSessionToken,
	}
	if !creds.Expires.IsZero() {
		payload.Expiration = &creds.Expires
	}

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(jsonBytes))
	return nil
}

// ReloadBeforeExpiry returns true if the time
// to expiry is less than the specified time in seconds
// false if there is more than required time in seconds
// before needing to recycle credentials
func ReloadBeforeExpiry(expiry time.Time, reloadBeforeSeconds int) bool {
	now := time.Now().Local()
	diff := expiry.Local().Sub(now)
	return diff.Seconds() < float64(reloadBeforeSeconds)
}

// IsValid reports whether cached credentials can be reused.
// Credentials without an expiry are never reused as their lifetime is unknown.
func IsValid(creds *AWSCredentials, reloadBeforeSeconds int) bool {
	if creds == nil || creds.Expires.IsZero() {
		return false
	}
	return !ReloadBeforeExpiry(creds.Expires, reloadBeforeSeconds)
}

// WriteIniSection update ini sections in own config file
func WriteIniSection(key string) error {
	section := fmt.Sprintf("%s.%s", INI_CONF_SECTION, SessionKeyConverter(key))
	cfg, err := ini.LooseLoad(ConfigIniFile(""))
	if err != nil {
		return fmt.Errorf("fail to read Ini file: %v, %w", err, ErrConfigFailure)
	}
	if !cfg.HasSection(section) {
		sct, err := cfg.NewSection(section)
		if err != nil {
			return err
		}
		sct.Key("name").SetValue(key)
		return cfg.SaveTo(ConfigIniFile(""))
	}

	return nil
}

// GetAllIniSections returns the session keys recorded in the own config file
func GetAllIniSections() ([]string, error) {
	sections := []string{}
	cfg, err := ini.LooseLoad(ConfigIniFile(""))
	if err != nil {
		return nil, err
	}
	for _, v := range cfg.Section(INI_CONF_SECTION).ChildSections() {
		sections = append(sections, KeySessionConverter(strings.Replace(v.Name(), fmt.Sprintf("%s.", INI_CONF_SECTION), "", -1)))
	}
	return sections, nil
}
