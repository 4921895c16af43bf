package cmdutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/dnitsch/objstore-cli/internal/credentialexchange"
	"github.com/dnitsch/objstore-cli/internal/objectstore"
	"github.com/dnitsch/objstore-cli/internal/util"
)

var (
	ErrMissingArg    = errors.New("missing arg")
	ErrUnableToClear = errors.New("unable to clear cache")
)

type SecretStorageImpl interface {
	AWSCredential() (*credentialexchange.AWSCredentials, error)
	Clear() error
	ClearAll() error
	SaveAWSCredential(cred *credentialexchange.AWSCredentials) error
}

func validateLDAPConfig(conf credentialexchange.CredentialConfig) error {
	if conf.BaseConfig.CfgSectionName == "" && conf.BaseConfig.StoreInProfile {
		return fmt.Errorf("Config-Section name must be provided if store-profile is enabled %w", ErrMissingArg)
	}
	required := []struct{ name, val string }{
		{"endpoint", conf.Endpoint},
		{"username", conf.Username},
		{"password", conf.Password},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("%s must be provided %w", r.name, ErrMissingArg)
		}
	}
	return nil
}

// GetLDAPCreds returns temporary credentials for the LDAP user.
// With caching enabled a stored, still valid credential is reused
// and a freshly exchanged one is saved.
func GetLDAPCreds(ctx context.Context, svc credentialexchange.AuthLDAPApi, secretStore SecretStorageImpl, conf credentialexchange.CredentialConfig) (*credentialexchange.AWSCredentials, error) {
	if err := validateLDAPConfig(conf); err != nil {
		return nil, err
	}

	if conf.BaseConfig.UseCache {
		storedCreds, err := secretStore.AWSCredential()
		if err != nil {
			return nil, err
		}
		if credentialexchange.IsValid(storedCreds, conf.BaseConfig.ReloadBeforeTime) {
			util.Traceln("reusing cached credential expiring at %s", storedCreds.Expires)
			return storedCreds, nil
		}
	}

	awsCreds, err := credentialexchange.AssumeRoleWithLDAPIdentity(ctx, svc, conf)
	if err != nil {
		return nil, err
	}
	awsCreds.Version = 1

	if conf.BaseConfig.UseCache {
		if err := secretStore.SaveAWSCredential(awsCreds); err != nil {
			return nil, err
		}
	}
	return awsCreds, nil
}

// WriteLDAPCreds exchanges (or reuses) credentials and writes them
// either to the shared credentials profile or to out.
func WriteLDAPCreds(ctx context.Context, svc credentialexchange.AuthLDAPApi, secretStore SecretStorageImpl, conf credentialexchange.CredentialConfig, out io.Writer) error {
	awsCreds, err := GetLDAPCreds(ctx, svc, secretStore, conf)
	if err != nil {
		return err
	}
	return credentialexchange.SetCredentials(awsCreds, conf, out)
}

// LDAPCredentialsProvider hands the demo an SDK provider.
// Without caching the exchange runs lazily on the first object store call.
func LDAPCredentialsProvider(ctx context.Context, svc credentialexchange.AuthLDAPApi, secretStore SecretStorageImpl, conf credentialexchange.CredentialConfig) (aws.CredentialsProvider, error) {
	if !conf.BaseConfig.UseCache {
		if err := validateLDAPConfig(conf); err != nil {
			return nil, err
		}
		return aws.NewCredentialsCache(credentialexchange.NewLDAPIdentityProvider(svc, conf)), nil
	}

	awsCreds, err := GetLDAPCreds(ctx, svc, secretStore, conf)
	if err != nil {
		return nil, err
	}
	return credentials.StaticCredentialsProvider{Value: awsCreds.SDKCredentials()}, nil
}

// StaticCredentialsProvider is used for the access key/secret key login
func StaticCredentialsProvider(accessKey, secretKey string) (aws.CredentialsProvider, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("access-key and secret-key must be provided %w", ErrMissingArg)
	}
	return credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""), nil
}

// RunDemo connects to the object store and runs the demo sequence
func RunDemo(ctx context.Context, provider aws.CredentialsProvider, conf objectstore.Config, demoConf objectstore.DemoConfig, out io.Writer) error {
	client, err := objectstore.New(ctx, conf, provider)
	if err != nil {
		return err
	}
	util.Traceln("running demo against %s (%s)", conf.Endpoint, conf.Backend)
	return objectstore.Demo(ctx, client, demoConf, out)
}

// ClearCache removes every cached credential from the OS secret store
// and then the ini file indexing them.
func ClearCache(secretStore SecretStorageImpl, iniFile string) error {
	if err := secretStore.ClearAll(); err != nil {
		return err
	}
	if err := os.Remove(iniFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s, %w", err, ErrUnableToClear)
	}
	return nil
}
