package credentialexchange

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// LDAPIdentityProvider runs the LDAP identity exchange whenever the SDK asks for credentials.
// Wrap it in aws.NewCredentialsCache to only exchange again once the session expires.
type LDAPIdentityProvider struct {
	svc  AuthLDAPApi
	conf CredentialConfig
}

func NewLDAPIdentityProvider(svc AuthLDAPApi, conf CredentialConfig) *LDAPIdentityProvider {
	return &LDAPIdentityProvider{svc: svc, conf: conf}
}

func (p *LDAPIdentityProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	creds, err := AssumeRoleWithLDAPIdentity(ctx, p.svc, p.conf)
	if err != nil {
		return aws.Credentials{}, err
	}
	return creds.SDKCredentials(), nil
}

// SDKCredentials converts to the SDK representation
func (c *AWSCredentials) SDKCredentials() aws.Credentials {
	return aws.Credentials{
		AccessKeyID:     c.AWSAccessKey,
		SecretAccessKey: c.AWSSecretKey,
		SessionToken:    c.AWSSessionToken,
		Source:          SELF_NAME,
		CanExpire:       !c.Expires.IsZero(),
		Expires:         c.Expires,
	}
}
