package credentialexchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/dnitsch/objstore-cli/internal/util"
)

const (
	LDAP_ACTION      = "AssumeRoleWithLDAPIdentity"
	LDAP_API_VERSION = "2011-06-15"
	LDAP_RESULT_TAG  = "AssumeRoleWithLDAPIdentityResult"
	CREDENTIALS_TAG  = "Credentials"
	ACCESS_KEY_TAG   = "AccessKeyId"
	SECRET_KEY_TAG   = "SecretAccessKey"
	SESSION_TAG      = "SessionToken"
	EXPIRATION_TAG   = "Expiration"
	errBodySnippet   = 256
)

// UserAgent is sent on the identity exchange, cmd overrides it with the build version
var UserAgent = SELF_NAME

type AWSCredentials struct {
	Version         int
	AWSAccessKey    string    `json:"AccessKeyId"`
	AWSSecretKey    string    `json:"SecretAccessKey"`
	AWSSessionToken string    `json:"SessionToken"`
	Expires         time.Time `json:"Expiration"`
}

// AuthLDAPApi is satisfied by *http.Client
type AuthLDAPApi interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHttpClient returns the default client used for the exchange
func NewHttpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &http.Client{Timeout: timeout}
}

type LDAPIdentityRequest struct {
	Username        string
	EncodedPassword string
	DurationSeconds int
}

// BuildRequestURL returns the AssumeRoleWithLDAPIdentity url.
// Neither value is escaped here, the password is expected to be encoded already.
func BuildRequestURL(baseUrl, username, encodedPassword string) string {
	return LDAPIdentityRequest{Username: username, EncodedPassword: encodedPassword}.URL(baseUrl)
}

func (r LDAPIdentityRequest) URL(baseUrl string) string {
	var b strings.Builder
	b.WriteString(baseUrl)
	b.WriteString("?Action=")
	b.WriteString(LDAP_ACTION)
	b.WriteString("&LDAPUsername=")
	b.WriteString(r.Username)
	b.WriteString("&LDAPPassword=")
	b.WriteString(r.EncodedPassword)
	b.WriteString("&Version=")
	b.WriteString(LDAP_API_VERSION)
	if r.DurationSeconds > 0 {
		fmt.Fprintf(&b, "&DurationSeconds=%d", r.DurationSeconds)
	}
	return b.String()
}

// NewLDAPIdentityRequest builds the POST with an empty form body
func NewLDAPIdentityRequest(ctx context.Context, requestUrl string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestUrl, strings.NewReader(url.Values{}.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)
	return req, nil
}

// AssumeRoleWithLDAPIdentity exchanges the LDAP username/password for temporary credentials.
// Any failure aborts the exchange, the returned error is one of
// *TransportError, *ParseError or *MissingFieldError.
func AssumeRoleWithLDAPIdentity(ctx context.Context, svc AuthLDAPApi, conf CredentialConfig) (*AWSCredentials, error) {
	ldapReq := LDAPIdentityRequest{
		Username:        conf.Username,
		EncodedPassword: EncodeQueryValue(conf.Password, conf.Encoding),
		DurationSeconds: conf.DurationSeconds,
	}
	if conf.Encoding == EncodingRFC3986 {
		ldapReq.Username = url.QueryEscape(conf.Username)
	}

	requestUrl := ldapReq.URL(conf.Endpoint)
	util.Traceln("POST to %s", redactPassword(requestUrl, ldapReq.EncodedPassword))

	req, err := NewLDAPIdentityRequest(ctx, requestUrl)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	body, err := doExchange(svc, req)
	if err != nil {
		return nil, err
	}

	return ParseCredentials(body)
}

func doExchange(svc AuthLDAPApi, req *http.Request) ([]byte, error) {
	resp, err := svc.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errBodySnippet))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	return body, nil
}

// ParseCredentials extracts the credential triple from an AssumeRoleWithLDAPIdentity response.
// Elements are looked up by tag name anywhere below their wrapper so sibling order,
// namespaces and extra elements do not matter.
func ParseCredentials(body []byte) (*AWSCredentials, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimSpace(body)); err != nil {
		return nil, &ParseError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Err: errors.New("no root element")}
	}

	// the root itself may be the result wrapper
	result := root
	if root.Tag != LDAP_RESULT_TAG {
		if result = FindElement(root, LDAP_RESULT_TAG); result == nil {
			return nil, &MissingFieldError{Field: LDAP_RESULT_TAG}
		}
	}
	credsElem := FindElement(result, CREDENTIALS_TAG)
	if credsElem == nil {
		return nil, &MissingFieldError{Field: CREDENTIALS_TAG}
	}

	values := map[string]string{}
	for _, tag := range []string{ACCESS_KEY_TAG, SECRET_KEY_TAG, SESSION_TAG} {
		v := leafText(credsElem, tag)
		if v == "" {
			return nil, &MissingFieldError{Field: tag}
		}
		values[tag] = v
	}

	creds := &AWSCredentials{
		Version:         1,
		AWSAccessKey:    values[ACCESS_KEY_TAG],
		AWSSecretKey:    values[SECRET_KEY_TAG],
		AWSSessionToken: values[SESSION_TAG],
	}
	if exp := leafText(credsElem, EXPIRATION_TAG); exp != "" {
		if t, err := time.Parse(time.RFC3339, exp); err == nil {
			creds.Expires = t.Local()
		} else {
			util.Traceln("ignoring unparsable expiration %q: %s", exp, err)
		}
	}

	util.Traceln("accessKey: %s", creds.AWSAccessKey)
	util.Traceln("secretKey: %s", util.Mask(creds.AWSSecretKey))
	util.Traceln("sessionToken: %s", util.Mask(creds.AWSSessionToken))

	return creds, nil
}

// FindElement walks the children of e depth first and returns the first element with the given tag
func FindElement(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := FindElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func leafText(e *etree.Element, tag string) string {
	leaf := FindElement(e, tag)
	if leaf == nil {
		return ""
	}
	return strings.TrimSpace(leaf.Text())
}

func redactPassword(requestUrl, encodedPassword string) string {
	if encodedPassword == "" {
		return requestUrl
	}
	return strings.Replace(requestUrl, "LDAPPassword="+encodedPassword, "LDAPPassword=****", 1)
}
