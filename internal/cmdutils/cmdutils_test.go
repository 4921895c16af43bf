package cmdutils_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dnitsch/objstore-cli/internal/cmdutils"
	"github.com/dnitsch/objstore-cli/internal/credentialexchange"
	"github.com/dnitsch/objstore-cli/internal/objectstore"
)

const ldapResponse = `<AssumeRoleWithLDAPIdentityResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
    <AssumeRoleWithLDAPIdentityResult>
        <Credentials>
            <AccessKeyId>ASIAV3ZUEFP6EXAMPLE</AccessKeyId>
            <SecretAccessKey>8P+SQvWIuLnKhh8d++jpw0nNmQRBZvNEXAMPLEKEY</SecretAccessKey>
            <SessionToken>IQoJb3JpZ2luX2VjEOz</SessionToken>
            <Expiration>2030-11-01T20:26:47Z</Expiration>
        </Credentials>
    </AssumeRoleWithLDAPIdentityResult>
    <ResponseMetadata>
        <RequestId>c6104cbe-af31-11e0-8154-cbc7ccf896c7</RequestId>
    </ResponseMetadata>
</AssumeRoleWithLDAPIdentityResponse>`

// ldapServer counts exchanges and answers with the given status
func ldapServer(t *testing.T, status int, hits *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Method != http.MethodPost || r.URL.Query().Get("Action") != credentialexchange.LDAP_ACTION {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(ldapResponse))
			return
		}
		w.Write([]byte(`<ErrorResponse><Error><Code>AccessDenied</Code></Error></ErrorResponse>`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

type mockSecretApi struct {
	mAWSCredential     func() (*credentialexchange.AWSCredentials, error)
	mClear             func() error
	mClearAll          func() error
	mSaveAWSCredential func(cred *credentialexchange.AWSCredentials) error
}

func (s *mockSecretApi) AWSCredential() (*credentialexchange.AWSCredentials, error) {
	return s.mAWSCredential()
}

func (s *mockSecretApi) Clear() error {
	return s.mClear()
}

func (s *mockSecretApi) ClearAll() error {
	return s.mClearAll()
}

func (s *mockSecretApi) SaveAWSCredential(cred *credentialexchange.AWSCredentials) error {
	return s.mSaveAWSCredential(cred)
}

func testConf(endpoint string) credentialexchange.CredentialConfig {
	return credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			CfgSectionName:   "test-section",
			ReloadBeforeTime: 60,
		},
		Endpoint: endpoint,
		Username: "admin",
		Password: "abc@123",
		Encoding: credentialexchange.EncodingLegacy,
		Timeout:  credentialexchange.DEFAULT_TIMEOUT,
	}
}

var cachedCreds = &credentialexchange.AWSCredentials{
	Version:         1,
	AWSAccessKey:    "CACHEDAK",
	AWSSecretKey:    "CACHEDSK",
	AWSSessionToken: "CACHEDTOK",
	Expires:         time.Now().Add(time.Hour),
}

func Test_GetLDAPCreds_with(t *testing.T) {
	ttests := map[string]struct {
		status      int
		useCache    bool
		config      func(c credentialexchange.CredentialConfig) credentialexchange.CredentialConfig
		secretStore func(saved *int) cmdutils.SecretStorageImpl
		expectKey   string
		expectHits  int32
		expectSave  int
		errTyp      error
	}{
		"no cache exchanges every time": {
			status: http.StatusOK,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{}
			},
			expectKey:  "ASIAV3ZUEFP6EXAMPLE",
			expectHits: 1,
		},
		"valid cached credential skips the exchange": {
			status:   http.StatusOK,
			useCache: true,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{
					mAWSCredential: func() (*credentialexchange.AWSCredentials, error) { return cachedCreds, nil },
				}
			},
			expectKey: "CACHEDAK",
		},
		"expired cached credential is refreshed and saved": {
			status:   http.StatusOK,
			useCache: true,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{
					mAWSCredential: func() (*credentialexchange.AWSCredentials, error) {
						return &credentialexchange.AWSCredentials{AWSAccessKey: "OLD", Expires: time.Now().Add(-time.Minute)}, nil
					},
					mSaveAWSCredential: func(cred *credentialexchange.AWSCredentials) error {
						*saved++
						if cred.Version != 1 {
							return fmt.Errorf("version not set")
						}
						return nil
					},
				}
			},
			expectKey:  "ASIAV3ZUEFP6EXAMPLE",
			expectHits: 1,
			expectSave: 1,
		},
		"nothing cached yet": {
			status:   http.StatusOK,
			useCache: true,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{
					mAWSCredential:     func() (*credentialexchange.AWSCredentials, error) { return nil, nil },
					mSaveAWSCredential: func(cred *credentialexchange.AWSCredentials) error { *saved++; return nil },
				}
			},
			expectKey:  "ASIAV3ZUEFP6EXAMPLE",
			expectHits: 1,
			expectSave: 1,
		},
		"secret store failure": {
			status:   http.StatusOK,
			useCache: true,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{
					mAWSCredential: func() (*credentialexchange.AWSCredentials, error) {
						return nil, credentialexchange.ErrUnableToLoadCred
					},
				}
			},
			errTyp: credentialexchange.ErrUnableToLoadCred,
		},
		"rejected exchange is not cached": {
			status:   http.StatusForbidden,
			useCache: true,
			secretStore: func(saved *int) cmdutils.SecretStorageImpl {
				return &mockSecretApi{
					mAWSCredential:     func() (*credentialexchange.AWSCredentials, error) { return nil, nil },
					mSaveAWSCredential: func(cred *credentialexchange.AWSCredentials) error { *saved++; return nil },
				}
			},
			expectHits: 1,
			errTyp:     credentialexchange.ErrTransport,
		},
		"store profile without section": {
			status: http.StatusOK,
			config: func(c credentialexchange.CredentialConfig) credentialexchange.CredentialConfig {
				c.BaseConfig.StoreInProfile = true
				c.BaseConfig.CfgSectionName = ""
				return c
			},
			secretStore: func(saved *int) cmdutils.SecretStorageImpl { return &mockSecretApi{} },
			errTyp:      cmdutils.ErrMissingArg,
		},
		"missing password": {
			status: http.StatusOK,
			config: func(c credentialexchange.CredentialConfig) credentialexchange.CredentialConfig {
				c.Password = ""
				return c
			},
			secretStore: func(saved *int) cmdutils.SecretStorageImpl { return &mockSecretApi{} },
			errTyp:      cmdutils.ErrMissingArg,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			var hits int32
			saved := 0
			ts := ldapServer(t, tt.status, &hits)

			conf := testConf(ts.URL)
			conf.BaseConfig.UseCache = tt.useCache
			if tt.config != nil {
				conf = tt.config(conf)
			}

			got, err := cmdutils.GetLDAPCreds(context.TODO(), ts.Client(), tt.secretStore(&saved), conf)

			if n := atomic.LoadInt32(&hits); n != tt.expectHits {
				t.Errorf("expected %d exchanges, got %d", tt.expectHits, n)
			}
			if saved != tt.expectSave {
				t.Errorf("expected %d saves, got %d", tt.expectSave, saved)
			}
			if tt.errTyp != nil {
				if err == nil {
					t.Fatalf("got <nil>, wanted %s", tt.errTyp)
				}
				if !errors.Is(err, tt.errTyp) {
					t.Errorf("got %s, wanted %s", err, tt.errTyp)
				}
				return
			}
			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if got.AWSAccessKey != tt.expectKey {
				t.Errorf("expected %s, got %s", tt.expectKey, got.AWSAccessKey)
			}
		})
	}
}

func Test_WriteLDAPCreds_stdout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var hits int32
	ts := ldapServer(t, http.StatusOK, &hits)
	out := &bytes.Buffer{}

	if err := cmdutils.WriteLDAPCreds(context.TODO(), ts.Client(), &mockSecretApi{}, testConf(ts.URL), out); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	got := &credentialexchange.AWSCredentials{}
	if err := json.Unmarshal(out.Bytes(), got); err != nil {
		t.Fatalf("stdout is not a credential_process payload: %s", err)
	}
	if got.Version != 1 || got.AWSSessionToken != "IQoJb3JpZ2luX2VjEOz" {
		t.Errorf("unexpected payload %s", out.String())
	}
}

func Test_LDAPCredentialsProvider_without_cache_is_lazy(t *testing.T) {
	var hits int32
	ts := ldapServer(t, http.StatusOK, &hits)

	provider, err := cmdutils.LDAPCredentialsProvider(context.TODO(), ts.Client(), &mockSecretApi{}, testConf(ts.URL))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no exchange before first use, got %d", n)
	}

	for i := 0; i < 2; i++ {
		creds, err := provider.Retrieve(context.TODO())
		if err != nil {
			t.Fatalf("got %s, wanted <nil>", err)
		}
		if creds.AccessKeyID != "ASIAV3ZUEFP6EXAMPLE" || !creds.CanExpire {
			t.Errorf("unexpected credentials %v", creds)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected a single exchange, got %d", n)
	}
}

func Test_LDAPCredentialsProvider_with_cache(t *testing.T) {
	var hits int32
	ts := ldapServer(t, http.StatusOK, &hits)
	conf := testConf(ts.URL)
	conf.BaseConfig.UseCache = true

	provider, err := cmdutils.LDAPCredentialsProvider(context.TODO(), ts.Client(), &mockSecretApi{
		mAWSCredential: func() (*credentialexchange.AWSCredentials, error) { return cachedCreds, nil },
	}, conf)
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	creds, _ := provider.Retrieve(context.TODO())
	if n := atomic.LoadInt32(&hits); creds.SessionToken != "CACHEDTOK" || n != 0 {
		t.Errorf("expected cached credential without exchange, got %v after %d exchanges", creds, n)
	}
}

func Test_StaticCredentialsProvider(t *testing.T) {
	if _, err := cmdutils.StaticCredentialsProvider("minioadmin", ""); !errors.Is(err, cmdutils.ErrMissingArg) {
		t.Errorf("got %v, wanted %s", err, cmdutils.ErrMissingArg)
	}
	p, err := cmdutils.StaticCredentialsProvider("minioadmin", "minioadmin")
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	creds, _ := p.Retrieve(context.TODO())
	if creds.AccessKeyID != "minioadmin" || creds.SessionToken != "" {
		t.Errorf("unexpected credentials %v", creds)
	}
}

func Test_RunDemo_unknown_backend(t *testing.T) {
	p, _ := cmdutils.StaticCredentialsProvider("minioadmin", "minioadmin")
	err := cmdutils.RunDemo(context.TODO(), p, objectstore.Config{Endpoint: "http://localhost:9000", Backend: "swift"}, objectstore.DemoConfig{Bucket: "test", Key: "file"}, &bytes.Buffer{})
	if !errors.Is(err, objectstore.ErrUnknownBackend) {
		t.Errorf("got %v, wanted %s", err, objectstore.ErrUnknownBackend)
	}
}

func Test_ClearCache_with(t *testing.T) {
	ttests := map[string]struct {
		clearErr  error
		writeIni  bool
		errTyp    error
		iniExists bool
	}{
		"removes ini":          {writeIni: true},
		"ini already gone":     {},
		"secret store failure": {clearErr: credentialexchange.ErrFailedToClearSecretStorage, writeIni: true, errTyp: credentialexchange.ErrFailedToClearSecretStorage, iniExists: true},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			iniFile := path.Join(t.TempDir(), ".objstore-cli.ini")
			if tt.writeIni {
				os.WriteFile(iniFile, []byte("[cache]\n"), 0600)
			}
			err := cmdutils.ClearCache(&mockSecretApi{mClearAll: func() error { return tt.clearErr }}, iniFile)
			if tt.errTyp != nil {
				if !errors.Is(err, tt.errTyp) {
					t.Errorf("got %v, wanted %s", err, tt.errTyp)
				}
			} else if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if _, statErr := os.Stat(iniFile); (statErr == nil) != tt.iniExists {
				t.Errorf("ini file exists: %v, expected %v", statErr == nil, tt.iniExists)
			}
		})
	}
}
