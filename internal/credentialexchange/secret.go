package credentialexchange

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dnitsch/objstore-cli/internal/util"
	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
	"github.com/zalando/go-keyring"
)

var (
	ErrUnableToLoadCred           = errors.New("unable to load credential")
	ErrCannotLockDir              = errors.New("unable to create lock dir")
	ErrUnableToRetrieveSections   = errors.New("unable to retrieve sections")
	ErrUnableToLoadDueToLock      = errors.New("cannot load secret due to lock error")
	ErrUnableToAcquireLock        = errors.New("cannot acquire lock")
	ErrUnmarshallingSecret        = errors.New("cannot unmarshal secret")
	ErrFailedToClearSecretStorage = errors.New("failed to clear secret storage on OS")
)

// SecretStore caches exchanged credentials in the OS secret store,
// one entry per endpoint and LDAP user.
type SecretStore struct {
	AWSCredentials *AWSCredentials
	AWSCredJson    string
	keyring        keyring.Keyring
	sessionKey     string
	lockDir        string
	locker         lockgate.Locker
	lockResource   string
	secretService  string
	secretUser     string
}

func (s *SecretStore) WithLocker(locker lockgate.Locker) *SecretStore {
	s.locker = locker
	return s
}

func (s *SecretStore) WithKeyring(kr keyring.Keyring) *SecretStore {
	s.keyring = kr
	return s
}

// keyRingImpl is the default keyring implementation
type keyRingImpl struct{}

func (k *keyRingImpl) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}
func (k *keyRingImpl) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}
func (k *keyRingImpl) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

func NewSecretStore(sessionKey, baseDir, username string) (*SecretStore, error) {
	lockDir := path.Join(baseDir, fmt.Sprintf("%s-lock", SELF_NAME))
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir: %s, %w", lockDir, ErrCannotLockDir)
	}

	return &SecretStore{
		lockDir:       lockDir,
		locker:        locker,
		keyring:       &keyRingImpl{},
		lockResource:  SELF_NAME,
		secretService: secretServiceName(sessionKey),
		sessionKey:    sessionKey,
		secretUser:    username,
	}, nil
}

func secretServiceName(sessionKey string) string {
	return fmt.Sprintf("%s-%s", SELF_NAME, SessionKeyConverter(sessionKey))
}

func (s *SecretStore) ensureLock() (func(), error) {

	acquired, lock, err := s.locker.Acquire(s.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}

	if !acquired {
		return nil, fmt.Errorf("lock %s not acquired, %w", s.lockResource, ErrUnableToLoadDueToLock)
	}
	return func() {
		if err := s.locker.Release(lock); err != nil {
			util.Traceln("unable to release lock %s: %s", s.lockResource, err)
		}
	}, nil
}

func (s *SecretStore) load() error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	creds := &AWSCredentials{}

	jsonStr, err := s.keyring.Get(s.secretService, s.secretUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := json.Unmarshal([]byte(jsonStr), &creds); err != nil {
		return fmt.Errorf("%s, %w", err, ErrUnmarshallingSecret)
	}

	s.AWSCredentials = creds
	s.AWSCredJson = jsonStr
	return nil
}

func (s *SecretStore) save() error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}

	defer release()

	if err := WriteIniSection(s.sessionKey); err != nil {
		return err
	}

	return s.keyring.Set(s.secretService, s.secretUser, s.AWSCredJson)
}

// AWSCredential returns the cached credential, nil when nothing is stored yet
func (s *SecretStore) AWSCredential() (*AWSCredentials, error) {
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("secret store: %w, %w", err, ErrUnableToLoadCred)
	}

	if s.AWSCredentials == nil && s.AWSCredJson == "" {
		return nil, nil
	}

	util.Traceln("Got credential from OS secret store for %s", s.sessionKey)

	return s.AWSCredentials, nil
}

func (s *SecretStore) SaveAWSCredential(cred *AWSCredentials) error {
	s.AWSCredentials = cred
	jsonStr, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	s.AWSCredJson = string(jsonStr)
	return s.save()
}

func (s *SecretStore) Clear() error {
	return s.keyring.Delete(s.secretService, s.secretUser)
}

// ClearAll loops through all the sections in the INI file
// deletes them from the keychain implementation on the OS
func (s *SecretStore) ClearAll() error {
	keys, err := GetAllIniSections()
	if err != nil {
		return fmt.Errorf("unable to get sections from ini: %s, %w", err, ErrUnableToRetrieveSections)
	}

	for _, k := range keys {
		if err := s.keyring.Delete(secretServiceName(k), s.secretUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s, %w", err, ErrFailedToClearSecretStorage)
		}
	}

	return nil
}

// SessionKeyConverter converts a session key to a key safe for the key store and ini section names
func SessionKeyConverter(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// KeySessionConverter converts a key back to a session key
func KeySessionConverter(key string) string {
	b, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return key
	}
	return string(b)
}
