// Package credentials keeps the portal login in the OS keyring.
package credentials

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/portal"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	KeyringService = "voterlookup"
	keyringAccount = "portal"

	EnvUsername = "VOTERLOOKUP_USERNAME"
	EnvPassword = "VOTERLOOKUP_PASSWORD"
)

var ErrNotFound = errors.New("no saved credentials")

const (
	report_store_load   = "store.load"
	report_store_delete = "store.delete"
)

type stored struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Store struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	tel    telemetry.API
}

func NewStore(tel telemetry.API) *Store {
	assert.NotNil(tel)
	return &Store{
		Getenv: os.Getenv,
		tel:    telemetry.NewScopedAPI("credentials", tel),
	}
}

// Load returns the credentials from the environment when both variables
// are set, otherwise from the keyring.
func (s *Store) Load() (portal.Credentials, error) {
	username := strings.TrimSpace(s.Getenv(EnvUsername))
	password := s.Getenv(EnvPassword)
	if username != "" && password != "" {
		return portal.Credentials{Username: username, Password: password}, nil
	}

	secret, err := keyring.Get(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return portal.Credentials{}, ErrNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_store_load, err)
		return portal.Credentials{}, fmt.Errorf("read keyring: %w", err)
	}

	var out stored
	err = json.Unmarshal([]byte(secret), &out)
	if err != nil || out.Username == "" || out.Password == "" {
		s.tel.ReportWarning(report_store_load, "saved credentials are unreadable", err)
		return portal.Credentials{}, ErrNotFound
	}
	return portal.Credentials{Username: out.Username, Password: out.Password}, nil
}

func (s *Store) Save(creds portal.Credentials) error {
	if strings.TrimSpace(creds.Username) == "" {
		return errors.New("username is empty")
	}
	if creds.Password == "" {
		return errors.New("password is empty")
	}
	secret, err := json.Marshal(stored{Username: strings.TrimSpace(creds.Username), Password: creds.Password})
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, keyringAccount, string(secret))
}

// Delete removes the saved credentials, it is not an error if there are
// none.
func (s *Store) Delete() error {
	err := keyring.Delete(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		s.tel.ReportDebug(report_store_delete, "nothing to delete")
		return nil
	}
	return err
}

// Resolve loads the saved credentials, asking for and saving new ones when
// there are none.
func (s *Store) Resolve(in io.Reader, out io.Writer) (portal.Credentials, error) {
	creds, err := s.Load()
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return portal.Credentials{}, err
	}

	fmt.Fprintln(out, "No saved portal credentials.")
	creds, err = Prompt(in, out)
	if err != nil {
		return portal.Credentials{}, err
	}
	err = s.Save(creds)
	if err != nil {
		return portal.Credentials{}, fmt.Errorf("save credentials: %w", err)
	}
	return creds, nil
}

// Prompt asks for a username and password. The password is not echoed when
// in is a terminal.
func Prompt(in io.Reader, out io.Writer) (portal.Credentials, error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Username: ")
	username, err := readLine(reader)
	if err != nil {
		return portal.Credentials{}, err
	}

	fmt.Fprint(out, "Password: ")
	var password string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return portal.Credentials{}, err
		}
		password = string(raw)
	} else {
		password, err = readLine(reader)
		if err != nil {
			return portal.Credentials{}, err
		}
	}

	creds := portal.Credentials{Username: strings.TrimSpace(username), Password: password}
	if creds.Username == "" || creds.Password == "" {
		return portal.Credentials{}, errors.New("username and password are required")
	}
	return creds, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
