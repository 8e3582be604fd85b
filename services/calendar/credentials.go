package calsvc

import (
	"encoding/json"
	"os"

	"golang.org/x/oauth2"

	"github.com/LAVINDI111/acnsms/core"
)

// fileCredentialStore keeps the OAuth token as a JSON file on disk.
type fileCredentialStore struct {
	path string
}

var _ core.CredentialStore = (*fileCredentialStore)(nil)

func NewFileCredentialStore(path string) *fileCredentialStore {
	return &fileCredentialStore{path: path}
}

func (s *fileCredentialStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := new(oauth2.Token)
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *fileCredentialStore) Save(tok *oauth2.Token) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
