package keystore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github/chapool/go-gasless/internal/util"
)

const (
	keystoreFileMode = 0o600
	keystoreDirMode  = 0o700
)

type service struct {
	path   string
	params ScryptParams
}

// NewService creates a file backed keystore service
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(path string, params ScryptParams) Service {
	return &service{
		path:   path,
		params: params,
	}
}

func (s *service) CreateKeystore(ctx context.Context, mnemonic string, password string) (*Keystore, error) {
	log := util.LogFromContext(ctx)

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}
	if exists {
		return nil, errors.Wrap(ErrAlreadyExists, s.path)
	}

	ks, err := encryptMnemonic(mnemonic, password, s.params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt mnemonic")
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keystore JSON")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), keystoreDirMode); err != nil {
		return nil, errors.Wrap(err, "failed to create keystore directory")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, keystoreFileMode); err != nil {
		return nil, errors.Wrap(err, "failed to write keystore")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return nil, errors.Wrap(err, "failed to move keystore into place")
	}

	log.Info().Str("path", s.path).Str("id", ks.ID).Msg("Keystore created")

	return &Keystore{Path: s.path, JSON: *ks}, nil
}

func (s *service) DecryptMnemonic(ctx context.Context, keystore *Keystore, password string) (string, error) {
	mnemonic, err := decryptMnemonic(&keystore.JSON, password)
	if err != nil {
		util.LogFromContext(ctx).Error().Err(err).Str("path", keystore.Path).Msg("Failed to decrypt mnemonic")
		return "", errors.Wrap(err, "failed to decrypt mnemonic")
	}

	return mnemonic, nil
}

func (s *service) GetKeystore(_ context.Context) (*Keystore, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, s.path)
		}
		return nil, errors.Wrap(err, "failed to read keystore")
	}

	var ks KeystoreJSON
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	return &Keystore{Path: s.path, JSON: ks}, nil
}

func (s *service) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, errors.Wrap(err, "failed to stat keystore")
}
