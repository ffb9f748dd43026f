package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoCredential means no narration API key has been configured.
var ErrNoCredential = errors.New("no credential configured")

const credentialKey = "credential:narration"

// CredentialStore keeps the narration API key.
type CredentialStore struct {
	kv KV
}

func NewCredentialStore(kv KV) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Get returns the stored key, or ErrNoCredential.
func (c *CredentialStore) Get(ctx context.Context) (string, error) {
	key, err := c.kv.Get(ctx, credentialKey)
	if errors.Is(err, ErrNotFound) || (err == nil && key == "") {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return key, nil
}

// Set stores key, replacing any previous one.
func (c *CredentialStore) Set(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("credential cannot be empty")
	}
	if err := c.kv.Set(ctx, credentialKey, key, 0); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Clear removes the stored key.
func (c *CredentialStore) Clear(ctx context.Context) error {
	if err := c.kv.Del(ctx, credentialKey); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// Configured reports whether a key is stored.
func (c *CredentialStore) Configured(ctx context.Context) (bool, error) {
	_, err := c.Get(ctx)
	if errors.Is(err, ErrNoCredential) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
