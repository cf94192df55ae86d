// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package state is the single crash-safe accessor to the engine's durable
// facts: session credentials, the last-fetched challenge list, and realtime
// connectivity status.
//
// The hosting process can be torn down and restarted between any two
// operations, so this store exclusively owns the durable copy of every
// fact. Anything held in memory elsewhere (block set, socket handle) is a
// reconstructible snapshot and never the source of truth.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/focusguard/focusguard/internal/challenge"
)

// Storage keys. One key per durable fact.
const (
	keyAccessToken      = "session:access_token"
	keyUsername         = "session:username"
	keyChallenges       = "challenges:list"
	keyConnectionStatus = "realtime:connection_status"
)

// ConnectionStatus values persisted under keyConnectionStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// State is a point-in-time snapshot of all durable facts. Missing keys
// surface as zero values (nil token/username, empty challenge list,
// disconnected) rather than errors.
type State struct {
	AccessToken      string
	Username         string
	Challenges       []challenge.Challenge
	ConnectionStatus string
}

// HasSession reports whether a credential is present.
func (s *State) HasSession() bool {
	return s.AccessToken != ""
}

// Store is a BadgerDB-backed state store, durable across process restarts.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	// Badger's own logger is noisy at INFO; the store logs through
	// internal/logging at its call sites instead.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory state store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetState reads all durable facts in one view transaction. A missing key
// is not an error: the token and username default to empty, the challenge
// list to nil, and the connection status to disconnected.
func (s *Store) GetState(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &State{ConnectionStatus: StatusDisconnected}

	err := s.db.View(func(txn *badger.Txn) error {
		if v, err := getValue(txn, keyAccessToken); err != nil {
			return err
		} else if v != nil {
			st.AccessToken = string(v)
		}

		if v, err := getValue(txn, keyUsername); err != nil {
			return err
		} else if v != nil {
			st.Username = string(v)
		}

		if v, err := getValue(txn, keyConnectionStatus); err != nil {
			return err
		} else if v != nil {
			st.ConnectionStatus = string(v)
		}

		v, err := getValue(txn, keyChallenges)
		if err != nil {
			return err
		}
		if v != nil {
			if err := json.Unmarshal(v, &st.Challenges); err != nil {
				return fmt.Errorf("unmarshal challenges: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	return st, nil
}

// SetChallenges overwrites the persisted challenge list.
func (s *Store) SetChallenges(ctx context.Context, challenges []challenge.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("marshal challenges: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyChallenges), data)
	})
}

// SetConnectionStatus persists the realtime connectivity status.
func (s *Store) SetConnectionStatus(ctx context.Context, connected bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	status := StatusDisconnected
	if connected {
		status = StatusConnected
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyConnectionStatus), []byte(status))
	})
}

// SetSession persists the credential and username in a single transaction.
func (s *Store) SetSession(ctx context.Context, token, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyAccessToken), []byte(token)); err != nil {
			return err
		}

		return txn.Set([]byte(keyUsername), []byte(username))
	})
}

// ClearSession removes the token, username, and challenge list. The
// connection status is left alone so the UI keeps seeing the last-known
// realtime state. Used on logout and on authentication failure.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{keyAccessToken, keyUsername, keyChallenges} {
			if err := txn.Delete([]byte(key)); err != nil &&
				!errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		return nil
	})
}

// getValue fetches a key's value, returning (nil, nil) for missing keys.
func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return item.ValueCopy(nil)
}
