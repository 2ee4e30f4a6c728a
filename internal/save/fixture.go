// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package save persists key-epoch fixtures. One fixture records the key
// words and the gated plaintexts of a completed epoch, serialized as cbor,
// so a decryption run can be audited or replayed offline.
package save

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	log "github.com/sirupsen/logrus"
)

const epochFixtureFileFormat = "epoch_%s.data"

// EpochFixture is the persisted record of one key epoch.
type EpochFixture struct {
	// Fingerprint is the short key fingerprint, also the file discriminator.
	Fingerprint string
	// Modulus and Exponent are the 32-byte MSB-first key words.
	Modulus  []byte
	Exponent []byte
	// Plaintexts holds the 31 transmitted bytes per package, post gating.
	Plaintexts [][]byte
	// SavedAt is when the fixture was written.
	SavedAt time.Time
}

// fixtureFilePath makes the fixture file path for a fingerprint under dir.
func fixtureFilePath(dir, fingerprint string) string {
	return filepath.Clean(filepath.Join(dir, fmt.Sprintf(epochFixtureFileFormat, fingerprint)))
}

// SaveEpochFixture saves the fixture to a file under dir, creating dir if
// needed.
func SaveEpochFixture(dir string, fixture *EpochFixture) error {
	if fixture.SavedAt.IsZero() {
		fixture.SavedAt = time.Now()
	}
	marshalled, err := cbor.Marshal(fixture)
	if err != nil {
		log.Errorln("fail marshal epoch fixture")
		return err
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filePath := fixtureFilePath(dir, fixture.Fingerprint)
	if err = os.WriteFile(filePath, marshalled, 0o600); err != nil {
		log.Errorf("fail write epoch fixture to %s", filePath)
		return err
	}
	log.Infof("saved epoch fixture %s", filePath)
	return nil
}

// LoadEpochFixture loads the fixture for a fingerprint from dir.
func LoadEpochFixture(dir, fingerprint string) (*EpochFixture, error) {
	filePath := fixtureFilePath(dir, fingerprint)
	marshalled, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	fixture := &EpochFixture{}
	if err := cbor.Unmarshal(marshalled, fixture); err != nil {
		log.Errorf("fail unmarshal epoch fixture %s", filePath)
		return nil, err
	}
	return fixture, nil
}
