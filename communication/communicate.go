// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package communication carries the byte-register link between the host and
// the decryption device: the RX/TX/STATUS register file, a TCP (optionally
// TLS) realization of it, an in-memory loopback for tests, and the JSON
// connection configuration.
package communication

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Roles a process can take on the link. The device runs the decryption
// engine; the host feeds keys and ciphertexts and collects plaintexts.
const (
	RoleDevice = "device"
	RoleHost   = "host"
)

// LocalConfig is the local configuration for one end of the link.
type LocalConfig struct {
	// Role is "device" or "host".
	Role string `json:"role"`
	// Address is listened on by the device and dialed by the host.
	Address string `json:"addr"`
	// UseTLS selects TLS with mutual authentication on the link.
	UseTLS bool `json:"useTLS"`
	// CaPath is the file path to the certificate authority (CA) file.
	CaPath string `json:"caPath"`
	// CertPath is the file path to the local certificate file.
	CertPath string `json:"certPath"`
	// KeyPath is the file path to the local private key file.
	KeyPath string `json:"keyPath"`
	// TimeOutSecond is the timeout for establishing the connection.
	TimeOutSecond int `json:"timeOutSecond"`
	// PollTimeoutSecond bounds how long one register poll loop may spin.
	// Zero spins forever, which is the faithful behaviour of the bus.
	PollTimeoutSecond int `json:"pollTimeoutSecond"`
	// FixtureDir is where the device saves key-epoch fixtures. Empty
	// disables saving.
	FixtureDir string `json:"fixtureDir"`

	// Password is the stored password the gate boots with.
	Password uint16 `json:"password"`
	// GuardCandidate, GuardEnable and GuardChange are the boot values of
	// the external guard inputs.
	GuardCandidate uint16 `json:"guardCandidate"`
	GuardEnable    bool   `json:"guardEnable"`
	GuardChange    bool   `json:"guardChange"`

	// Mnemonic optionally derives the host's demo keypair
	// deterministically. Empty draws a random key.
	Mnemonic string `json:"mnemonic"`
}

// LoadConnConfig reads a LocalConfig from a JSON file.
func LoadConnConfig(path string) (*LocalConfig, error) {
	jsonFile, err := os.Open(path)
	if err != nil {
		log.Errorf("fail open %s", path)
		return nil, err
	}
	defer jsonFile.Close()

	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, err
	}
	cfg := &LocalConfig{}
	if err := json.Unmarshal(byteValue, cfg); err != nil {
		log.Errorf("fail unmarshal %s", path)
		return nil, err
	}
	log.Infoln("done unmarshal connConfig")
	return cfg, nil
}

// PollTimeout returns the configured poll bound as a duration, zero meaning
// no bound.
func (cfg *LocalConfig) PollTimeout() time.Duration {
	return time.Duration(cfg.PollTimeoutSecond) * time.Second
}

// LoadCertPool loads a certificate authority (CA) file into a new
// x509.CertPool.
func LoadCertPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("pool append certs from pem failed")
	}
	return pool, nil
}

// LoadTLSConfig loads a mutually-authenticated TLS configuration from the CA
// file and the local certificate and key files.
func LoadTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	pool, err := LoadCertPool(caFile)
	if err != nil {
		return nil, fmt.Errorf("load cert pool from (%s): %v", caFile, err)
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load x509 key pair from (%s, %s): %v", certFile, keyFile, err)
	}
	cfg := &tls.Config{
		RootCAs:      pool,
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	return cfg, nil
}

// Listen accepts a single host connection on the configured address and
// returns its register file. The device side of the link calls this once at
// boot.
func (cfg *LocalConfig) Listen() (RegisterConn, error) {
	var (
		listener net.Listener
		err      error
	)
	if cfg.UseTLS {
		tlsConfig, terr := LoadTLSConfig(cfg.CaPath, cfg.CertPath, cfg.KeyPath)
		if terr != nil {
			log.Errorln("fail load TLS config")
			return nil, terr
		}
		listener, err = tls.Listen("tcp", cfg.Address, tlsConfig)
	} else {
		listener, err = net.Listen("tcp", cfg.Address)
	}
	if err != nil {
		log.Errorln("fail listen tcp")
		return nil, err
	}
	defer listener.Close()

	log.Infof("start listen %v", cfg.Address)
	if cfg.TimeOutSecond > 0 {
		if tl, ok := listener.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now().Add(time.Duration(cfg.TimeOutSecond) * time.Second))
		}
	}
	conn, err := listener.Accept()
	if err != nil {
		log.Errorln("fail accept host connection")
		return nil, err
	}
	log.Infof("accept success from %v", conn.RemoteAddr())
	return NewNetRegister(conn, 0), nil
}

// Dial connects to the device and returns the host's register file.
func (cfg *LocalConfig) Dial() (RegisterConn, error) {
	timeout := time.Duration(cfg.TimeOutSecond) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		tlsConfig, terr := LoadTLSConfig(cfg.CaPath, cfg.CertPath, cfg.KeyPath)
		if terr != nil {
			log.Errorln("fail load TLS config")
			return nil, terr
		}
		dialer := &net.Dialer{Timeout: timeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", cfg.Address, tlsConfig)
	} else {
		conn, err = net.DialTimeout("tcp", cfg.Address, timeout)
	}
	if err != nil {
		log.Errorf("fail dial device at %v", cfg.Address)
		return nil, err
	}
	log.Infof("successfully connect to %v", cfg.Address)
	return NewNetRegister(conn, 0), nil
}
