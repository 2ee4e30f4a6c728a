// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

/*
*
The file where main is located, as an example
 1. Load the connection configuration and take the configured role
 2. As the device: listen, then serve key epochs until the host disconnects
 3. As the host: dial, then drive the stages from the menu
 1. Key generation (random or mnemonic-derived)
 2. Encryption of a chosen plaintext
 3. Decryption of one or more ciphertext packages
*/
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"RSA256/communication"
	"RSA256/pkg/keygen"
	"RSA256/pkg/passgate"
	"RSA256/pkg/protocol"
	"RSA256/pkg/uint256"
)

const defaultConfigPath = "./config/connConfig.json"

// printTips prints a menu of available options for the host driver.
func printTips() {
	fmt.Println("\nConnection is completed, please type the name of stage you want to execute:(e.g. Decrypt <hex ciphertext>)")
	fmt.Println("[-] KeyGen [mnemonic words...]")
	fmt.Println("[-] Encrypt <hex plaintext>")
	fmt.Println("[-] Decrypt <hex ciphertext> [more ciphertexts...]")
	fmt.Println("[-] Ctrl+c to exit")
	fmt.Printf(">>> ")
}

// configGuards serves the boot guard values from the configuration as the
// device's external guard source.
type configGuards struct {
	cfg *communication.LocalConfig
}

func (s configGuards) Sample() passgate.Guards {
	return passgate.Guards{
		Candidate: s.cfg.GuardCandidate,
		Enable:    s.cfg.GuardEnable,
		Change:    s.cfg.GuardChange,
	}
}

// runDevice listens for the host and serves key epochs until the link closes.
func runDevice(cfg *communication.LocalConfig) error {
	conn, err := cfg.Listen()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctrl := protocol.NewController(conn, configGuards{cfg: cfg}, passgate.NewGate(cfg.Password))
	ctrl.SetPollTimeout(cfg.PollTimeout())
	if cfg.FixtureDir != "" {
		ctrl.SetFixtureDir(cfg.FixtureDir)
	}
	return ctrl.Run(context.Background())
}

// hostKey makes the host's keypair, from the configured mnemonic when one is
// given.
func hostKey(cfg *communication.LocalConfig) (*keygen.Key, error) {
	if cfg.Mnemonic != "" {
		return keygen.FromMnemonic(cfg.Mnemonic, "")
	}
	return keygen.Generate(rand.Reader)
}

// parseWord parses one 256-bit word from up to 64 hex digits.
func parseWord(arg string) (uint256.Int, error) {
	var w uint256.Int
	if len(arg)%2 == 1 {
		arg = "0" + arg
	}
	buf, err := hex.DecodeString(arg)
	if err != nil || len(buf) > 32 {
		return w, fmt.Errorf("expect at most 64 hex digits, got %q", arg)
	}
	w.SetBytes(buf)
	return w, nil
}

// Decrypt sends one key epoch with the given ciphertext packages and prints
// the 31 returned plaintext bytes of each.
func Decrypt(host *protocol.Host, key *keygen.Key, args []string) error {
	ciphers := make([]uint256.Int, 0, len(args))
	for _, arg := range args {
		c, err := parseWord(arg)
		if err != nil {
			return err
		}
		ciphers = append(ciphers, c)
	}
	plaintexts, err := host.RunEpoch(context.Background(), key.N, key.D, ciphers)
	if err != nil {
		log.Errorln(err)
		return err
	}
	for i, plain := range plaintexts {
		fmt.Printf("package %d plaintext (31 bytes): %s\n", i+1, hex.EncodeToString(plain))
	}
	return nil
}

// runHost dials the device and drives the stages from the menu.
func runHost(cfg *communication.LocalConfig) error {
	conn, err := cfg.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	host := protocol.NewHost(conn)
	host.SetPollTimeout(cfg.PollTimeout())
	key, err := hostKey(cfg)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		printTips()
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "KeyGen":
			if len(fields) > 1 {
				key, err = keygen.FromMnemonic(strings.Join(fields[1:], " "), "")
			} else {
				key, err = keygen.Generate(rand.Reader)
			}
			if err != nil {
				log.Errorln(err)
				continue
			}
			fmt.Printf("n = %s\n", key.N.Hex())
		case "Encrypt":
			if len(fields) != 2 {
				fmt.Println("usage: Encrypt <hex plaintext>")
				continue
			}
			m, err := parseWord(fields[1])
			if err != nil {
				log.Errorln(err)
				continue
			}
			c := key.Encrypt(m)
			fmt.Printf("ciphertext: %s\n", c.Hex())
		case "Decrypt":
			if len(fields) < 2 {
				fmt.Println("usage: Decrypt <hex ciphertext> [more...]")
				continue
			}
			if err := Decrypt(host, key, fields[1:]); err != nil {
				continue
			}
		default:
			fmt.Printf("unknown stage %q\n", fields[0])
		}
	}
}

func main() {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := communication.LoadConnConfig(configPath)
	if err != nil {
		log.Errorln(err)
		os.Exit(1)
	}

	switch cfg.Role {
	case communication.RoleDevice:
		err = runDevice(cfg)
	case communication.RoleHost:
		err = runHost(cfg)
	default:
		err = fmt.Errorf("unknown role %q in %s", cfg.Role, configPath)
	}
	if err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
