/*
 * MIT License
 *
 * Copyright (c) 2024 lecnet contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package certgen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// GenerateKey creates a new RSA private key per KeyParams.
func GenerateKey(p KeyParams) (*rsa.PrivateKey, error) {
	bits := p.Bits
	if bits <= 0 {
		bits = 2048
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("certgen: generate rsa key: %w", err)
	}

	return key, nil
}

// EncodeKeyPEM encodes key as a PKCS#1 PEM block. If password is non-empty
// the block is legacy-encrypted (DEK-Info header), mirroring the
// password-protected private key lecnet writes to server.crt/ca.crt.
//
// Legacy PEM encryption is weak by modern standards (no authentication,
// vulnerable to known-plaintext attacks) but it is what the tcp server's
// server_cert_key_password loader expects to unwrap, so it is kept here for
// protocol parity rather than as a general-purpose recommendation.
func EncodeKeyPEM(key *rsa.PrivateKey, password string) ([]byte, error) {
	der := x509.MarshalPKCS1PrivateKey(key)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: der,
	}

	if password != "" {
		//nolint:staticcheck // intentional: legacy PEM encryption for wire/format parity, see doc comment
		encBlock, err := x509.EncryptPEMBlock(rand.Reader, block.Type, der, []byte(password), x509.PEMCipherAES256)
		if err != nil {
			return nil, fmt.Errorf("certgen: encrypt private key: %w", err)
		}
		block = encBlock
	}

	return pem.EncodeToMemory(block), nil
}

// DecodeKeyPEM parses the first PEM-encoded private key block in data,
// skipping any other blocks ahead of it (e.g. the certificate in a combined
// cert+key file), decrypting it with password first if the block carries a
// DEK-Info header.
func DecodeKeyPEM(data []byte, password string) (*rsa.PrivateKey, error) {
	var block *pem.Block
	for rest := data; ; {
		block, rest = pem.Decode(rest)
		if block == nil || strings.HasSuffix(block.Type, "PRIVATE KEY") {
			break
		}
	}
	if block == nil {
		return nil, fmt.Errorf("certgen: no PEM block found in key data")
	}

	der := block.Bytes

	//nolint:staticcheck // see EncodeKeyPEM
	if x509.IsEncryptedPEMBlock(block) {
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("certgen: decrypt private key: %w", err)
		}
		der = decrypted
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("certgen: parse private key: %w", err)
	}

	rsaKey, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("certgen: key is not an RSA private key")
	}

	return rsaKey, nil
}
