// Package envelope unwraps client-encrypted selfie uploads into raw image
// bytes. Clients send either a JSON envelope {"data": "<ciphertext>"} or the
// bare ciphertext string; both forms are accepted.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/faceauth/pwd-manager/core/crypto"
)

// ErrDecryptionFailed marks an upload that could not be decrypted under any
// of the candidate keys.
var ErrDecryptionFailed = errors.New("selfie decryption failed")

type payload struct {
	Data string `json:"data"`
}

// Opener decrypts selfie envelopes with an ordered list of candidate keys.
type Opener struct {
	cipher *crypto.Cipher
	log    *slog.Logger
}

func NewOpener(c *crypto.Cipher, log *slog.Logger) *Opener {
	return &Opener{cipher: c, log: log}
}

// Open parses raw as an envelope and tries each candidate key strictly in
// order, returning the decoded image bytes from the first key that succeeds.
// Every failed attempt is recorded; the final error aggregates all of them so
// a total failure is diagnosable instead of a silent empty result.
func (o *Opener) Open(raw []byte, keys ...string) ([]byte, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no candidate keys", ErrDecryptionFailed)
	}

	// Malformed-envelope tolerance: if the body is not the expected JSON,
	// the whole text is treated as the ciphertext.
	var env payload
	if err := json.Unmarshal(raw, &env); err != nil {
		env.Data = string(raw)
	}

	var attempts error
	for i, key := range keys {
		plaintext := o.cipher.Decrypt(env.Data, key)
		if plaintext == "" {
			attempts = multierr.Append(attempts,
				fmt.Errorf("key %d/%d: decryption produced empty result", i+1, len(keys)))
			continue
		}
		img, err := base64.StdEncoding.DecodeString(plaintext)
		if err != nil {
			attempts = multierr.Append(attempts,
				fmt.Errorf("key %d/%d: decoding decrypted payload: %v", i+1, len(keys), err))
			continue
		}
		return img, nil
	}

	o.log.Warn("could not decrypt selfie with any candidate key",
		"keys_tried", len(keys), "error", attempts)
	return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, attempts)
}
