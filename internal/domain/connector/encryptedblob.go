package connector

import "errors"

// EncryptedBlob is an AES-GCM sealed value split into its parts.
type EncryptedBlob struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
}

func (b EncryptedBlob) IsZero() bool {
	return len(b.Ciphertext) == 0 && len(b.IV) == 0 && len(b.Tag) == 0
}

func (b EncryptedBlob) Validate() error {
	if len(b.Ciphertext) == 0 || len(b.IV) == 0 || len(b.Tag) == 0 {
		return errors.New("encrypted blob is incomplete")
	}
	return nil
}
