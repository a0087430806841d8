// Package secretbox implementa el cifrado simétrico de los secretos de cliente.
//
// La clave maestra se deriva de una password (PBKDF2-SHA256) y los secretos
// se cifran con AES-256-GCM en formato base64(nonce)|base64(ciphertext).
// El Box se construye explícitamente y se inyecta donde haga falta: no hay
// estado global de paquete.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSizeGCM  = 12 // AES-GCM nonce recomendado (96 bits)
	derivedKeyLen = 32 // 32 bytes => AES-256
	secretLen     = 32 // largo del secreto aleatorio generado
	kdfIterations = 100000
	sep           = "|" // nonce|ciphertext (ambos en base64)
)

// kdfSalt es fija a propósito: la derivación tiene que ser determinística
// para poder descifrar ciphertexts persistidos tras un reinicio del proceso,
// sin un almacén de salts aparte. Ver DESIGN.md.
var kdfSalt = []byte("static_salt_123")

// ErrDecrypt indica que el ciphertext no pudo descifrarse: formato inválido,
// tag de autenticación que no verifica, o clave maestra distinta.
var ErrDecrypt = errors.New("secretbox: decrypt failed")

// Box cifra/descifra secretos bajo una clave derivada de la password maestra.
type Box struct {
	aead cipher.AEAD
}

// DeriveKey deriva la clave de cifrado desde la password maestra.
// PBKDF2-HMAC-SHA256, salt fija, 100000 iteraciones, 32 bytes.
func DeriveKey(password string) []byte {
	return pbkdf2.Key([]byte(password), kdfSalt, kdfIterations, derivedKeyLen, sha256.New)
}

// New construye un Box desde la password maestra.
func New(password string) (*Box, error) {
	if strings.TrimSpace(password) == "" {
		return nil, errors.New("secretbox: password maestra vacía")
	}
	block, err := aes.NewCipher(DeriveKey(password))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// GenerateSecret genera un secreto aleatorio de 32 bytes en base64.
func (b *Box) GenerateSecret() (string, error) {
	raw := make([]byte, secretLen)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("secret random: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
// Cada llamada usa un nonce fresco: dos cifrados del mismo plaintext
// producen ciphertexts distintos.
func (b *Box) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plainText), nil)

	nonceB64 := base64.StdEncoding.EncodeToString(nonce)
	ctB64 := base64.StdEncoding.EncodeToString(ct)
	return nonceB64 + sep + ctB64, nil
}

// Decrypt recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
// Cualquier fallo (formato, tag, clave) se reporta como ErrDecrypt.
func (b *Box) Decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: formato inválido, se espera base64(nonce)|base64(ciphertext)", ErrDecrypt)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode nonce: %v", ErrDecrypt, err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrDecrypt, err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("%w: nonce de %d bytes, se esperan %d", ErrDecrypt, len(nonce), nonceSizeGCM)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: gcm auth", ErrDecrypt)
	}
	return string(pt), nil
}

// SecureCompare compara dos strings en tiempo constante.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// CompareToEncrypted descifra encSecret y lo compara en tiempo constante
// contra plainSecret. Un fallo de descifrado se trata como no-match: nunca
// propaga el error (se usa sólo para comparación).
func (b *Box) CompareToEncrypted(plainSecret, encSecret string) bool {
	pt, err := b.Decrypt(encSecret)
	if err != nil {
		return false
	}
	return SecureCompare(plainSecret, pt)
}
