package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"crypto/sha256"
	"testing"
)

// TestPadPassword tests padding and truncation to 32 bytes
func TestPadPassword(t *testing.T) {
	if got := padPassword(""); !bytes.Equal(got, passwordPadding) {
		t.Errorf("Expected the bare padding, got %x", got)
	}
	got := padPassword("abc")
	if len(got) != 32 || string(got[:3]) != "abc" || !bytes.Equal(got[3:], passwordPadding[:29]) {
		t.Errorf("Unexpected padded password %x", got)
	}
	if got := padPassword(string(bytes.Repeat([]byte("x"), 40))); len(got) != 32 {
		t.Errorf("Expected 32 bytes, got %d", len(got))
	}
}

// TestUTF8Password tests SASLprep normalisation of AES-256 passwords
func TestUTF8Password(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"ascii", "secret", "secret", false},
		{"soft hyphen removed", "I\u00adX", "IX", false},
		{"non-ascii space", "a\u00a0b", "a b", false},
		{"prohibited control", "a\u0007b", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utf8Password(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("utf8Password failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestRC4Handler tests user authentication and string decryption for
// revision 3
func TestRC4Handler(t *testing.T) {
	sh := &SecurityHandler{
		Version:      2,
		Revision:     3,
		KeyLength:    16,
		Permissions:  0xFFFFFFFC,
		OwnerKey:     bytes.Repeat([]byte{'o'}, 32),
		ID:           []byte("0123456789abcdef"),
		EncryptMeta:  true,
		streamCipher: cipherRC4,
		stringCipher: cipherRC4,
	}
	key := sh.computeEncryptionKey(padPassword("user"))
	sh.UserKey = append(sh.computeUserKey(key)[:16], make([]byte, 16)...)

	if sh.Authenticate("wrong") {
		t.Fatal("Expected the wrong password to be rejected")
	}
	if !sh.Authenticate("user") {
		t.Fatal("Expected the user password to authenticate")
	}

	plain := []byte("secret text")
	c, _ := rc4.NewCipher(sh.objectKey(cipherRC4, 7, 0))
	enc := make([]byte, len(plain))
	c.XORKeyStream(enc, plain)

	got := sh.decryptObject(Array{String{Value: enc}}, 7, 0).(Array)
	if s := got[0].(String); !bytes.Equal(s.Value, plain) {
		t.Errorf("Expected %q, got %q", plain, s.Value)
	}
	if !sh.CanCopy() {
		t.Error("Expected copying to be permitted")
	}
}

// TestAES256Handler tests revision 5 key unwrapping and AES decryption
func TestAES256Handler(t *testing.T) {
	pw := []byte("pässword")
	fileKey := bytes.Repeat([]byte{0x42}, 32)
	vsalt, ksalt := []byte("vvvvvvvv"), []byte("kkkkkkkk")

	hash := func(parts ...[]byte) []byte {
		h := sha256.New()
		for _, p := range parts {
			h.Write(p)
		}
		return h.Sum(nil)
	}
	u := append(append(hash(pw, vsalt), vsalt...), ksalt...)
	ue := make([]byte, 32)
	block, _ := aes.NewCipher(hash(pw, ksalt))
	cipher.NewCBCEncrypter(block, make([]byte, 16)).CryptBlocks(ue, fileKey)

	sh := &SecurityHandler{
		Version:      5,
		Revision:     5,
		KeyLength:    32,
		UserKey:      u,
		OwnerKey:     make([]byte, 48),
		UserEnc:      ue,
		EncryptMeta:  true,
		streamCipher: cipherAES,
		stringCipher: cipherAES,
	}
	if !sh.Authenticate(string(pw)) {
		t.Fatal("Expected the user password to authenticate")
	}
	if !bytes.Equal(sh.key, fileKey) {
		t.Fatalf("Expected the unwrapped file key, got %x", sh.key)
	}

	// one block of plaintext plus a full block of PKCS#7 padding
	plain := []byte("0123456789abcdef")
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{16}, 16)...)
	iv := []byte("iviviviviviviviv")
	enc := make([]byte, len(padded))
	fb, _ := aes.NewCipher(fileKey)
	cipher.NewCBCEncrypter(fb, iv).CryptBlocks(enc, padded)

	s := sh.decryptObject(Stream{Dictionary: Dictionary{}, Data: append(iv, enc...)}, 3, 0).(Stream)
	if !bytes.Equal(s.Data, plain) {
		t.Errorf("Expected %q, got %q", plain, s.Data)
	}
}
