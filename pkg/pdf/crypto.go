package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/xdg-go/stringprep"
)

var (
	// ErrEncrypted is returned when an encrypted document has not been
	// unlocked with a valid password.
	ErrEncrypted = errors.New("pdf: document is encrypted")
	// ErrInvalidPassword is returned when neither the user nor the owner
	// password matches.
	ErrInvalidPassword = errors.New("pdf: invalid password")
)

// cipherKind is the algorithm a crypt filter uses.
type cipherKind int

const (
	cipherIdentity cipherKind = iota
	cipherRC4
	cipherAES
)

// SecurityHandler implements the standard security handler (revisions 2-6).
type SecurityHandler struct {
	Version     int // V value (1-5)
	Revision    int // R value (2-6)
	KeyLength   int // in bytes
	Permissions uint32
	OwnerKey    []byte // O
	UserKey     []byte // U
	OwnerEnc    []byte // OE
	UserEnc     []byte // UE
	Perms       []byte
	EncryptMeta bool
	ID          []byte

	streamCipher cipherKind
	stringCipher cipherKind

	key                []byte
	ownerAuthenticated bool
}

// passwordPadding is the fixed 32 byte pad from the standard security handler
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// newSecurityHandler reads the encryption dictionary. id is the first
// element of the trailer /ID array.
func newSecurityHandler(dict Dictionary, id []byte) (*SecurityHandler, error) {
	if filter, _ := dict.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("unsupported security handler %q", filter)
	}

	sh := &SecurityHandler{EncryptMeta: true, ID: id, KeyLength: 5}
	if v, ok := dict.GetInt("V"); ok {
		sh.Version = int(v)
	}
	if r, ok := dict.GetInt("R"); ok {
		sh.Revision = int(r)
	}
	if length, ok := dict.GetInt("Length"); ok && length >= 40 {
		sh.KeyLength = int(length / 8)
	}
	if p, ok := dict.GetInt("P"); ok {
		sh.Permissions = uint32(int32(p))
	}
	if em, ok := dict.GetBool("EncryptMetadata"); ok {
		sh.EncryptMeta = em
	}

	str := func(key string) []byte {
		if s, ok := dict.Get(key).(String); ok {
			return s.Value
		}
		return nil
	}
	sh.OwnerKey = str("O")
	sh.UserKey = str("U")
	sh.OwnerEnc = str("OE")
	sh.UserEnc = str("UE")
	sh.Perms = str("Perms")

	switch sh.Version {
	case 1, 2, 3:
		sh.streamCipher, sh.stringCipher = cipherRC4, cipherRC4
		if sh.Version == 1 {
			sh.KeyLength = 5
		}
	case 4, 5:
		cf, _ := dict.GetDict("CF")
		stmF, ok := dict.GetName("StmF")
		if !ok {
			stmF = "Identity"
		}
		strF, ok := dict.GetName("StrF")
		if !ok {
			strF = "Identity"
		}
		var err error
		if sh.streamCipher, err = sh.cryptFilter(stmF, cf); err != nil {
			return nil, err
		}
		if sh.stringCipher, err = sh.cryptFilter(strF, cf); err != nil {
			return nil, err
		}
		if sh.Version == 5 {
			sh.KeyLength = 32
		}
	default:
		return nil, fmt.Errorf("unsupported encryption version %d", sh.Version)
	}

	if sh.KeyLength > 16 && sh.Revision < 5 {
		sh.KeyLength = 16
	}
	if sh.Revision >= 5 && (len(sh.UserKey) < 48 || len(sh.OwnerKey) < 48) {
		return nil, errors.New("malformed AES-256 encryption dictionary")
	}

	return sh, nil
}

func (sh *SecurityHandler) cryptFilter(name Name, cf Dictionary) (cipherKind, error) {
	if name == "Identity" {
		return cipherIdentity, nil
	}
	entry, ok := cf.GetDict(string(name))
	if !ok {
		return cipherIdentity, fmt.Errorf("missing crypt filter %s", name)
	}
	switch cfm, _ := entry.GetName("CFM"); cfm {
	case "V2":
		if l, ok := entry.GetInt("Length"); ok && sh.Version == 4 {
			// Length may be given in bits or bytes
			if l > 16 {
				l /= 8
			}
			if l >= 5 {
				sh.KeyLength = int(l)
			}
		}
		return cipherRC4, nil
	case "AESV2":
		sh.KeyLength = 16
		return cipherAES, nil
	case "AESV3":
		return cipherAES, nil
	case "None":
		return cipherIdentity, nil
	}
	return cipherIdentity, fmt.Errorf("unknown crypt filter method for %s", name)
}

// Authenticate tries password first as owner, then as user password.
func (sh *SecurityHandler) Authenticate(password string) bool {
	if sh.Revision >= 5 {
		pw, err := utf8Password(password)
		if err != nil {
			return false
		}
		return sh.authenticateOwner6(pw) || sh.authenticateUser6(pw)
	}
	padded := padPassword(password)
	return sh.authenticateOwner(padded) || sh.authenticateUser(padded)
}

// computeEncryptionKey is algorithm 2 (revisions 2-4).
func (sh *SecurityHandler) computeEncryptionKey(padded []byte) []byte {
	h := md5.New()
	h.Write(padded)
	h.Write(sh.OwnerKey)
	p := sh.Permissions
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(sh.ID)
	if sh.Revision >= 4 && !sh.EncryptMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := h.Sum(nil)

	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:sh.KeyLength])
			key = sum[:]
		}
	}
	return key[:sh.KeyLength]
}

// computeUserKey is algorithms 4 and 5.
func (sh *SecurityHandler) computeUserKey(key []byte) []byte {
	if sh.Revision >= 3 {
		h := md5.New()
		h.Write(passwordPadding)
		h.Write(sh.ID)
		result := h.Sum(nil)
		rc4Rounds(result, key, 0, 19)
		return result
	}

	c, _ := rc4.NewCipher(key)
	result := make([]byte, 32)
	c.XORKeyStream(result, passwordPadding)
	return result
}

// rc4Rounds encrypts buf in place with key XOR i for each round i.
func rc4Rounds(buf, key []byte, from, to int) {
	tmp := make([]byte, len(key))
	step := 1
	if to < from {
		step = -1
	}
	for i := from; ; i += step {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(buf, buf)
		if i == to {
			break
		}
	}
}

func (sh *SecurityHandler) authenticateUser(padded []byte) bool {
	key := sh.computeEncryptionKey(padded)
	computed := sh.computeUserKey(key)

	n := 32
	if sh.Revision >= 3 {
		n = 16
	}
	if len(sh.UserKey) < n || len(computed) < n || !bytes.Equal(computed[:n], sh.UserKey[:n]) {
		return false
	}
	sh.key = key
	return true
}

func (sh *SecurityHandler) authenticateOwner(padded []byte) bool {
	sum := md5.Sum(padded)
	hashed := sum[:]
	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(hashed)
			hashed = s[:]
		}
	}
	key := hashed[:sh.KeyLength]

	userPwd := make([]byte, len(sh.OwnerKey))
	copy(userPwd, sh.OwnerKey)
	if sh.Revision >= 3 {
		rc4Rounds(userPwd, key, 19, 0)
	} else {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(userPwd, userPwd)
	}

	if sh.authenticateUser(userPwd) {
		sh.ownerAuthenticated = true
		return true
	}
	return false
}

// slowHash is algorithm 2.B (revision 6). Revision 5 uses a single SHA-256.
func (sh *SecurityHandler) slowHash(passwd, salt, u []byte) []byte {
	h := sha256.New()
	h.Write(passwd)
	h.Write(salt)
	h.Write(u)
	k := h.Sum(nil)
	if sh.Revision == 5 {
		return k
	}

	k1 := make([]byte, 0, 64*(len(passwd)+64+len(u)))
	for i := 0; i < 64 || int(k1[len(k1)-1]) > i-32; i++ {
		k1 = k1[:0]
		for j := 0; j < 64; j++ {
			k1 = append(k1, passwd...)
			k1 = append(k1, k...)
			k1 = append(k1, u...)
		}

		c, _ := aes.NewCipher(k[:16])
		cipher.NewCBCEncrypter(c, k[16:32]).CryptBlocks(k1, k1)

		rem := 0
		for _, b := range k1[:16] {
			rem += int(b)
		}
		var next hash.Hash
		switch rem % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(k1)
		k = next.Sum(nil)
	}
	return k[:32]
}

var zeroIV = make([]byte, 16)

func (sh *SecurityHandler) authenticateUser6(pw []byte) bool {
	if !bytes.Equal(sh.slowHash(pw, sh.UserKey[32:40], nil), sh.UserKey[:32]) {
		return false
	}
	return sh.unwrapKey(sh.slowHash(pw, sh.UserKey[40:48], nil), sh.UserEnc)
}

func (sh *SecurityHandler) authenticateOwner6(pw []byte) bool {
	u := sh.UserKey[:48]
	if !bytes.Equal(sh.slowHash(pw, sh.OwnerKey[32:40], u), sh.OwnerKey[:32]) {
		return false
	}
	if sh.unwrapKey(sh.slowHash(pw, sh.OwnerKey[40:48], u), sh.OwnerEnc) {
		sh.ownerAuthenticated = true
		return true
	}
	return false
}

func (sh *SecurityHandler) unwrapKey(intermediate, wrapped []byte) bool {
	if len(wrapped) < 32 {
		return false
	}
	c, err := aes.NewCipher(intermediate)
	if err != nil {
		return false
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(c, zeroIV).CryptBlocks(key, wrapped[:32])

	if len(sh.Perms) >= 16 {
		buf := make([]byte, 16)
		pc, _ := aes.NewCipher(key)
		pc.Decrypt(buf, sh.Perms[:16])
		if !bytes.Equal(buf[9:12], []byte("adb")) ||
			binary.LittleEndian.Uint32(buf[:4]) != sh.Permissions {
			return false
		}
	}
	sh.key = key
	return true
}

// utf8Password normalises an AES-256 password with SASLprep and truncates it
// to 127 bytes.
func utf8Password(password string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(password)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	buf := []byte(prepped)
	if len(buf) > 127 {
		buf = buf[:127]
	}
	return buf, nil
}

// padPassword pads a password to 32 bytes
func padPassword(password string) []byte {
	pwd := []byte(password)
	if len(pwd) > 32 {
		pwd = pwd[:32]
	}
	result := make([]byte, 32)
	copy(result, pwd)
	copy(result[len(pwd):], passwordPadding)
	return result
}

// objectKey is algorithm 1: the per-object key for revisions 2-4.
func (sh *SecurityHandler) objectKey(kind cipherKind, objNum, genNum int) []byte {
	if sh.Revision >= 5 {
		return sh.key
	}
	h := md5.New()
	h.Write(sh.key)
	h.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16), byte(genNum), byte(genNum >> 8)})
	if kind == cipherAES {
		h.Write([]byte("sAlT"))
	}
	n := len(sh.key) + 5
	if n > 16 {
		n = 16
	}
	return h.Sum(nil)[:n]
}

func (sh *SecurityHandler) decrypt(kind cipherKind, data []byte, objNum, genNum int) ([]byte, error) {
	if sh.key == nil {
		return nil, ErrEncrypted
	}
	switch kind {
	case cipherRC4:
		c, err := rc4.NewCipher(sh.objectKey(kind, objNum, genNum))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	case cipherAES:
		return decryptAES(data, sh.objectKey(kind, objNum, genNum))
	default:
		return data, nil
	}
}

// decryptAES decrypts data using AES-CBC with the IV in the first block.
func decryptAES(data, key []byte) ([]byte, error) {
	if len(data) < 16 {
		return nil, errors.New("data too short for AES")
	}
	iv, ciphertext := data[:16], data[16:]
	// tolerate trailing garbage by dropping a partial final block
	ciphertext = ciphertext[:len(ciphertext)/aes.BlockSize*aes.BlockSize]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	if n := len(plaintext); n > 0 {
		padLen := int(plaintext[n-1])
		if padLen > 0 && padLen <= 16 && padLen <= n {
			plaintext = plaintext[:n-padLen]
		}
	}
	return plaintext, nil
}

// decryptObject decrypts every string and stream body of an object loaded
// as indirect object num/gen.
func (sh *SecurityHandler) decryptObject(obj Object, objNum, genNum int) Object {
	switch v := obj.(type) {
	case String:
		out, err := sh.decrypt(sh.stringCipher, v.Value, objNum, genNum)
		if err != nil {
			return v
		}
		return String{Value: out, IsHex: v.IsHex}
	case Array:
		res := make(Array, len(v))
		for i, e := range v {
			res[i] = sh.decryptObject(e, objNum, genNum)
		}
		return res
	case Dictionary:
		res := make(Dictionary, len(v))
		for k, e := range v {
			res[k] = sh.decryptObject(e, objNum, genNum)
		}
		return res
	case Stream:
		dict := sh.decryptObject(v.Dictionary, objNum, genNum).(Dictionary)
		if t, _ := v.Dictionary.GetName("Type"); t == "XRef" {
			return Stream{Dictionary: dict, Data: v.Data}
		}
		kind := sh.streamCipher
		if streamUsesIdentityCrypt(v.Dictionary) {
			kind = cipherIdentity
		}
		if t, _ := v.Dictionary.GetName("Type"); t == "Metadata" && !sh.EncryptMeta {
			kind = cipherIdentity
		}
		data, err := sh.decrypt(kind, v.Data, objNum, genNum)
		if err != nil {
			data = v.Data
		}
		return Stream{Dictionary: dict, Data: data}
	}
	return obj
}

func streamUsesIdentityCrypt(dict Dictionary) bool {
	for _, st := range (Stream{Dictionary: dict}).Filters() {
		if st.Name == "Crypt" {
			name, ok := st.Params.GetName("Name")
			return !ok || name == "Identity"
		}
	}
	return false
}

// CanPrint returns true if printing is allowed
func (sh *SecurityHandler) CanPrint() bool {
	return sh.ownerAuthenticated || sh.Permissions&0x04 != 0
}

// CanCopy returns true if copying is allowed
func (sh *SecurityHandler) CanCopy() bool {
	return sh.ownerAuthenticated || sh.Permissions&0x10 != 0
}
