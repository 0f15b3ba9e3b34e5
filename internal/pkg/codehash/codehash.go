package codehash

import "golang.org/x/crypto/bcrypt"

// Hash digests a one-time code for storage. Challenges never keep the
// plaintext code at rest; only the outgoing email carries it.
func Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}
