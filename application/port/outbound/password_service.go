package outbound

type PasswordService interface {
	HashPassword(password string) (string, error)
	// VerifyPassword reports a mismatch as (false, nil). An error means the
	// stored hash itself is unusable.
	VerifyPassword(password, hash string) (bool, error)
	// SimulateVerify burns the same work as a real comparison for callers
	// that have no hash to compare against.
	SimulateVerify(password string)
	// NeedsRehash reports whether hash was made under a lower cost than the
	// one currently configured.
	NeedsRehash(hash string) bool
}
