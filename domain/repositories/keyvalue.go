package repositories

// KeyValueStore is the persistence capability used by the Session and
// Cart cores to survive restarts. Values are opaque strings; the cores own
// their serialization. Implementations must behave synchronously from the
// caller's perspective.
type KeyValueStore interface {
	// Get returns the stored value and whether the key was present. An
	// unreadable or corrupt value is reported as absent.
	Get(key string) (string, bool)

	// Set stores value under key. Failures are silent; the caller's
	// in-memory state still reflects the write.
	Set(key, value string)

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string)
}
