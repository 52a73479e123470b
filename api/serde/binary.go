package serde

// BinarySerde converts between Go values and their wire representation.
// Implementations must be safe for concurrent use; a single instance is
// shared by every in-flight invocation.
type BinarySerde interface {
	SerializeBinary(value any) ([]byte, error)
	DeserializeBinary(data []byte, valuePtr any) error
}

// Default returns the serde used when a caller supplies none.
func Default() BinarySerde {
	return &JsonSerde{}
}
