package ports

// ConfigParser decodes raw configuration bytes into a target struct.
type ConfigParser interface {
	// Parse unmarshals data into out, which must be a pointer.
	Parse(data []byte, out any) error
}
