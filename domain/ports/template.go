package ports

// TemplateEngine renders templates with configuration values.
type TemplateEngine interface {
	// Render processes raw bytes with the provided data.
	// Returns resolved bytes with all template placeholders replaced.
	Render(raw []byte, data map[string]any) ([]byte, error)
}
