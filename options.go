package vellum

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	ignoreEncryption bool
}

func defaultLoadOptions() loadOptions {
	return loadOptions{
		ignoreEncryption: false,
	}
}

// WithIgnoreEncryption makes Load accept encrypted files without decrypting
// them. Stream payloads remain ciphertext; the Encrypt reference is
// preserved and written back on Save.
func WithIgnoreEncryption() LoadOption {
	return func(o *loadOptions) {
		o.ignoreEncryption = true
	}
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

type saveOptions struct {
	objectStreams bool
	defaultPage   bool
}

func defaultSaveOptions() saveOptions {
	return saveOptions{
		objectStreams: true,
		defaultPage:   true,
	}
}

// WithObjectStreams selects between the compressed object-stream layout
// (true, the default) and the classic cross-reference table layout.
func WithObjectStreams(enabled bool) SaveOption {
	return func(o *saveOptions) {
		o.objectStreams = enabled
	}
}

// WithDefaultPage controls whether saving a document with no pages first
// adds one blank page (true, the default) or writes a zero-page file.
func WithDefaultPage(enabled bool) SaveOption {
	return func(o *saveOptions) {
		o.defaultPage = enabled
	}
}
