// Package policy resolves and whitelists the file extension and content type of an upload.
package policy

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultExtension is used when nothing better can be derived.
	DefaultExtension = "bin"
	// DefaultContentType is used when nothing better can be derived.
	DefaultContentType = "application/octet-stream"
)

// extensions commonly missing from the built-in table on minimal hosts.
var fallbackTypes = map[string]string{
	".txt": "text/plain",
	".csv": "text/csv",
	".bin": DefaultContentType,
}

func init() {
	for ext, typ := range fallbackTypes {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// Resolution is a whitelisted extension/content type pair.
type Resolution struct {
	Extension   string
	ContentType string
}

// Engine holds the process-wide whitelists. It is read-only after construction.
type Engine struct {
	extensions   map[string]struct{}
	contentTypes map[string]struct{}
	extList      []string
	typeList     []string
}

// NewEngine builds an engine. Extensions match case-insensitively (leading dots
// are ignored), content types match exactly.
func NewEngine(allowedExtensions, allowedContentTypes []string) *Engine {
	e := &Engine{
		extensions:   make(map[string]struct{}, len(allowedExtensions)),
		contentTypes: make(map[string]struct{}, len(allowedContentTypes)),
		extList:      append([]string(nil), allowedExtensions...),
		typeList:     append([]string(nil), allowedContentTypes...),
	}
	for _, ext := range allowedExtensions {
		e.extensions[normalizeExtension(ext)] = struct{}{}
	}
	for _, typ := range allowedContentTypes {
		e.contentTypes[strings.TrimSpace(typ)] = struct{}{}
	}
	return e
}

// AllowedExtensions returns the configured extension whitelist.
func (e *Engine) AllowedExtensions() []string {
	return append([]string(nil), e.extList...)
}

// AllowedContentTypes returns the configured content type whitelist.
func (e *Engine) AllowedContentTypes() []string {
	return append([]string(nil), e.typeList...)
}

// Resolve fills in whichever of ext/contentType is empty from the other and
// checks both against the whitelists.
func (e *Engine) Resolve(ext, contentType string) (Resolution, error) {
	ext = normalizeExtension(ext)
	contentType = strings.TrimSpace(contentType)

	switch {
	case ext == "" && contentType == "":
		ext, contentType = DefaultExtension, DefaultContentType
	case ext == "":
		ext = ExtensionForType(contentType)
	case contentType == "":
		contentType = TypeForExtension(ext)
	}

	_, extOK := e.extensions[ext]
	_, typeOK := e.contentTypes[contentType]
	if !extOK || !typeOK {
		return Resolution{}, &UnsupportedTypeError{
			Extension:           ext,
			ContentType:         contentType,
			AllowedExtensions:   e.AllowedExtensions(),
			AllowedContentTypes: e.AllowedContentTypes(),
		}
	}

	return Resolution{Extension: ext, ContentType: contentType}, nil
}

// ExtensionForType returns the canonical extension (without dot) for a content type.
func ExtensionForType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	m := mimetype.Lookup(contentType)
	if m == nil {
		return DefaultExtension
	}
	ext := strings.TrimPrefix(m.Extension(), ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// TypeForExtension returns the content type for an extension, without parameters.
func TypeForExtension(ext string) string {
	typ := mime.TypeByExtension("." + normalizeExtension(ext))
	if typ == "" {
		return DefaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return DefaultContentType
	}
	return mediaType
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
