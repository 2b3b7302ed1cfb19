package util

import (
	"errors"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// ImageExtensions maps the accepted image extensions to their content type
var ImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsValidImageFile checks if a filename has an accepted image extension
func IsValidImageFile(filename string) bool {
	_, ok := ImageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ValidateFilename checks if a display filename is valid
// Filename is required and cannot contain directory separators
// Must be <= 255 chars
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return errors.New("filename cannot contain directory paths")
	}
	if len(filename) > 255 {
		return errors.New("filename too long (max 255 characters)")
	}
	return nil
}

func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// NormalizeEmail trims and lowercases an address, returning "" if invalid
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ""
	}
	return email
}
