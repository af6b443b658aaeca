package project

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidPath is wrapped by every contract path error.
var ErrInvalidPath = errors.New("invalid contract path")

// NormalizeContractPath приводит путь контракта к каноническому виду
// "dir/file.sol:Name": NFC, прямые слэши, без пустых сегментов, "." и "..".
// Имя после двоеточия необязательно.
func NormalizeContractPath(path string) (string, error) {
	path = norm.NFC.String(strings.TrimSpace(path))
	file, name, hasName := strings.Cut(path, ":")
	file = strings.ReplaceAll(file, "\\", "/")
	for strings.HasPrefix(file, "./") {
		file = file[2:]
	}
	if file == "" {
		return "", fmt.Errorf("%w %q: empty file", ErrInvalidPath, path)
	}
	segments := strings.Split(file, "/")
	for i, seg := range segments {
		// ведущий "/" у абсолютного пути оставляем
		if seg == "" && i == 0 {
			continue
		}
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w %q: bad segment %q", ErrInvalidPath, path, seg)
		}
	}
	if !hasName {
		return file, nil
	}
	if !IsValidContractName(name) {
		return "", fmt.Errorf("%w %q: bad contract name %q", ErrInvalidPath, path, name)
	}
	return file + ":" + name, nil
}

// IsValidContractName reports whether name is an identifier.
func IsValidContractName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && r != '_' && r != '$' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
