package host

import (
	"path"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
)

// identifierPattern matches an ECMAScript IdentifierName.
var identifierPattern = regexp2.MustCompile(
	`^[\p{L}\p{Nl}$_][\p{L}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}$_\u200C\u200D]*$`,
	regexp2.None,
)

// reservedWords cannot name a namespace entry in strict mode.
var reservedWords = map[string]struct{}{
	"await": {}, "break": {}, "case": {}, "catch": {}, "class": {}, "const": {},
	"continue": {}, "debugger": {}, "default": {}, "delete": {}, "do": {},
	"else": {}, "enum": {}, "export": {}, "extends": {}, "false": {},
	"finally": {}, "for": {}, "function": {}, "if": {}, "implements": {},
	"import": {}, "in": {}, "instanceof": {}, "interface": {}, "let": {},
	"new": {}, "null": {}, "package": {}, "private": {}, "protected": {},
	"public": {}, "return": {}, "static": {}, "super": {}, "switch": {},
	"this": {}, "throw": {}, "true": {}, "try": {}, "typeof": {}, "var": {},
	"void": {}, "while": {}, "with": {}, "yield": {},
}

// fileStem strips the last extension. Dot-files keep their full name.
func fileStem(base string) string {
	ext := path.Ext(base)
	if ext == "" || ext == base {
		return base
	}
	return base[:len(base)-len(ext)]
}

// entryName derives the namespace key for the entry at rel. The stem is
// NFC-normalised so that differently composed file names collide. In strict
// mode it must also be a usable identifier.
func entryName(rel string, strict bool) (string, error) {
	stem := fileStem(path.Base(rel))
	invalid := func(reason string) error {
		return &domainerrors.InvalidNamespaceNameError{Path: rel, Name: stem, Reason: reason}
	}

	if !utf8.ValidString(stem) {
		return "", invalid("not valid UTF-8")
	}
	name := norm.NFC.String(stem)
	if name == "" {
		return "", invalid("empty name")
	}
	if !strict {
		return name, nil
	}

	ok, err := identifierPattern.MatchString(name)
	if err != nil || !ok {
		return "", invalid("not an identifier")
	}
	if _, reserved := reservedWords[name]; reserved {
		return "", invalid("reserved word")
	}
	return name, nil
}
