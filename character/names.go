package character

import "golang.org/x/text/unicode/norm"

// NormalizeName returns the NFC form of a joint, slider or character name,
// so a name typed on the command line matches the one stored in the file
// whatever form each uses.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

func SameName(a, b string) bool {
	return a == b || NormalizeName(a) == NormalizeName(b)
}
