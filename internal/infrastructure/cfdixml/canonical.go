package cfdixml

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"
)

// Canonicalize aplica C14N 1.0 (inclusiva, sin comentarios) al XML. La declaración XML
// no forma parte de la forma canónica.
func Canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(sinDeclaracion(data)))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("cfdixml: canonicalizar: %w", err)
	}
	return out, nil
}

// Huella SHA-256 en hexadecimal de la forma canónica del XML. Identifica el documento emitido
// sin depender de espacios ni del orden de las declaraciones de namespace.
func Huella(data []byte) (string, error) {
	canon, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func sinDeclaracion(data []byte) []byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return data
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return data
	}
	return bytes.TrimLeft(trimmed[end+2:], " \t\r\n")
}
