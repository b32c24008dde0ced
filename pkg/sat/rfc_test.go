package sat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cfdi-generator/pkg/sat"
)

func TestValidateRFC(t *testing.T) {
	validos := []string{"EKU9003173C9", "XAXX010101000", "CACX7605101P8", "ÑAÑ010101AB1", "A&C010101AB1"}
	for _, rfc := range validos {
		assert.NoError(t, sat.ValidateRFC(rfc), "RFC %s debe ser válido", rfc)
	}
	invalidos := []string{"", "EKU9003173C", "eku9003173c9", "EK9003173C9X1", "EKU90031A3C9"}
	for _, rfc := range invalidos {
		assert.Error(t, sat.ValidateRFC(rfc), "RFC %q debe ser inválido", rfc)
	}
}

func TestEsPersonaMoral(t *testing.T) {
	assert.True(t, sat.EsPersonaMoral("EKU9003173C9"))
	assert.False(t, sat.EsPersonaMoral("CACX7605101P8"))
}

func TestEsRFCGenerico(t *testing.T) {
	assert.True(t, sat.EsRFCGenerico("XEXX010101000"))
	assert.True(t, sat.EsRFCGenerico(" xaxx010101000 "))
	assert.False(t, sat.EsRFCGenerico("EKU9003173C9"))
}
