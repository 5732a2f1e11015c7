package shop

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMatch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"LLLNNN|LLNNNLL", "abc123", true},
		{"LLLNNN|LLNNNLL", "AB 123 CD", true},
		{"LLLNNN|LLNNNLL", "ab-123-cd", true},
		{"LLLNNN|LLNNNLL", "ABC1234", false},
		{"LLLNNN|LLNNNLL", "123ABC", false},
		{"NNNNNNN|NNNNNNNN", "30.123.456", true},
		{"NNNNNNN|NNNNNNNN", "3012345", true},
		{"NNNNNNN|NNNNNNNN", "301234", false},
		{"XXX", "A1B", true},
		{"XXX", "A1_", false},
		{"LL/NN", "ab/12", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.pattern, tt.input), func(t *testing.T) {
			f, err := CompileFormat(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(tt.input))
		})
	}
}

func TestCompileFormatRejectsEmpty(t *testing.T) {
	_, err := CompileFormat("")
	assert.Error(t, err)

	_, err = CompileFormat("LLL||NNN")
	assert.Error(t, err)

	assert.Panics(t, func() { MustCompileFormat("") })
}

func TestFormatExample(t *testing.T) {
	assert.Equal(t, "ABC123", MustCompileFormat("LLLNNN|LLNNNLL").Example())
	assert.Equal(t, "AB123CD", MustCompileFormat("LLNNNLL").Example())
	assert.True(t, MustCompileFormat("NNNLLL").Match(MustCompileFormat("NNNLLL").Example()))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB123CD", NormalizeCode("  ab 123-cd "))
	assert.Equal(t, "30123456", NormalizeCode("30.123.456"))
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	dni, ok := c.DocumentType("DNI")
	require.True(t, ok)
	assert.True(t, dni.Format.Match("30123456"))

	_, ok = c.DocumentType("XYZ")
	assert.False(t, ok)

	moto, ok := c.VehicleType("MOTO")
	require.True(t, ok)
	assert.True(t, moto.PlateFormat.Match("123ABC"))
	assert.False(t, moto.PlateFormat.Match("ABC123"))

	assert.True(t, AnyPlateFormat(c, "ab123cd"))
	assert.True(t, AnyPlateFormat(c, "A123BCD"))
	assert.False(t, AnyPlateFormat(c, "hello"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{fmt.Errorf("x: %w", ErrNotFound), ErrTypeNotFound, false},
		{fmt.Errorf("x: %w", ErrDuplicate), ErrTypeDuplicate, false},
		{context.DeadlineExceeded, ErrTypeTimeout, true},
		{errors.New("boom"), ErrTypeInternal, true},
	}
	for _, tt := range tests {
		e := Classify(tt.err)
		assert.Equal(t, tt.wantType, e.Type, tt.err.Error())
		assert.Equal(t, tt.retryable, e.Retryable)
		assert.NotEmpty(t, e.Message)
		assert.ErrorIs(t, e, tt.err)
	}
}
