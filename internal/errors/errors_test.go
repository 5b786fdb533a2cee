package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := NotFound("study NCT0000")
	wrapped := Wrap(base, "load overview")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "load overview: study NCT0000 not found", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestGetCode_PlainAndNested(t *testing.T) {
	assert.Equal(t, CodeInternalError, GetCode(stderrors.New("boom")))

	nested := fmt.Errorf("handler: %w", SpecInvalid(stderrors.New("bad path")))
	assert.Equal(t, CodeSpecInvalid, GetCode(nested))
	assert.True(t, HasCode(nested, CodeSpecInvalid))
	assert.False(t, HasCode(nil, CodeSpecInvalid))
	assert.True(t, IsAppError(nested))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, stderrors.New("missing study"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Nil(t, WithCode(CodeInvalidInput, nil))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
}

func TestDocumentUnavailable(t *testing.T) {
	err := DocumentUnavailable("Non_F508", stderrors.New("no such file"))
	assert.Equal(t, `study "Non_F508" unavailable: no such file`, err.Error())
}
