package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/parser"
)

func TestHeaderErrorMessage(t *testing.T) {
	t.Run("MissingOnly", func(t *testing.T) {
		msg := headerErrorMessage(&parser.Result{MissingHeaders: []string{"fain", "uri"}})
		assert.Equal(t, "file rejected: missing headers [fain uri]", msg)
	})

	t.Run("DuplicatedOnly", func(t *testing.T) {
		msg := headerErrorMessage(&parser.Result{DuplicatedHeaders: []string{"display_tas"}})
		assert.Equal(t, "file rejected: duplicated headers [display_tas]", msg)
	})

	t.Run("Both", func(t *testing.T) {
		msg := headerErrorMessage(&parser.Result{
			MissingHeaders:    []string{"fain"},
			DuplicatedHeaders: []string{"uri", "display_tas"},
		})
		assert.Equal(t, "file rejected: 1 missing and 2 duplicated headers", msg)
	})
}
