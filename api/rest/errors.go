// Package rest exposes the engine to host applications over HTTP.
package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/codepals/engine"
	"github.com/kasuganosora/codepals/game/session"
	"github.com/kasuganosora/codepals/save"
)

// writeError maps an engine or save error to a status code and JSON body.
func writeError(c *gin.Context, err error) {
	var (
		ve *save.ValidationError
		pe *save.ImportParseError
		se *save.StoreError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &pe):
		status = http.StatusBadRequest
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, save.ErrNoSave):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownZone), errors.Is(err, session.ErrUnknownSpecies):
		status = http.StatusBadRequest
	case errors.As(err, &se), errors.Is(err, engine.ErrDisposed):
		status = http.StatusServiceUnavailable
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
