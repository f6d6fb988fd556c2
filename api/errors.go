package api

import (
	"errors"
	"net/http"

	"arenawager/service"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

var unprocessable = map[service.RejectionReason]bool{
	service.ReasonBelowMinimum:      true,
	service.ReasonAboveMaximum:      true,
	service.ReasonInsufficientFunds: true,
	service.ReasonSelfAccept:        true,
}

// respondError maps domain errors onto status codes
func respondError(c echo.Context, err error) error {
	var we *service.WagerError
	if errors.As(err, &we) {
		status := http.StatusConflict
		if unprocessable[we.Reason] {
			status = http.StatusUnprocessableEntity
		}
		if we.Reason == service.ReasonNotInMatch {
			status = http.StatusNotFound
		}
		return c.JSON(status, ErrorResponse{Error: we.Message, Reason: string(we.Reason)})
	}

	switch {
	case errors.Is(err, service.ErrArenaNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrArenaExists), errors.Is(err, service.ErrArenaInUse):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrArenaNotReady):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	}

	log.WithFields(log.Fields{
		"path":  c.Path(),
		"error": err,
	}).Error("Request failed")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
