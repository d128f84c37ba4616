// Package http реализует публичный HTTP-транспорт identity-сервиса.
//
// Все ответы завёрнуты в единый конверт {code, message, result}: code 1000
// означает успех, остальные коды — прикладные ошибки. HTTP-статус дублирует
// категорию ошибки, прикладной код уточняет её.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mkazantseva/go-social-backend/internal/authservice/service"
	"github.com/mkazantseva/go-social-backend/pkg/log"
)

// Прикладные коды ответов.
const (
	codeSuccess = 1000

	codeUserNotFound       = 1001
	codeInvalidCredentials = 1002
	codeInvalidUsername    = 1010
	codeEmptyPassword      = 1011
	codeWeakPassword       = 1012
	codeInvalidEmail       = 1014
	codeUsernameTaken      = 1015
	codeEmailTaken         = 1016
	codeTooManyRequests    = 1429
	codeInternal           = 1500
	codeUnauthorized       = 1501
)

// envelope — единый формат тела ответа.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, envelope{Code: codeSuccess, Message: "success", Result: result})
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, envelope{Code: code, Message: message})
}

// writeServiceError маппит ошибки бизнес-слоя на HTTP-статусы и прикладные
// коды. Неопознанные ошибки логируются и возвращаются как 500 с фиксированным
// сообщением — внутренние детали наружу не утекают.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, codeUsernameTaken, "username already taken")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeEmailTaken, "email already taken")
	case errors.Is(err, service.ErrInvalidUsername):
		writeError(w, http.StatusBadRequest, codeInvalidUsername, "username must be 5-20 characters")
	case errors.Is(err, service.ErrEmptyPassword):
		writeError(w, http.StatusBadRequest, codeEmptyPassword, "password must not be empty")
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, codeWeakPassword, "password is too weak")
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, codeInvalidEmail, "invalid email format")
	default:
		log.From(r.Context()).Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

// decodeStrict разбирает JSON-тело запроса, запрещая неизвестные поля
// и мусор после объекта.
func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected data after JSON body")
	}

	return nil
}
