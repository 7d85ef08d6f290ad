package pwerrors

import (
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Body is the JSON document returned for every error response.
type Body struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload"`
}

// ToBody converts an error into its wire body and status code.
// Errors outside the taxonomy become OtherException without leaking details.
func ToBody(err error) (int, Body) {
	typed, ok := As(err)
	if !ok {
		typed = &Error{Kind: KindOther, Message: "internal server error", Err: err}
	}
	payload := typed.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return typed.Kind.Status(), Body{
		Type:    typed.Kind.String(),
		Message: typed.Message,
		Payload: payload,
	}
}

// Abort renders err on the gin context and stops the handler chain.
func Abort(c *gin.Context, err error) {
	status, body := ToBody(err)
	if status >= 500 {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// Recover renders a recovered panic as OtherException. It is a gin.RecoveryFunc.
func Recover(c *gin.Context, recovered any) {
	Abort(c, &Error{Kind: KindOther, Message: "internal server error", Err: fmt.Errorf("panic: %v", recovered)})
}
